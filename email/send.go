package email

import (
	"fmt"
	"net/smtp"
	"os"
)

func SendEmail(to string, subject string, body string) error {
	smtpServer := os.Getenv("SMTP_SERVER")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromAddr := os.Getenv("FROM_ADDR")
	fromName := os.Getenv("FROM_NAME")

	if smtpServer == "" || smtpPort == "" || smtpUser == "" || smtpPass == "" || fromAddr == "" || fromName == "" {
		return fmt.Errorf("missing required SMTP environment variables")
	}
	msg := []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s",
		fromName, fromAddr, to, subject, body))

	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpServer)

	err := smtp.SendMail(smtpServer+":"+smtpPort, auth, fromAddr, []string{to}, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func SendVerificationEmail(to string, token string) error {
	subject := "Please verify your email address for Apex Studio"
	verifyLink := fmt.Sprintf("%s/verify?token=%s", os.Getenv("PUBLIC_URL"), token)
	body := fmt.Sprintf("Click the link below to verify your email address:\n\n%s\n\nThis link will expire in 24 hours.", verifyLink)
	return SendEmail(to, subject, body)
}

// SendCommissionEmail notifies a referrer of a new commission, amounts in cents.
func SendCommissionEmail(to string, commission int64, bonus int64, totalEarnings int64) error {
	subject := "You earned a referral commission!"
	body := fmt.Sprintf("A sale was just attributed to your referral link.\n\nCommission: R%.2f\n", float64(commission)/100)
	if bonus > 0 {
		body += fmt.Sprintf("Tier bonus: R%.2f\n", float64(bonus)/100)
	}
	body += fmt.Sprintf("Total earnings to date: R%.2f\n\nKeep sharing your link to reach the next bonus tier.", float64(totalEarnings)/100)
	return SendEmail(to, subject, body)
}

// SendRevenueAlert notifies the admin address of a crossed daily goal.
func SendRevenueAlert(message string) error {
	to := os.Getenv("ALERT_ADDR")
	if to == "" {
		to = os.Getenv("FROM_ADDR")
	}
	return SendEmail(to, "Revenue alert", message)
}
