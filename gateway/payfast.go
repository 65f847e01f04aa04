package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// PayFast hosted checkout. We build a signed redirect URL; PayFast posts the
// result back to the ITN (instant transaction notification) endpoint, where
// the signature is checked again.

// payfastFieldOrder is the field ordering PayFast signs over; the signature
// is the md5 of the urlencoded name=value pairs in this exact order, with
// the passphrase appended last.
var payfastFieldOrder = []string{
	"merchant_id", "merchant_key", "return_url", "cancel_url", "notify_url",
	"name_first", "email_address",
	"m_payment_id", "amount", "item_name", "item_description",
}

type PayFastRequest struct {
	PaymentID   string // our payment reference
	Amount      int64  // cents
	ItemName    string
	Description string
	Email       string
	FirstName   string
}

// PayFastSignature computes the request signature over the given fields.
func PayFastSignature(fields map[string]string, passphrase string) string {
	var parts []string
	for _, k := range payfastFieldOrder {
		v, ok := fields[k]
		if !ok || v == "" {
			continue
		}
		parts = append(parts, k+"="+encodePayFast(v))
	}
	payload := strings.Join(parts, "&")
	if passphrase != "" {
		payload += "&passphrase=" + encodePayFast(passphrase)
	}
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// PayFast wants spaces as '+' and uppercase percent escapes, which is what
// QueryEscape produces.
func encodePayFast(v string) string {
	return url.QueryEscape(v)
}

// BuildPayFastRedirect returns the hosted checkout URL for a payment.
func BuildPayFastRedirect(req PayFastRequest) (string, error) {
	merchantID := os.Getenv("PAYFAST_MERCHANT_ID")
	merchantKey := os.Getenv("PAYFAST_MERCHANT_KEY")
	if merchantID == "" || merchantKey == "" {
		return "", fmt.Errorf("payfast credentials not configured")
	}

	base := os.Getenv("PAYFAST_BASE_URL")
	if base == "" {
		base = "https://www.payfast.co.za/eng/process"
	}
	publicURL := os.Getenv("PUBLIC_URL")

	fields := map[string]string{
		"merchant_id":      merchantID,
		"merchant_key":     merchantKey,
		"return_url":       publicURL + "/checkout/success",
		"cancel_url":       publicURL + "/checkout/cancelled",
		"notify_url":       publicURL + "/api/payments/webhook/payfast",
		"name_first":       req.FirstName,
		"email_address":    req.Email,
		"m_payment_id":     req.PaymentID,
		"amount":           fmt.Sprintf("%.2f", float64(req.Amount)/100),
		"item_name":        req.ItemName,
		"item_description": req.Description,
	}

	signature := PayFastSignature(fields, os.Getenv("PAYFAST_PASSPHRASE"))

	q := url.Values{}
	for k, v := range fields {
		if v != "" {
			q.Set(k, v)
		}
	}
	q.Set("signature", signature)

	return base + "?" + q.Encode(), nil
}

// VerifyPayFastITN checks the signature on a posted ITN field set.
func VerifyPayFastITN(posted map[string]string) bool {
	signature, ok := posted["signature"]
	if !ok {
		return false
	}
	expected := PayFastSignature(posted, os.Getenv("PAYFAST_PASSPHRASE"))
	return signature == expected
}
