package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/gateway"
	"github.com/cgartco6/apex-studio-platform/revenue"
)

// newPaymentForOrder loads an order owned by the caller and opens a payment
// attempt against it.
func newPaymentForOrder(c *gin.Context, gatewayName string) (*db.Order, *db.Payment, bool) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return nil, nil, false
	}
	userinfo := user.(db.User)

	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.BindJSON(&req); err != nil || req.OrderID == "" {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return nil, nil, false
	}

	var order db.Order
	if err := db.DB.First(&order, "id = ? OR order_number = ?", req.OrderID, req.OrderID).Error; err != nil {
		c.JSON(404, gin.H{"error": "Order not found"})
		return nil, nil, false
	}
	if order.UserID != userinfo.ID {
		c.JSON(403, gin.H{"error": "Forbidden"})
		return nil, nil, false
	}
	if order.PaymentStatus == db.PaymentCompleted {
		c.JSON(400, gin.H{"error": "Order is already paid"})
		return nil, nil, false
	}

	payment := db.Payment{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Gateway:  gatewayName,
		Amount:   order.Total,
		Currency: order.Currency,
		Status:   db.PaymentPending,
	}
	if err := db.DB.Create(&payment).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to create payment"})
		return nil, nil, false
	}
	return &order, &payment, true
}

// CreateIntent opens a card payment: a client-confirmable Stripe intent.
func CreateIntent(c *gin.Context) {
	order, payment, ok := newPaymentForOrder(c, "stripe")
	if !ok {
		return
	}

	intent, err := gateway.CreateCardIntent(order.Total, order.Currency, order.OrderNumber)
	if err != nil {
		zap.L().Error("stripe intent creation failed", zap.String("order", order.OrderNumber), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create payment intent"})
		return
	}

	payment.IntentID = intent.ID
	payment.Status = db.PaymentProcessing
	if err := db.DB.Save(payment).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update payment"})
		return
	}

	c.JSON(200, gin.H{
		"payment_id":    payment.ID,
		"intent_id":     intent.ID,
		"client_secret": intent.ClientSecret,
		"amount":        payment.Amount,
	})
}

// MarkPaymentCompleted is the first of the two independent completion
// writes: it flips the payment row and stamps PaidAt.
func MarkPaymentCompleted(gdb *gorm.DB, payment *db.Payment) error {
	now := time.Now()
	payment.Status = db.PaymentCompleted
	payment.PaidAt = &now
	if err := gdb.Save(payment).Error; err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// SyncOrderAfterPayment is the second, separate write: it updates the parent
// order's payment and order status. If it fails after MarkPaymentCompleted
// succeeded, the payment and order are left desynchronized; there is no
// retry queue, recovery is manual.
func SyncOrderAfterPayment(gdb *gorm.DB, payment *db.Payment) error {
	var order db.Order
	if err := gdb.First(&order, payment.OrderID).Error; err != nil {
		return fmt.Errorf("load order %d: %w", payment.OrderID, err)
	}

	order.PaymentStatus = db.PaymentCompleted
	order.OrderStatus = db.OrderProcessing
	if err := gdb.Save(&order).Error; err != nil {
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	appendTimeline(gdb, order.ID, db.OrderProcessing, "payment completed via "+payment.Gateway, "gateway")
	return nil
}

// FinalizePayment runs the full completion path: payment write, order write,
// revenue tracking, referral attribution.
func FinalizePayment(gdb *gorm.DB, payment *db.Payment) error {
	if err := MarkPaymentCompleted(gdb, payment); err != nil {
		return err
	}
	if err := SyncOrderAfterPayment(gdb, payment); err != nil {
		zap.L().Error("order desynchronized from payment",
			zap.Uint("payment", payment.ID), zap.Uint("order", payment.OrderID), zap.Error(err))
		return err
	}

	var order db.Order
	if err := gdb.Preload("Items").First(&order, payment.OrderID).Error; err != nil {
		return nil
	}

	products := make(map[uint]int64)
	for _, item := range order.Items {
		products[item.ProductID] += item.UnitPrice * int64(item.Quantity)
	}
	Revenue.Track(revenue.Sale{UserID: order.UserID, Total: order.Total, Products: products}, time.Now())

	var buyer db.User
	if err := gdb.First(&buyer, order.UserID).Error; err == nil && buyer.ReferredBy != "" {
		if _, err := Referral.ProcessSale(gdb, buyer.ReferredBy, order.Subtotal); err != nil {
			zap.L().Warn("referral attribution failed",
				zap.String("code", buyer.ReferredBy), zap.Error(err))
		}
	}

	return nil
}

// ConfirmPayment is the synchronous confirmation call: the client reports a
// confirmed intent and we complete the payment by its reference.
func ConfirmPayment(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		IntentID string `json:"intent_id"`
	}
	if err := c.BindJSON(&req); err != nil || req.IntentID == "" {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	var payment db.Payment
	if err := db.DB.First(&payment, "intent_id = ?", req.IntentID).Error; err != nil {
		c.JSON(404, gin.H{"error": "Payment not found"})
		return
	}
	if payment.UserID != user.(db.User).ID {
		c.JSON(403, gin.H{"error": "Forbidden"})
		return
	}
	if payment.Status == db.PaymentCompleted {
		c.JSON(200, gin.H{"status": payment.Status})
		return
	}

	if err := FinalizePayment(db.DB, &payment); err != nil {
		c.JSON(500, gin.H{"error": "Failed to confirm payment"})
		return
	}
	c.JSON(200, gin.H{"status": payment.Status})
}

// StripeWebhook handles gateway callbacks on the raw body with signature
// verification. A dropped delivery is never replayed.
func StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "Failed to read body"})
		return
	}

	event, err := gateway.ConstructWebhookEvent(payload, c.GetHeader("Stripe-Signature"), Cfg.StripeWebhookSecret)
	if err != nil {
		zap.L().Warn("stripe webhook signature mismatch", zap.Error(err))
		c.JSON(400, gin.H{"error": "Invalid signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			c.JSON(400, gin.H{"error": "Invalid event payload"})
			return
		}

		var payment db.Payment
		if err := db.DB.First(&payment, "intent_id = ?", intent.ID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Payment not found"})
			return
		}

		if event.Type == "payment_intent.payment_failed" {
			payment.Status = db.PaymentFailed
			db.DB.Save(&payment)
			c.JSON(200, gin.H{})
			return
		}

		payment.TransactionID = intent.ID
		if payment.Status != db.PaymentCompleted {
			if err := FinalizePayment(db.DB, &payment); err != nil {
				c.JSON(500, gin.H{"error": "Failed to process webhook"})
				return
			}
		}
	}

	c.JSON(200, gin.H{})
}

// PayFastCreate returns the signed hosted-checkout redirect URL.
func PayFastCreate(c *gin.Context) {
	user, _ := c.Get("user")
	userinfo := user.(db.User)

	order, payment, ok := newPaymentForOrder(c, "payfast")
	if !ok {
		return
	}

	payment.IntentID = "pf-" + uuid.New().String()
	if err := db.DB.Save(payment).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update payment"})
		return
	}

	redirect, err := gateway.BuildPayFastRedirect(gateway.PayFastRequest{
		PaymentID:   payment.IntentID,
		Amount:      payment.Amount,
		ItemName:    "Apex Studio order " + order.OrderNumber,
		Description: fmt.Sprintf("%d item(s)", len(order.Items)),
		Email:       userinfo.Email,
		FirstName:   userinfo.Name,
	})
	if err != nil {
		zap.L().Error("payfast redirect failed", zap.String("order", order.OrderNumber), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create PayFast payment"})
		return
	}

	c.JSON(200, gin.H{"payment_id": payment.ID, "redirect_url": redirect})
}

// PayFastITN is the instant transaction notification callback.
func PayFastITN(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	posted := make(map[string]string)
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			posted[k] = v[0]
		}
	}

	if !gateway.VerifyPayFastITN(posted) {
		zap.L().Warn("payfast ITN signature mismatch")
		c.JSON(400, gin.H{"error": "Invalid signature"})
		return
	}

	var payment db.Payment
	if err := db.DB.First(&payment, "intent_id = ?", posted["m_payment_id"]).Error; err != nil {
		c.JSON(404, gin.H{"error": "Payment not found"})
		return
	}

	switch posted["payment_status"] {
	case "COMPLETE":
		payment.TransactionID = posted["pf_payment_id"]
		if payment.Status != db.PaymentCompleted {
			if err := FinalizePayment(db.DB, &payment); err != nil {
				c.JSON(500, gin.H{"error": "Failed to process notification"})
				return
			}
		}
	case "CANCELLED":
		payment.Status = db.PaymentCancelled
		db.DB.Save(&payment)
	case "FAILED":
		payment.Status = db.PaymentFailed
		db.DB.Save(&payment)
	}

	c.JSON(200, gin.H{})
}

// PayShapInitiate opens an instant-EFT pay request and returns its QR code.
func PayShapInitiate(c *gin.Context) {
	_, payment, ok := newPaymentForOrder(c, "payshap")
	if !ok {
		return
	}

	payment.IntentID = "ps-" + uuid.New().String()
	if err := db.DB.Save(payment).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update payment"})
		return
	}

	req, err := gateway.InitiatePayShap(payment.IntentID, payment.Amount)
	if err != nil {
		zap.L().Error("payshap initiation failed", zap.Uint("payment", payment.ID), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to initiate PayShap payment"})
		return
	}

	c.JSON(200, gin.H{"payment_id": payment.ID, "payshap": req})
}

// DirectEFTInitiate reserves a unique cent-adjusted amount the client must
// transfer so the bank statement line can be matched back to this payment.
func DirectEFTInitiate(c *gin.Context) {
	order, payment, ok := newPaymentForOrder(c, "direct-eft")
	if !ok {
		return
	}

	ref := gateway.ReserveEFTAmount(payment.ID, order.Total)
	payment.ReferenceAmount = ref
	payment.IntentID = "eft-" + uuid.New().String()
	if err := db.DB.Save(payment).Error; err != nil {
		gateway.ReleaseEFTAmount(ref)
		c.JSON(500, gin.H{"error": "Failed to update payment"})
		return
	}

	c.JSON(200, gin.H{
		"payment_id":   payment.ID,
		"instructions": gateway.EFTInstructionFor(order.OrderNumber, ref),
	})
}

// DirectEFTSettle matches an incoming statement amount to its pending
// payment. Admin-only; fed from the bank statement.
func DirectEFTSettle(c *gin.Context) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	paymentID, ok := gateway.SettleEFTAmount(req.Amount)
	if !ok {
		c.JSON(404, gin.H{"error": "No pending payment matches this amount"})
		return
	}

	var payment db.Payment
	if err := db.DB.First(&payment, paymentID).Error; err != nil {
		c.JSON(404, gin.H{"error": "Payment not found"})
		return
	}

	payment.TransactionID = "eft-stmt-" + strconv.FormatInt(req.Amount, 10)
	if err := FinalizePayment(db.DB, &payment); err != nil {
		c.JSON(500, gin.H{"error": "Failed to settle payment"})
		return
	}
	c.JSON(200, gin.H{"payment_id": payment.ID, "status": payment.Status})
}

// RefundPayment calls the gateway, then flips payment and order in two
// separate writes.
func RefundPayment(gdb *gorm.DB, payment *db.Payment) error {
	if !payment.IsRefundable() {
		return fmt.Errorf("payment %d is not refundable", payment.ID)
	}

	if payment.Gateway == "stripe" {
		if _, err := gateway.RefundIntent(payment.IntentID); err != nil {
			return err
		}
	} else {
		// bank-scheme refunds are executed manually outside the system
		zap.L().Info("manual refund required", zap.Uint("payment", payment.ID), zap.String("gateway", payment.Gateway))
	}

	now := time.Now()
	payment.Status = db.PaymentRefunded
	payment.RefundAmount = payment.Amount
	payment.RefundedAt = &now
	if err := gdb.Save(payment).Error; err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	var order db.Order
	if err := gdb.First(&order, payment.OrderID).Error; err != nil {
		return fmt.Errorf("load order %d: %w", payment.OrderID, err)
	}
	order.PaymentStatus = db.PaymentRefunded
	order.OrderStatus = db.OrderRefunded
	if err := gdb.Save(&order).Error; err != nil {
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	appendTimeline(gdb, order.ID, db.OrderRefunded, "payment refunded", "admin")
	return nil
}

func Refund(c *gin.Context) {
	var req struct {
		PaymentID uint `json:"payment_id"`
	}
	if err := c.BindJSON(&req); err != nil || req.PaymentID == 0 {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	var payment db.Payment
	if err := db.DB.First(&payment, req.PaymentID).Error; err != nil {
		c.JSON(404, gin.H{"error": "Payment not found"})
		return
	}

	if err := RefundPayment(db.DB, &payment); err != nil {
		zap.L().Error("refund failed", zap.Uint("payment", payment.ID), zap.Error(err))
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"payment": payment})
}

func GetPaymentStatus(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}
	userinfo := user.(db.User)

	var payment db.Payment
	if err := db.DB.First(&payment, "id = ? OR intent_id = ?", c.Param("id"), c.Param("id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Payment not found"})
		return
	}
	if payment.UserID != userinfo.ID && userinfo.Role != db.RoleAdmin {
		c.JSON(403, gin.H{"error": "Forbidden"})
		return
	}
	c.JSON(200, gin.H{"payment_id": payment.ID, "status": payment.Status})
}

func ListPayments(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}

	var payments []db.Payment
	if err := db.DB.Where("user_id = ?", user.(db.User).ID).Find(&payments).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch payments"})
		return
	}
	c.JSON(200, gin.H{"payments": payments})
}
