package controllers_test

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cgartco6/apex-studio-platform/config"
	"github.com/cgartco6/apex-studio-platform/controllers"
	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/referral"
	"github.com/cgartco6/apex-studio-platform/revenue"
)

// setup swaps the global DB handle for an in-memory sqlite one and wires
// fresh trackers, so every test starts clean.
func setup(t *testing.T) *revenue.Tracker {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal("open sqlite:", err)
	}
	db.DB = gdb
	if err := db.Sync(); err != nil {
		t.Fatal("migrate:", err)
	}

	pricing := config.DefaultPricing()
	rev := revenue.NewTracker(pricing.DailyClientGoal, pricing.DailyRevenueGoal, nil)
	ref := referral.NewTracker(pricing, "https://apex.example", nil)
	controllers.Setup(&config.Config{PublicURL: "https://apex.example"}, pricing, rev, ref, nil)
	return rev
}

func makeProduct(t *testing.T, price, discount int64) db.Product {
	t.Helper()
	p := db.Product{Name: "Logo package", Category: db.CategoryLogo, Price: price, DiscountPrice: discount}
	if err := db.DB.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}

func makeUser(t *testing.T, email string) db.User {
	t.Helper()
	u := db.User{Email: email, Name: "Test", IsVerified: true, ReferralCode: referral.GenerateCode()}
	if err := db.DB.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCreateOrderTotals(t *testing.T) {
	setup(t)
	user := makeUser(t, "buyer@example.com")
	product := makeProduct(t, 50000, 0)

	order, err := controllers.CreateOrderForUser(db.DB, user, controllers.OrderRequest{
		Items:         []controllers.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: db.MethodCard,
	})
	if err != nil {
		t.Fatal(err)
	}

	if order.Subtotal != 50000 {
		t.Error("Expected subtotal 50000, got", order.Subtotal)
	}
	if order.Tax != 7500 {
		t.Error("Expected 15% tax of 7500, got", order.Tax)
	}
	if order.Total != 57500 {
		t.Error("Expected total 57500, got", order.Total)
	}
	if order.OrderNumber == "" {
		t.Error("Expected an order number")
	}
	if len(order.Timeline) != 1 || order.Timeline[0].Message != "order created" {
		t.Error("Expected the opening timeline event, got", order.Timeline)
	}

	// totals are locked in at creation; later catalog changes don't touch them
	db.DB.Model(&db.Product{}).Where("id = ?", product.ID).Update("price", 99999)
	var reloaded db.Order
	db.DB.First(&reloaded, order.ID)
	if reloaded.Total != 57500 {
		t.Error("Expected total unchanged after a price change, got", reloaded.Total)
	}
}

func TestCreateOrderMixedItems(t *testing.T) {
	setup(t)
	user := makeUser(t, "buyer@example.com")
	a := makeProduct(t, 100, 0)
	b := makeProduct(t, 200, 0)

	order, err := controllers.CreateOrderForUser(db.DB, user, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if order.Subtotal != 500 || order.Tax != 75 || order.Total != 575 {
		t.Error("Expected 500/75/575, got", order.Subtotal, order.Tax, order.Total)
	}
}

func TestCreateOrderUsesDiscountPrice(t *testing.T) {
	setup(t)
	user := makeUser(t, "buyer@example.com")
	product := makeProduct(t, 50000, 30000)

	order, err := controllers.CreateOrderForUser(db.DB, user, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if order.Subtotal != 60000 {
		t.Error("Expected 2 x 30000 discount price, got", order.Subtotal)
	}
}

func TestCreateOrderRejectsEmptyAndUnknown(t *testing.T) {
	setup(t)
	user := makeUser(t, "buyer@example.com")

	if _, err := controllers.CreateOrderForUser(db.DB, user, controllers.OrderRequest{}); err != controllers.ErrEmptyOrder {
		t.Error("Expected ErrEmptyOrder, got", err)
	}
	_, err := controllers.CreateOrderForUser(db.DB, user, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: 999}},
	})
	if err == nil {
		t.Error("Expected an error for an unknown product")
	}
}

func TestDesignSpecsAssignAgent(t *testing.T) {
	setup(t)
	user := makeUser(t, "buyer@example.com")
	product := makeProduct(t, 50000, 0)

	order, err := controllers.CreateOrderForUser(db.DB, user, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: product.ID, DesignSpecs: "minimal serif wordmark"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !order.AgentAssigned {
		t.Error("Expected an AI design agent assigned when specs are present")
	}
	if len(order.Timeline) != 2 {
		t.Error("Expected the agent-assigned timeline event, got", order.Timeline)
	}
}

func paymentForOrder(t *testing.T, order *db.Order, gatewayName string) *db.Payment {
	t.Helper()
	p := db.Payment{
		OrderID: order.ID, UserID: order.UserID,
		Gateway: gatewayName, Amount: order.Total, Currency: order.Currency,
		Status: db.PaymentPending,
	}
	if err := db.DB.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return &p
}

func TestFinalizePaymentCompletesAndTracks(t *testing.T) {
	rev := setup(t)

	referrer := db.User{Email: "referrer@example.com", Name: "Ref", IsVerified: true}
	if err := controllers.Referral.Register(db.DB, &referrer); err != nil {
		t.Fatal(err)
	}

	buyer := makeUser(t, "buyer@example.com")
	buyer.ReferredBy = referrer.ReferralCode
	db.DB.Save(&buyer)

	product := makeProduct(t, 50000, 0)
	order, err := controllers.CreateOrderForUser(db.DB, buyer, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: product.ID}},
	})
	if err != nil {
		t.Fatal(err)
	}

	payment := paymentForOrder(t, order, "payshap")
	if err := controllers.FinalizePayment(db.DB, payment); err != nil {
		t.Fatal(err)
	}

	if payment.Status != db.PaymentCompleted || payment.PaidAt == nil {
		t.Error("Expected the payment completed, got", payment.Status)
	}

	var stored db.Order
	db.DB.First(&stored, order.ID)
	if stored.PaymentStatus != db.PaymentCompleted {
		t.Error("Expected the order payment status synced, got", stored.PaymentStatus)
	}
	if stored.OrderStatus != db.OrderProcessing {
		t.Error("Expected the order moved to processing, got", stored.OrderStatus)
	}

	if got := rev.DailyRevenue(time.Now()); got != order.Total {
		t.Error("Expected the sale tracked, got", got)
	}

	// 40% commission on the pre-tax subtotal
	var storedReferrer db.User
	db.DB.First(&storedReferrer, referrer.ID)
	if storedReferrer.ReferralEarnings != 20000 {
		t.Error("Expected 20000 commission credited to the referrer, got", storedReferrer.ReferralEarnings)
	}
	if storedReferrer.ReferralConversions != 1 {
		t.Error("Expected 1 conversion, got", storedReferrer.ReferralConversions)
	}
}

// The payment and order writes are independent: when the second write cannot
// find its order, the payment stays completed and the rows desynchronize.
func TestPaymentOrderDesync(t *testing.T) {
	setup(t)
	buyer := makeUser(t, "buyer@example.com")
	product := makeProduct(t, 50000, 0)

	order, err := controllers.CreateOrderForUser(db.DB, buyer, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: product.ID}},
	})
	if err != nil {
		t.Fatal(err)
	}
	payment := paymentForOrder(t, order, "payshap")

	if err := controllers.MarkPaymentCompleted(db.DB, payment); err != nil {
		t.Fatal(err)
	}

	// order vanishes between the two writes
	db.DB.Unscoped().Delete(&db.Order{}, order.ID)

	if err := controllers.SyncOrderAfterPayment(db.DB, payment); err == nil {
		t.Error("Expected the order sync to fail")
	}

	var stored db.Payment
	db.DB.First(&stored, payment.ID)
	if stored.Status != db.PaymentCompleted {
		t.Error("Expected the payment left completed despite the failed sync, got", stored.Status)
	}
}

// asUser injects an authenticated user the way the auth middleware does.
func asUser(u db.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", u)
		c.Next()
	}
}

func TestPaymentAccessIsOwnerOnly(t *testing.T) {
	setup(t)
	owner := makeUser(t, "owner@example.com")
	other := makeUser(t, "other@example.com")
	product := makeProduct(t, 50000, 0)

	order, err := controllers.CreateOrderForUser(db.DB, owner, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: product.ID}},
	})
	if err != nil {
		t.Fatal(err)
	}
	payment := paymentForOrder(t, order, "stripe")
	payment.IntentID = "pi_test_1"
	db.DB.Save(payment)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/payments/:id", asUser(other), controllers.GetPaymentStatus)
	r.POST("/confirm", asUser(other), controllers.ConfirmPayment)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", fmt.Sprintf("/payments/%d", payment.ID), nil))
	if w.Code != 403 {
		t.Error("Expected 403 reading another user's payment, got", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/confirm", strings.NewReader(`{"intent_id":"pi_test_1"}`))
	r.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Error("Expected 403 confirming another user's payment, got", w.Code)
	}

	var stored db.Payment
	db.DB.First(&stored, payment.ID)
	if stored.Status != db.PaymentPending {
		t.Error("Expected the payment untouched, got", stored.Status)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	setup(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/payments/webhook/stripe", controllers.StripeWebhook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/payments/webhook/stripe",
		strings.NewReader(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	r.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Error("Expected 400 for an unverifiable signature, got", w.Code)
	}
}

func TestRefundPayment(t *testing.T) {
	setup(t)
	buyer := makeUser(t, "buyer@example.com")
	product := makeProduct(t, 50000, 0)

	order, err := controllers.CreateOrderForUser(db.DB, buyer, controllers.OrderRequest{
		Items: []controllers.OrderItemRequest{{ProductID: product.ID}},
	})
	if err != nil {
		t.Fatal(err)
	}
	payment := paymentForOrder(t, order, "payfast")

	if err := controllers.RefundPayment(db.DB, payment); err == nil {
		t.Error("Expected refusal to refund a pending payment")
	}

	if err := controllers.FinalizePayment(db.DB, payment); err != nil {
		t.Fatal(err)
	}
	if err := controllers.RefundPayment(db.DB, payment); err != nil {
		t.Fatal(err)
	}

	if payment.Status != db.PaymentRefunded || payment.RefundAmount != order.Total || payment.RefundedAt == nil {
		t.Error("Expected a full refund recorded, got", payment.Status, payment.RefundAmount)
	}
	if payment.IsRefundable() {
		t.Error("Expected a refunded payment to not be refundable again")
	}

	var stored db.Order
	db.DB.First(&stored, order.ID)
	if stored.PaymentStatus != db.PaymentRefunded || stored.OrderStatus != db.OrderRefunded {
		t.Error("Expected the order marked refunded, got", stored.PaymentStatus, stored.OrderStatus)
	}
}
