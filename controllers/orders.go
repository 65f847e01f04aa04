package controllers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cgartco6/apex-studio-platform/db"
)

var ErrEmptyOrder = errors.New("order has no items")

type OrderItemRequest struct {
	ProductID   uint   `json:"product_id"`
	Quantity    int    `json:"quantity"`
	DesignSpecs string `json:"design_specs"`
}

type OrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	BillingAddress  string             `json:"billing_address"`
	PaymentMethod   string             `json:"payment_method"`
}

// CreateOrderForUser verifies every product, locks in unit prices (discount
// price when present), computes subtotal/tax/total once and persists the
// order with its opening timeline event. There is no inventory check, no
// price lock against later catalog changes and no double-submission guard.
func CreateOrderForUser(gdb *gorm.DB, user db.User, req OrderRequest) (*db.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var subtotal int64
	var items []db.OrderItem
	agentNeeded := false

	for _, it := range req.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}

		var product db.Product
		if err := gdb.First(&product, it.ProductID).Error; err != nil {
			return nil, fmt.Errorf("product %d not found", it.ProductID)
		}

		unit := product.UnitPrice()
		subtotal += unit * int64(qty)

		if it.DesignSpecs != "" {
			agentNeeded = true
		}

		items = append(items, db.OrderItem{
			ProductID:   product.ID,
			Name:        product.Name,
			UnitPrice:   unit,
			Quantity:    qty,
			Status:      db.OrderPending,
			DesignSpecs: it.DesignSpecs,
		})
	}

	tax := Pricing.TaxOn(subtotal)

	order := db.Order{
		OrderNumber: uuid.New().String(),
		UserID:      user.ID,
		Items:       items,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       subtotal + tax,
		Currency:    Pricing.Currency,

		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,

		PaymentMethod: req.PaymentMethod,
		PaymentStatus: db.PaymentPending,
		OrderStatus:   db.OrderPending,
		AgentAssigned: agentNeeded,
	}

	order.Timeline = append(order.Timeline, db.TimelineEvent{
		Status:  db.OrderPending,
		Message: "order created",
		Source:  "system",
	})
	if agentNeeded {
		order.Timeline = append(order.Timeline, db.TimelineEvent{
			Status:  db.OrderPending,
			Message: "AI design agent assigned",
			Source:  "system",
		})
	}

	if err := gdb.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &order, nil
}

func appendTimeline(gdb *gorm.DB, orderID uint, status, message, source string) {
	event := db.TimelineEvent{OrderID: orderID, Status: status, Message: message, Source: source}
	if err := gdb.Create(&event).Error; err != nil {
		zap.L().Warn("failed to append timeline event", zap.Uint("order", orderID), zap.Error(err))
	}
}

func CreateOrder(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}

	var req OrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	order, err := CreateOrderForUser(db.DB, user.(db.User), req)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"order": order})
}

func loadOrder(c *gin.Context) (*db.Order, bool) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	userinfo := user.(db.User)

	var order db.Order
	if err := db.DB.Preload("Items").Preload("Timeline").
		First(&order, "id = ? OR order_number = ?", c.Param("id"), c.Param("id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Order not found"})
		return nil, false
	}

	if order.UserID != userinfo.ID && userinfo.Role != db.RoleAdmin {
		c.JSON(403, gin.H{"error": "Forbidden"})
		return nil, false
	}
	return &order, true
}

func GetOrder(c *gin.Context) {
	order, ok := loadOrder(c)
	if !ok {
		return
	}
	c.JSON(200, gin.H{"order": order})
}

func ListOrders(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}

	var orders []db.Order
	if err := db.DB.Preload("Items").
		Where("user_id = ?", user.(db.User).ID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(200, gin.H{"orders": orders})
}

// UpdateOrderStatus is the admin status mutation; totals are never touched.
func UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BindJSON(&req); err != nil || req.Status == "" {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	var order db.Order
	if err := db.DB.First(&order, "id = ? OR order_number = ?", c.Param("id"), c.Param("id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Order not found"})
		return
	}

	order.OrderStatus = req.Status
	if err := db.DB.Save(&order).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update order"})
		return
	}
	appendTimeline(db.DB, order.ID, req.Status, "status updated", "admin")

	c.JSON(200, gin.H{"order": order})
}

// RequestRevision bumps the revision counter on one line item.
func RequestRevision(c *gin.Context) {
	order, ok := loadOrder(c)
	if !ok {
		return
	}

	var item db.OrderItem
	if err := db.DB.First(&item, "id = ? AND order_id = ?", c.Param("item_id"), order.ID).Error; err != nil {
		c.JSON(404, gin.H{"error": "Order item not found"})
		return
	}

	item.Revisions++
	item.Status = db.OrderInDesign
	if err := db.DB.Save(&item).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to request revision"})
		return
	}
	appendTimeline(db.DB, order.ID, order.OrderStatus,
		fmt.Sprintf("revision %d requested for %s", item.Revisions, item.Name), "client")

	c.JSON(200, gin.H{"item": item})
}

func CancelOrder(c *gin.Context) {
	order, ok := loadOrder(c)
	if !ok {
		return
	}

	if order.OrderStatus != db.OrderPending && order.OrderStatus != db.OrderProcessing {
		c.JSON(400, gin.H{"error": "Order can no longer be cancelled"})
		return
	}

	order.OrderStatus = db.OrderCancelled
	if err := db.DB.Save(order).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to cancel order"})
		return
	}
	appendTimeline(db.DB, order.ID, db.OrderCancelled, "order cancelled", "client")

	c.JSON(200, gin.H{"order": order})
}
