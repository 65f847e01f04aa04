package db

import (
	"time"

	"gorm.io/gorm"
)

// Role values for User.Role.
const (
	RoleClient   = "client"
	RoleDesigner = "designer"
	RoleAdmin    = "admin"
	RoleAgent    = "agent"
)

type User struct {
	gorm.Model
	Email    string `gorm:"unique"`
	Password string
	Name     string
	Role     string `gorm:"default:client"`

	// AI credit balance, split the way the storefront reports it.
	FreeCredits      int
	PurchasedCredits int
	UsedCredits      int

	Plan               string
	PlanStart          time.Time
	PlanEnd            time.Time
	SubscriptionStatus string

	IsVerified  bool
	VerifyToken string
	TokenExpiry time.Time

	// Referral sub-record. Cumulative stats are written back here by the
	// referral tracker; the live counters themselves are in-memory.
	ReferralCode        string `gorm:"uniqueIndex"`
	ReferralLink        string
	ReferralClicks      int
	ReferralConversions int
	ReferralEarnings    int64 // cents
	ReferralBonusEarned int64 // cents

	// Code of the user who referred this one, captured at signup. Completed
	// purchases are attributed to it.
	ReferredBy string
}

// Product categories.
const (
	CategoryLogo      = "logo"
	CategoryBranding  = "branding"
	CategoryWebDesign = "web-design"
	CategorySocial    = "social-media"
	CategoryCourse    = "course"
	CategoryTemplate  = "template"
)

type Product struct {
	gorm.Model
	Name          string
	Description   string
	Category      string `gorm:"index"`
	Price         int64  // cents
	DiscountPrice int64  // cents, 0 means no discount

	// Recomputed by the trending monitor.
	TrendingScore   float64
	PopularityScore float64
	AIGenerated     bool

	Reviews []Review
}

// UnitPrice is the price a new order line locks in: the discount price when
// one is set, the list price otherwise.
func (p *Product) UnitPrice() int64 {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.Price
}

type Review struct {
	gorm.Model
	ProductID uint `gorm:"index"`
	UserID    uint
	Rating    int
	Comment   string
}

// Order status values.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderInDesign   = "in-design"
	OrderDelivered  = "delivered"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
	OrderRefunded   = "refunded"
)

// Payment method values on an order.
const (
	MethodCard      = "card"
	MethodPayFast   = "payfast"
	MethodPayShap   = "payshap"
	MethodDirectEFT = "direct-eft"
)

type Order struct {
	gorm.Model
	OrderNumber string `gorm:"uniqueIndex"`
	UserID      uint   `gorm:"index"`

	Items    []OrderItem
	Timeline []TimelineEvent

	// Computed once at creation. Never recomputed, even if items or catalog
	// prices change afterwards.
	Subtotal int64
	Tax      int64
	Total    int64
	Currency string

	ShippingAddress string
	BillingAddress  string

	PaymentMethod string
	PaymentStatus string `gorm:"default:pending"`
	OrderStatus   string `gorm:"default:pending"`

	AgentAssigned bool
}

type OrderItem struct {
	gorm.Model
	OrderID   uint `gorm:"index"`
	ProductID uint

	// Snapshots taken at checkout.
	Name      string
	UnitPrice int64
	Quantity  int

	Status      string `gorm:"default:pending"`
	DesignSpecs string
	Revisions   int
	FileURL     string
}

// TimelineEvent is an append-only log entry on an order.
type TimelineEvent struct {
	gorm.Model
	OrderID uint `gorm:"index"`
	Status  string
	Message string
	Source  string // "system", "gateway", "admin", "client"
}

// Payment status values.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"
	PaymentCancelled  = "cancelled"
)

// Payment is one record per payment attempt. Status is overwritten in place;
// no attempt history is preserved.
type Payment struct {
	gorm.Model
	OrderID uint `gorm:"index"`
	UserID  uint

	Gateway       string
	IntentID      string `gorm:"index"`
	TransactionID string `gorm:"index"`

	Amount   int64
	Currency string
	// For direct EFT: the unique cent-adjusted amount the client must
	// transfer so the statement line can be matched back to this payment.
	ReferenceAmount int64

	Status string `gorm:"default:pending"`
	PaidAt *time.Time

	RefundAmount int64
	RefundedAt   *time.Time
}

// IsRefundable reports whether a refund may still be issued.
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentCompleted
}

type Voucher struct {
	gorm.Model
	Code        string `gorm:"uniqueIndex"`
	Type        string // "credits" or "plan"
	Description string
	ExpiresAt   time.Time

	Credits      int    // AI credits, for credits vouchers
	PlanName     string // only for plan vouchers
	PlanDuration int    // in months, only for plan vouchers

	IsUsed     bool
	RedeemedBy uint
	RedeemedAt *time.Time
}
