package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart lifecycle states. Allowed transitions:
// active → processed | abandoned | saved, saved → active.
// processed is terminal.
const (
	CartActive    = "active"
	CartSaved     = "saved"
	CartProcessed = "processed"
	CartAbandoned = "abandoned"
)

// Cart is the single mutable basket per user. At most one active cart per
// user exists at a time — enforced by CartService, not by the schema.
// Subtotal is a derived cache, recomputed in application code after every
// line mutation by summing line subtotals.
type Cart struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Status    string    `gorm:"not null;default:'active';index"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// CartItem is a line in a cart. UnitPrice is snapshotted at add time — it is
// never re-joined against the live product price.
// Subtotal = Quantity*UnitPrice − Discount.
type CartItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
