package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry referenced by cart lines, order lines, sale
// lines and association records. It is never owned by any of them.
// Invariants: Price > 0, Stock >= 0 (stock is only mutated via conditional
// updates inside transactions — see ProductRepository.DecrementStockTx).
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `gorm:"index;not null"`
	Description *string
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null;default:0"`
	ImageURL    *string
	SupplierID  *uuid.UUID `gorm:"type:uuid;index"`
	Active      bool       `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
}

// ProductSummary is the read model returned by the recommendation endpoints.
type ProductSummary struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   *string         `json:"image_url,omitempty"`
	CategoryID uuid.UUID       `json:"category_id"`
}

// Summary projects the fields recommendation callers care about.
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		ImageURL:   p.ImageURL,
		CategoryID: p.CategoryID,
	}
}
