package model

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is referenced by products for purchasing; plain CRUD entity.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	TaxID     string    `gorm:"uniqueIndex;not null"`
	Phone     *string
	Email     *string
	Address   *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
