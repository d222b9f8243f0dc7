package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the owner of carts, orders, sales and recommendation records.
// Credential handling lives outside this service; only identity is kept here.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
