package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductAssociation is the persisted pairwise cache: directional
// (product → associated product) with strength in [0,1] — co-occurrence
// count normalized by the maximum count across all pairs. Recomputed by the
// batch job; stale between recomputations and always reproducible from the
// completed-sale history.
type ProductAssociation struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assoc_pair"`
	AssociatedProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assoc_pair"`
	Strength            float64   `gorm:"not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Product           *Product `gorm:"foreignKey:ProductID"`
	AssociatedProduct *Product `gorm:"foreignKey:AssociatedProductID"`
}

// ProductRecommendation is the materialized per-user record served by the
// user recommendation endpoint. Viewed resets to false whenever the score
// changes; marking viewed is idempotent.
type ProductRecommendation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_product_rec"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_product_rec"`
	Score     float64   `gorm:"not null;default:0"`
	Viewed    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
