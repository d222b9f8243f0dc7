package repository

import (
	"context"

	"shopcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PairCount is one undirected product pair with its co-occurrence frequency
// across completed sales (ProductID < AssociatedProductID by id order).
type PairCount struct {
	ProductID           uuid.UUID
	AssociatedProductID uuid.UUID
	Frequency           int64
}

// AssociatedProduct is a candidate from the pairwise cache with the maximum
// strength over all seed products that point at it.
type AssociatedProduct struct {
	ProductID   uuid.UUID
	MaxStrength float64
}

// RecommendationRepository is the data access contract for the pairwise
// association cache and the materialized per-user recommendation records.
type RecommendationRepository interface {
	// Pairwise association cache
	FindAssociation(ctx context.Context, productID, associatedID uuid.UUID) (*model.ProductAssociation, error)
	UpsertAssociation(ctx context.Context, productID, associatedID uuid.UUID, strength float64) error
	ListAssociationsForProduct(ctx context.Context, productID uuid.UUID, minStrength float64, limit int) ([]model.ProductAssociation, error)
	ListAssociatedForProducts(ctx context.Context, seed []uuid.UUID, limit int) ([]AssociatedProduct, error)

	// ListPairCounts aggregates co-occurrence counts of product pairs over
	// completed sales, keeping only pairs seen together in at least two sales.
	ListPairCounts(ctx context.Context) ([]PairCount, error)

	// Per-user recommendation records
	FindRecommendation(ctx context.Context, userID, productID uuid.UUID) (*model.ProductRecommendation, error)
	FindRecommendationByID(ctx context.Context, id uuid.UUID) (*model.ProductRecommendation, error)
	SaveRecommendation(ctx context.Context, rec *model.ProductRecommendation) error
	ListRecommendations(ctx context.Context, userID uuid.UUID, limit int, minScore float64, includeViewed bool) ([]model.ProductRecommendation, error)
	MarkViewed(ctx context.Context, id uuid.UUID) error
}

type recommendationRepo struct{ db *gorm.DB }

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepo{db: db}
}

func (r *recommendationRepo) FindAssociation(ctx context.Context, productID, associatedID uuid.UUID) (*model.ProductAssociation, error) {
	var a model.ProductAssociation
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND associated_product_id = ?", productID, associatedID).
		First(&a).Error
	return &a, err
}

// UpsertAssociation creates the directional association row or updates its
// strength in place. The batch rebuild only ever upserts — it never deletes —
// so concurrent readers always see a consistent, monotonically updated view.
func (r *recommendationRepo) UpsertAssociation(ctx context.Context, productID, associatedID uuid.UUID, strength float64) error {
	res := r.db.WithContext(ctx).Model(&model.ProductAssociation{}).
		Where("product_id = ? AND associated_product_id = ?", productID, associatedID).
		Update("strength", strength)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&model.ProductAssociation{
		ProductID:           productID,
		AssociatedProductID: associatedID,
		Strength:            strength,
	}).Error
}

func (r *recommendationRepo) ListAssociationsForProduct(ctx context.Context, productID uuid.UUID, minStrength float64, limit int) ([]model.ProductAssociation, error) {
	var assocs []model.ProductAssociation
	err := r.db.WithContext(ctx).
		Preload("AssociatedProduct").
		Where("product_id = ? AND strength >= ?", productID, minStrength).
		Order("strength DESC").
		Limit(limit).
		Find(&assocs).Error
	return assocs, err
}

func (r *recommendationRepo) ListAssociatedForProducts(ctx context.Context, seed []uuid.UUID, limit int) ([]AssociatedProduct, error) {
	if len(seed) == 0 {
		return nil, nil
	}
	var out []AssociatedProduct
	err := r.db.WithContext(ctx).Model(&model.ProductAssociation{}).
		Select("associated_product_id AS product_id, MAX(strength) AS max_strength").
		Where("product_id IN ?", seed).
		Where("associated_product_id NOT IN ?", seed).
		Group("associated_product_id").
		Order("max_strength DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *recommendationRepo) ListPairCounts(ctx context.Context) ([]PairCount, error) {
	var pairs []PairCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.product_id            AS product_id,
		       b.product_id            AS associated_product_id,
		       COUNT(DISTINCT a.sale_id) AS frequency
		FROM sale_items a
		JOIN sale_items b ON a.sale_id = b.sale_id AND a.product_id < b.product_id
		JOIN sales s      ON s.id = a.sale_id AND s.status = ?
		GROUP BY a.product_id, b.product_id
		HAVING COUNT(DISTINCT a.sale_id) > 1`, model.SaleCompleted).
		Scan(&pairs).Error
	return pairs, err
}

func (r *recommendationRepo) FindRecommendation(ctx context.Context, userID, productID uuid.UUID) (*model.ProductRecommendation, error) {
	var rec model.ProductRecommendation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&rec).Error
	return &rec, err
}

func (r *recommendationRepo) FindRecommendationByID(ctx context.Context, id uuid.UUID) (*model.ProductRecommendation, error) {
	var rec model.ProductRecommendation
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	return &rec, err
}

func (r *recommendationRepo) SaveRecommendation(ctx context.Context, rec *model.ProductRecommendation) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *recommendationRepo) ListRecommendations(ctx context.Context, userID uuid.UUID, limit int, minScore float64, includeViewed bool) ([]model.ProductRecommendation, error) {
	var recs []model.ProductRecommendation
	q := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND score >= ?", userID, minScore)
	if !includeViewed {
		q = q.Where("viewed = false")
	}
	err := q.Order("score DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (r *recommendationRepo) MarkViewed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.ProductRecommendation{}).
		Where("id = ?", id).
		Update("viewed", true).Error
}
