package repository

import (
	"context"
	"errors"

	"shopcore/internal/dto"
	"shopcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStockConflict is returned by DecrementStockTx when the conditional
// update matched no row — the product is gone or its stock is below the
// requested quantity. Callers rollback on it.
var ErrStockConflict = errors.New("insufficient stock")

// ProductRepository defines the data access contract for the catalog.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, p *model.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error

	// Recommendation fallback queries — active products only.
	ListActiveByCategory(ctx context.Context, categoryID uuid.UUID, exclude []uuid.UUID, limit int) ([]model.Product, error)
	ListPopular(ctx context.Context, exclude []uuid.UUID, limit int) ([]model.Product, error)
	ListRandomOutsideCategories(ctx context.Context, exclude []uuid.UUID, excludeCategories []uuid.UUID, limit int) ([]model.Product, error)
	ListRandom(ctx context.Context, exclude []uuid.UUID, limit int) ([]model.Product, error)

	// DecrementStockTx performs the conditional stock decrement inside a
	// transaction: UPDATE ... SET stock = stock - qty WHERE stock >= qty.
	// Two racing checkouts for the last unit serialize at the row — exactly
	// one sees RowsAffected = 1, the other gets ErrStockConflict.
	DecrementStockTx(tx *gorm.DB, id uuid.UUID, qty int) error

	// AdjustStock increments or decrements stock without an external tx.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []model.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})

	// Active filter: "false" = inactive, "all" = everything, default = active
	switch filter.Active {
	case "false":
		q = q.Where("active = false")
	case "all":
		// no filter
	default:
		q = q.Where("active = true")
	}

	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.SupplierID != "" {
		q = q.Where("supplier_id = ?", filter.SupplierID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("name ASC").Limit(filter.Limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Update("active", false).Error
}

func (r *productRepo) Reactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Update("active", true).Error
}

func (r *productRepo) ListActiveByCategory(ctx context.Context, categoryID uuid.UUID, exclude []uuid.UUID, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).
		Where("category_id = ? AND active = true", categoryID)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	err := q.Order("name ASC").Limit(limit).Find(&products).Error
	return products, err
}

// ListPopular ranks active products by total quantity sold across completed
// sales, descending.
func (r *productRepo) ListPopular(ctx context.Context, exclude []uuid.UUID, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Model(&model.Product{}).
		Joins("JOIN sale_items ON sale_items.product_id = products.id").
		Joins("JOIN sales ON sales.id = sale_items.sale_id AND sales.status = ?", model.SaleCompleted).
		Where("products.active = true")
	if len(exclude) > 0 {
		q = q.Where("products.id NOT IN ?", exclude)
	}
	err := q.Group("products.id").
		Order("SUM(sale_items.quantity) DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepo) ListRandomOutsideCategories(ctx context.Context, exclude []uuid.UUID, excludeCategories []uuid.UUID, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Where("active = true")
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	if len(excludeCategories) > 0 {
		q = q.Where("category_id NOT IN ?", excludeCategories)
	}
	err := q.Order("RANDOM()").Limit(limit).Find(&products).Error
	return products, err
}

func (r *productRepo) ListRandom(ctx context.Context, exclude []uuid.UUID, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Where("active = true")
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	err := q.Order("RANDOM()").Limit(limit).Find(&products).Error
	return products, err
}

func (r *productRepo) DecrementStockTx(tx *gorm.DB, id uuid.UUID, qty int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND active = true", id).
		Update("stock", gorm.Expr("stock + ?", delta)).Error
}
