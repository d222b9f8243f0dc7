package repository

import (
	"context"
	"fmt"

	"shopcore/internal/dto"
	"shopcore/internal/mining"
	"shopcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepository is the data access contract for completed point-of-sale
// transactions — the association miner's corpus.
type SaleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error)

	// ListCompletedTransactions reduces every completed sale to its distinct
	// product set, ordered by sale creation time for stable mining input.
	ListCompletedTransactions(ctx context.Context) ([]mining.Transaction, error)

	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return tx.WithContext(ctx).Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Items.Product").Preload("User").First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{})
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items.Product").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&sales).Error
	return sales, total, err
}

// NextInvoiceNumber yields FACT-000001 style numbers from a dedicated
// PostgreSQL sequence, atomic within the surrounding transaction.
func (r *saleRepo) NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	var num int64
	if err := tx.WithContext(ctx).Raw("SELECT nextval('sales_invoice_seq')").Scan(&num).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("FACT-%06d", num), nil
}

func (r *saleRepo) ListCompletedTransactions(ctx context.Context) ([]mining.Transaction, error) {
	rows := []struct {
		SaleID    uuid.UUID
		ProductID uuid.UUID
	}{}
	err := r.db.WithContext(ctx).Model(&model.SaleItem{}).
		Select("sale_items.sale_id, sale_items.product_id").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.status = ?", model.SaleCompleted).
		Order("sales.created_at ASC, sale_items.sale_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var txns []mining.Transaction
	idx := make(map[uuid.UUID]int)
	for _, row := range rows {
		i, ok := idx[row.SaleID]
		if !ok {
			i = len(txns)
			idx[row.SaleID] = i
			txns = append(txns, mining.Transaction{ID: row.SaleID})
		}
		txns[i].Products = append(txns[i].Products, row.ProductID)
	}
	return txns, nil
}
