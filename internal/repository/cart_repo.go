package repository

import (
	"context"

	"shopcore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartRepository is the data access contract for carts and their lines.
type CartRepository interface {
	Create(ctx context.Context, c *model.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cart, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
	UpdateSubtotal(ctx context.Context, id uuid.UUID, subtotal decimal.Decimal) error

	ListItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*model.CartItem, error)
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error)
	CreateItem(ctx context.Context, item *model.CartItem) error
	UpdateItem(ctx context.Context, item *model.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	DB() *gorm.DB
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepository(db *gorm.DB) CartRepository { return &cartRepo{db: db} }

func (r *cartRepo) DB() *gorm.DB { return r.db }

func (r *cartRepo) Create(ctx context.Context, c *model.Cart) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cartRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	var c model.Cart
	err := r.db.WithContext(ctx).Preload("Items.Product").First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cartRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var c model.Cart
	err := r.db.WithContext(ctx).Preload("Items.Product").
		Where("user_id = ? AND status = ?", userID, model.CartActive).
		First(&c).Error
	return &c, err
}

func (r *cartRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&model.Cart{}).Where("id = ?", id).Update("status", status).Error
}

func (r *cartRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.Cart{}).Where("id = ?", id).Update("status", status).Error
}

func (r *cartRepo) UpdateSubtotal(ctx context.Context, id uuid.UUID, subtotal decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Cart{}).Where("id = ?", id).Update("subtotal", subtotal).Error
}

func (r *cartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *cartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
	return &item, err
}

func (r *cartRepo) FindItemByID(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error
	return &item, err
}

func (r *cartRepo) CreateItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *cartRepo) UpdateItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *cartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.CartItem{}, "id = ?", itemID).Error
}
