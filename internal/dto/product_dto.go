package dto

import (
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description *string         `json:"description"`
	CategoryID  string          `json:"category_id" validate:"required,uuid4"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	ImageURL    *string         `json:"image_url"`
	SupplierID  *string         `json:"supplier_id" validate:"omitempty,uuid4"`
}

type UpdateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description *string         `json:"description"`
	CategoryID  string          `json:"category_id" validate:"required,uuid4"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0"`
	ImageURL    *string         `json:"image_url"`
	SupplierID  *string         `json:"supplier_id" validate:"omitempty,uuid4"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type ProductFilter struct {
	Name       string `form:"name"`
	CategoryID string `form:"category_id"`
	SupplierID string `form:"supplier_id"`
	Active     string `form:"active"` // "" (active only) | "false" | "all"
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	CategoryID  string          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    *string         `json:"image_url,omitempty"`
	SupplierID  *string         `json:"supplier_id,omitempty"`
	Active      bool            `json:"active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
