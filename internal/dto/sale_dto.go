package dto

import (
	"github.com/shopspring/decimal"
)

type SaleItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid4"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Discount  decimal.Decimal `json:"discount" validate:"gte=0"`
}

type RecordSaleRequest struct {
	UserID        string            `json:"user_id" validate:"required,uuid4"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card transfer other"`
	CustomerEmail *string           `json:"customer_email" validate:"omitempty,email"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type SaleFilter struct {
	UserID string `form:"user_id"`
	Status string `form:"status"`
	Date   string `form:"date"` // YYYY-MM-DD
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type SaleItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	UserID        string             `json:"user_id"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	Status        string             `json:"status"`
	Items         []SaleItemResponse `json:"items"`
	CreatedAt     string             `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
