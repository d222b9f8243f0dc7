package dto

import (
	"github.com/shopspring/decimal"
)

type AddCartItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid4"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Discount  decimal.Decimal `json:"discount" validate:"gte=0"`
}

type UpdateCartItemRequest struct {
	Quantity *int             `json:"quantity" validate:"omitempty,gt=0"`
	Discount *decimal.Decimal `json:"discount" validate:"omitempty,gte=0"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card transfer other"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
}

type CartItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	ID       string             `json:"id"`
	UserID   string             `json:"user_id"`
	Status   string             `json:"status"`
	Subtotal decimal.Decimal    `json:"subtotal"`
	Items    []CartItemResponse `json:"items"`
}

type CheckoutResponse struct {
	SaleID        string          `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
}
