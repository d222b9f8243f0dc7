package service

import (
	"errors"
	"fmt"
)

// Service-boundary error taxonomy. Handlers translate these to HTTP statuses;
// inside services they compose with %w wrapping.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("invalid state transition: %w", ErrConflict)
	ErrSelfAssociation   = fmt.Errorf("product cannot be associated with itself: %w", ErrConflict)
	ErrEmptyCart         = fmt.Errorf("cart is empty: %w", ErrConflict)
)
