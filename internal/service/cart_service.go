package service

import (
	"context"
	"errors"
	"fmt"

	"shopcore/internal/dto"
	"shopcore/internal/model"
	"shopcore/internal/repository"
	"shopcore/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartService maintains the single active cart per user and its state
// machine: active → processed | abandoned | saved, saved → active,
// processed terminal.
type CartService interface {
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*dto.CartResponse, error)
	AddItem(ctx context.Context, userID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartResponse, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, req dto.UpdateCartItemRequest) (*dto.CartResponse, error)
	RemoveItem(ctx context.Context, itemID uuid.UUID) (*dto.CartResponse, error)
	Save(ctx context.Context, cartID uuid.UUID) error
	Reactivate(ctx context.Context, cartID uuid.UUID) error
	Abandon(ctx context.Context, cartID uuid.UUID) error
	Checkout(ctx context.Context, cartID uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type cartService struct {
	repo         repository.CartRepository
	productRepo  repository.ProductRepository
	saleRepo     repository.SaleRepository
	movementRepo repository.StockMovementRepository
	dispatcher   *worker.Dispatcher
	trigger      *worker.RecomputeTrigger
}

func NewCartService(
	repo repository.CartRepository,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	movementRepo repository.StockMovementRepository,
	dispatcher *worker.Dispatcher,
	trigger *worker.RecomputeTrigger,
) CartService {
	return &cartService{
		repo:         repo,
		productRepo:  productRepo,
		saleRepo:     saleRepo,
		movementRepo: movementRepo,
		dispatcher:   dispatcher,
		trigger:      trigger,
	}
}

// GetActiveCart returns the user's active cart, creating one when none
// exists. This is the only place carts are created, which keeps the
// one-active-cart-per-user invariant in a single code path.
func (s *cartService) GetActiveCart(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cartToResponse(cart), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &model.Cart{
		UserID:   userID,
		Status:   model.CartActive,
		Subtotal: decimal.Zero,
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cartToResponse(cart), nil
}

func (s *cartService) GetCart(ctx context.Context, cartID uuid.UUID) (*dto.CartResponse, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	return cartToResponse(cart), nil
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartResponse, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}

	cartResp, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	cartID := uuid.MustParse(cartResp.ID)

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, ErrNotFound)
	}
	if !product.Active {
		return nil, fmt.Errorf("product %s is inactive: %w", product.Name, ErrConflict)
	}

	// Stock is checked, never reserved, at cart-add time.
	existing, findErr := s.repo.FindItem(ctx, cartID, productID)
	newQty := req.Quantity
	if findErr == nil {
		newQty += existing.Quantity
	}
	if newQty > product.Stock {
		return nil, fmt.Errorf("product %s: requested %d, available %d: %w",
			product.Name, newQty, product.Stock, ErrInsufficientStock)
	}

	if findErr == nil {
		existing.Quantity = newQty
		existing.Subtotal = lineSubtotal(existing.UnitPrice, existing.Quantity, existing.Discount)
		if err := s.repo.UpdateItem(ctx, existing); err != nil {
			return nil, err
		}
	} else {
		// New line — snapshot the current unit price.
		item := &model.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			Discount:  req.Discount,
			Subtotal:  lineSubtotal(product.Price, req.Quantity, req.Discount),
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}

	if err := s.refreshSubtotal(ctx, cartID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, cartID)
}

func (s *cartService) UpdateItem(ctx context.Context, itemID uuid.UUID, req dto.UpdateCartItemRequest) (*dto.CartResponse, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}

	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
		}
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
		}
		if *req.Quantity > product.Stock {
			return nil, fmt.Errorf("product %s: requested %d, available %d: %w",
				product.Name, *req.Quantity, product.Stock, ErrInsufficientStock)
		}
		item.Quantity = *req.Quantity
	}
	if req.Discount != nil {
		item.Discount = *req.Discount
	}
	item.Subtotal = lineSubtotal(item.UnitPrice, item.Quantity, item.Discount)

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := s.refreshSubtotal(ctx, item.CartID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, item.CartID)
}

func (s *cartService) RemoveItem(ctx context.Context, itemID uuid.UUID) (*dto.CartResponse, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	cartID := item.CartID

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, err
	}
	if err := s.refreshSubtotal(ctx, cartID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, cartID)
}

func (s *cartService) Save(ctx context.Context, cartID uuid.UUID) error {
	return s.transition(ctx, cartID, model.CartActive, model.CartSaved)
}

func (s *cartService) Abandon(ctx context.Context, cartID uuid.UUID) error {
	return s.transition(ctx, cartID, model.CartActive, model.CartAbandoned)
}

// Reactivate moves a saved cart back to active. Rejected when the user
// already has another active cart — the one-active-cart invariant wins.
func (s *cartService) Reactivate(ctx context.Context, cartID uuid.UUID) error {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	if cart.Status != model.CartSaved {
		return fmt.Errorf("cart is %s, not saved: %w", cart.Status, ErrInvalidTransition)
	}
	if active, err := s.repo.FindActiveByUser(ctx, cart.UserID); err == nil && active.ID != cartID {
		return fmt.Errorf("user already has an active cart: %w", ErrConflict)
	}
	return s.repo.UpdateStatus(ctx, cartID, model.CartActive)
}

func (s *cartService) transition(ctx context.Context, cartID uuid.UUID, from, to string) error {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	if cart.Status != from {
		return fmt.Errorf("cart is %s, not %s: %w", cart.Status, from, ErrInvalidTransition)
	}
	return s.repo.UpdateStatus(ctx, cartID, to)
}

// ── Checkout ──────────────────────────────────────────────────────────────────
// Finalizes an active cart into a completed sale as one logically atomic
// unit: invoice number, sale header + line snapshots, conditional stock
// decrement per line, stock movement rows, cart → processed. Any
// insufficient-stock line rolls the whole thing back — partial decrements
// are never visible.

func (s *cartService) Checkout(ctx context.Context, cartID uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	if cart.Status != model.CartActive {
		return nil, fmt.Errorf("cart is %s: %w", cart.Status, ErrInvalidTransition)
	}
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
		discount = discount.Add(item.Discount)
	}
	if len(items) == 0 || subtotal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrEmptyCart
	}

	var sale model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		invoice, err := s.saleRepo.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}

		sale = model.Sale{
			InvoiceNumber: invoice,
			UserID:        cart.UserID,
			Subtotal:      subtotal,
			Discount:      discount,
			Total:         subtotal,
			PaymentMethod: req.PaymentMethod,
			Status:        model.SaleCompleted,
		}
		for _, item := range items {
			sale.Items = append(sale.Items, model.SaleItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Discount:  item.Discount,
				Subtotal:  item.Subtotal,
			})
		}
		if err := s.saleRepo.Create(ctx, tx, &sale); err != nil {
			return err
		}

		for _, item := range items {
			before, err := s.productRepo.FindByIDTx(tx, item.ProductID)
			if err != nil {
				return fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
			}
			if err := s.productRepo.DecrementStockTx(tx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					return fmt.Errorf("product %s: %w", before.Name, ErrInsufficientStock)
				}
				return err
			}
			saleRef := sale.ID
			mov := &model.StockMovement{
				ProductID:   item.ProductID,
				Kind:        "sale",
				Quantity:    -item.Quantity,
				StockBefore: before.Stock,
				StockAfter:  before.Stock - item.Quantity,
				Reason:      fmt.Sprintf("Checkout %s", sale.InvoiceNumber),
				ReferenceID: &saleRef,
			}
			if err := s.movementRepo.CreateTx(tx, mov); err != nil {
				return err
			}
		}

		return s.repo.UpdateStatusTx(tx, cartID, model.CartProcessed)
	})
	if txErr != nil {
		return nil, txErr
	}

	// Post-commit, best effort: recompute trigger and confirmation email.
	s.trigger.SaleCompleted(ctx)
	if s.dispatcher != nil && req.CustomerEmail != "" {
		_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
			ToEmail: req.CustomerEmail,
			Subject: fmt.Sprintf("Purchase confirmation %s", sale.InvoiceNumber),
			Body:    fmt.Sprintf("Thank you for your purchase. Invoice %s, total %s.", sale.InvoiceNumber, sale.Total.StringFixed(2)),
		})
	}

	return &dto.CheckoutResponse{
		SaleID:        sale.ID.String(),
		InvoiceNumber: sale.InvoiceNumber,
		Total:         sale.Total,
	}, nil
}

// refreshSubtotal re-reads all lines and sums them in application code —
// deliberately not a DB aggregate, so the cached value matches what the
// service just wrote regardless of aggregate semantics.
func (s *cartService) refreshSubtotal(ctx context.Context, cartID uuid.UUID) error {
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return err
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	return s.repo.UpdateSubtotal(ctx, cartID, subtotal)
}

func lineSubtotal(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
}

func cartToResponse(c *model.Cart) *dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, dto.CartItemResponse{
			ID:          item.ID.String(),
			ProductID:   item.ProductID.String(),
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			Subtotal:    item.Subtotal,
		})
	}
	return &dto.CartResponse{
		ID:       c.ID.String(),
		UserID:   c.UserID.String(),
		Status:   c.Status,
		Subtotal: c.Subtotal,
		Items:    items,
	}
}
