package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopcore/internal/dto"
	"shopcore/internal/model"
	"shopcore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService creates orders with the atomic stock decrement and guards
// the order status machine: pending → paid | cancelled | completed,
// cancelled terminal.
type OrderService interface {
	Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error)
	List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*dto.OrderResponse, error)
}

type orderService struct {
	repo         repository.OrderRepository
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
}

func NewOrderService(
	repo repository.OrderRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
) OrderService {
	return &orderService{repo: repo, productRepo: productRepo, movementRepo: movementRepo}
}

// Create builds the order header and lines and decrements stock for every
// line in one transaction. Insufficient stock on any line rolls back the
// whole order — partial decrements are never visible, and two orders racing
// for the last unit resolve to exactly one success.
func (s *orderService) Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("order has no items: %w", ErrInvalidInput)
	}

	// Resolve products and capture unit prices before opening the tx.
	type resolvedItem struct {
		productID uuid.UUID
		name      string
		price     decimal.Decimal
		quantity  int
	}
	var resolved []resolvedItem
	total := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
		}
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
		}
		p, err := s.productRepo.FindByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
		}
		if !p.Active {
			return nil, fmt.Errorf("product %s is inactive: %w", p.Name, ErrConflict)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		resolved = append(resolved, resolvedItem{
			productID: pid,
			name:      p.Name,
			price:     p.Price,
			quantity:  item.Quantity,
		})
	}

	var order model.Order
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		order = model.Order{
			UserID: userID,
			Status: model.OrderPending,
			Total:  total,
		}
		for _, r := range resolved {
			order.Items = append(order.Items, model.OrderItem{
				ProductID: r.productID,
				Quantity:  r.quantity,
				UnitPrice: r.price,
			})
		}
		if err := s.repo.Create(ctx, tx, &order); err != nil {
			return err
		}

		for _, r := range resolved {
			before, err := s.productRepo.FindByIDTx(tx, r.productID)
			if err != nil {
				return fmt.Errorf("product %s: %w", r.productID, ErrNotFound)
			}
			if err := s.productRepo.DecrementStockTx(tx, r.productID, r.quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					return fmt.Errorf("product %s: %w", r.name, ErrInsufficientStock)
				}
				return err
			}
			orderRef := order.ID
			mov := &model.StockMovement{
				ProductID:   r.productID,
				Kind:        "order",
				Quantity:    -r.quantity,
				StockBefore: before.Stock,
				StockAfter:  before.Stock - r.quantity,
				Reason:      fmt.Sprintf("Order %s", order.ID),
				ReferenceID: &orderRef,
			}
			if err := s.movementRepo.CreateTx(tx, mov); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return orderToResponse(&order), nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return orderToResponse(order), nil
}

func (s *orderService) List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, *orderToResponse(&orders[i]))
	}
	return &dto.OrderListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

var validOrderStatuses = map[string]bool{
	model.OrderPending:   true,
	model.OrderPaid:      true,
	model.OrderCancelled: true,
	model.OrderCompleted: true,
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*dto.OrderResponse, error) {
	if !validOrderStatuses[status] {
		return nil, fmt.Errorf("unknown order status %q: %w", status, ErrInvalidInput)
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}

	// cancelled is terminal — setting cancelled again is an accepted no-op.
	if order.Status == model.OrderCancelled && status != model.OrderCancelled {
		return nil, fmt.Errorf("order is cancelled: %w", ErrInvalidTransition)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.Status = status
	return orderToResponse(order), nil
}

func orderToResponse(o *model.Order) *dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, dto.OrderItemResponse{
			ProductID:   item.ProductID.String(),
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return &dto.OrderResponse{
		ID:        o.ID.String(),
		UserID:    o.UserID.String(),
		Status:    o.Status,
		Total:     o.Total,
		Items:     items,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
