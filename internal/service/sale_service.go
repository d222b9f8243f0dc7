package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopcore/internal/dto"
	"shopcore/internal/model"
	"shopcore/internal/repository"
	"shopcore/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleService records point-of-sale transactions directly, without going
// through a cart. Recorded sales are completed immediately and feed the
// association miner the same way checkout sales do.
type SaleService interface {
	Record(ctx context.Context, req dto.RecordSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	repo         repository.SaleRepository
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	dispatcher   *worker.Dispatcher
	trigger      *worker.RecomputeTrigger
}

func NewSaleService(
	repo repository.SaleRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	dispatcher *worker.Dispatcher,
	trigger *worker.RecomputeTrigger,
) SaleService {
	return &saleService{
		repo:         repo,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		dispatcher:   dispatcher,
		trigger:      trigger,
	}
}

func (s *saleService) Record(ctx context.Context, req dto.RecordSaleRequest) (*dto.SaleResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("sale has no items: %w", ErrInvalidInput)
	}

	type resolvedItem struct {
		productID uuid.UUID
		name      string
		quantity  int
		unitPrice decimal.Decimal
		discount  decimal.Decimal
		subtotal  decimal.Decimal
	}
	var resolved []resolvedItem
	subtotal := decimal.Zero
	discount := decimal.Zero
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
		line := lineSubtotal(p.Price, item.Quantity, item.Discount)
		resolved = append(resolved, resolvedItem{
			productID: pid,
			name:      p.Name,
			quantity:  item.Quantity,
			unitPrice: p.Price,
			discount:  item.Discount,
			subtotal:  line,
		})
		subtotal = subtotal.Add(line)
		discount = discount.Add(item.Discount)
	}
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("sale total must be positive: %w", ErrInvalidInput)
	}

	var sale model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		invoice, err := s.repo.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		sale = model.Sale{
			InvoiceNumber: invoice,
			UserID:        userID,
			Subtotal:      subtotal,
			Discount:      discount,
			Total:         subtotal,
			PaymentMethod: req.PaymentMethod,
			Status:        model.SaleCompleted,
		}
		for _, r := range resolved {
			sale.Items = append(sale.Items, model.SaleItem{
				ProductID: r.productID,
				Quantity:  r.quantity,
				UnitPrice: r.unitPrice,
				Discount:  r.discount,
				Subtotal:  r.subtotal,
			})
		}
		if err := s.repo.Create(ctx, tx, &sale); err != nil {
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
			saleRef := sale.ID
			mov := &model.StockMovement{
				ProductID:   r.productID,
				Kind:        "sale",
				Quantity:    -r.quantity,
				StockBefore: before.Stock,
				StockAfter:  before.Stock - r.quantity,
				Reason:      fmt.Sprintf("Sale %s", sale.InvoiceNumber),
				ReferenceID: &saleRef,
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

	s.trigger.SaleCompleted(ctx)
	if s.dispatcher != nil && req.CustomerEmail != nil && *req.CustomerEmail != "" {
		_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
			ToEmail: *req.CustomerEmail,
			Subject: fmt.Sprintf("Purchase confirmation %s", sale.InvoiceNumber),
			Body:    fmt.Sprintf("Thank you for your purchase. Invoice %s, total %s.", sale.InvoiceNumber, sale.Total.StringFixed(2)),
		})
	}

	return saleToResponse(&sale), nil
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func saleToResponse(sale *model.Sale) *dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, dto.SaleItemResponse{
			ProductID:   item.ProductID.String(),
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			Subtotal:    item.Subtotal,
		})
	}
	return &dto.SaleResponse{
		ID:            sale.ID.String(),
		InvoiceNumber: sale.InvoiceNumber,
		UserID:        sale.UserID.String(),
		Subtotal:      sale.Subtotal,
		Discount:      sale.Discount,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		Status:        sale.Status,
		Items:         items,
		CreatedAt:     sale.CreatedAt.UTC().Format(time.RFC3339),
	}
}
