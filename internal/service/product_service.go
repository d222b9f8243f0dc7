package service

import (
	"context"
	"fmt"

	"shopcore/internal/dto"
	"shopcore/internal/model"
	"shopcore/internal/repository"

	"github.com/google/uuid"
)

type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, req dto.AdjustStockRequest) (*dto.ProductResponse, error)
	StockMovements(ctx context.Context, id uuid.UUID, limit int) ([]model.StockMovement, error)
}

type productService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
	movementRepo repository.StockMovementRepository
}

func NewProductService(
	repo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	supplierRepo repository.SupplierRepository,
	movementRepo repository.StockMovementRepository,
) ProductService {
	return &productService{
		repo:         repo,
		categoryRepo: categoryRepo,
		supplierRepo: supplierRepo,
		movementRepo: movementRepo,
	}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	categoryID, supplierID, err := s.resolveRefs(ctx, req.CategoryID, req.SupplierID)
	if err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  categoryID,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		SupplierID:  supplierID,
		Active:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	categoryID, supplierID, err := s.resolveRefs(ctx, req.CategoryID, req.SupplierID)
	if err != nil {
		return nil, err
	}

	p.Name = req.Name
	p.Description = req.Description
	p.CategoryID = categoryID
	p.Price = req.Price
	p.ImageURL = req.ImageURL
	p.SupplierID = supplierID
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *productService) Reactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return s.repo.Reactivate(ctx, id)
}

// AdjustStock applies a manual delta and records the movement. Negative
// deltas may not take stock below zero.
func (s *productService) AdjustStock(ctx context.Context, id uuid.UUID, req dto.AdjustStockRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if !p.Active {
		return nil, fmt.Errorf("product %s is inactive: %w", p.Name, ErrConflict)
	}
	if p.Stock+req.Delta < 0 {
		return nil, fmt.Errorf("product %s: adjustment below zero: %w", p.Name, ErrInsufficientStock)
	}

	if err := s.repo.AdjustStock(ctx, id, req.Delta); err != nil {
		return nil, err
	}
	mov := &model.StockMovement{
		ProductID:   id,
		Kind:        "adjustment",
		Quantity:    req.Delta,
		StockBefore: p.Stock,
		StockAfter:  p.Stock + req.Delta,
		Reason:      req.Reason,
	}
	if err := s.movementRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	p.Stock += req.Delta
	return productToResponse(p), nil
}

func (s *productService) StockMovements(ctx context.Context, id uuid.UUID, limit int) ([]model.StockMovement, error) {
	if limit < 1 {
		limit = 50
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return s.movementRepo.ListByProduct(ctx, id, limit)
}

func (s *productService) resolveRefs(ctx context.Context, categoryID string, supplierID *string) (uuid.UUID, *uuid.UUID, error) {
	catID, err := uuid.Parse(categoryID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid category id: %w", ErrInvalidInput)
	}
	if _, err := s.categoryRepo.FindByID(ctx, catID); err != nil {
		return uuid.Nil, nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}

	var supID *uuid.UUID
	if supplierID != nil && *supplierID != "" {
		id, err := uuid.Parse(*supplierID)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("invalid supplier id: %w", ErrInvalidInput)
		}
		if _, err := s.supplierRepo.FindByID(ctx, id); err != nil {
			return uuid.Nil, nil, fmt.Errorf("supplier %s: %w", *supplierID, ErrNotFound)
		}
		supID = &id
	}
	return catID, supID, nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	var supplierID *string
	if p.SupplierID != nil {
		s := p.SupplierID.String()
		supplierID = &s
	}
	return &dto.ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID.String(),
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		SupplierID:  supplierID,
		Active:      p.Active,
	}
}
