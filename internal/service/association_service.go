package service

import (
	"context"
	"errors"
	"fmt"

	"shopcore/internal/dto"
	"shopcore/internal/model"
	"shopcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxUserRecommendations caps the candidate pool materialized per user
// during regeneration.
const maxUserRecommendations = 10

// AssociationService owns the persisted pairwise association cache and the
// per-user materialized recommendations built from it. Rebuild implements
// the batch recompute job dispatched by the worker pool.
type AssociationService interface {
	// Rebuild recomputes the pairwise cache from completed-sale history and
	// returns the number of upserted pairs. Upsert-only: reruns are idempotent
	// and never delete rows.
	Rebuild(ctx context.Context) (int, error)

	// GenerateForUser refreshes the user's materialized recommendations from
	// their purchase history and the current cache.
	GenerateForUser(ctx context.Context, userID uuid.UUID) (int, error)

	ListForUser(ctx context.Context, userID uuid.UUID, filter dto.UserRecommendationFilter) ([]dto.RecommendationResponse, error)
	MarkViewed(ctx context.Context, recommendationID uuid.UUID) error

	CreateAssociation(ctx context.Context, req dto.CreateAssociationRequest) (*dto.AssociationResponse, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, minStrength float64, limit int) ([]dto.AssociationResponse, error)
}

type associationService struct {
	repo        repository.RecommendationRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

func NewAssociationService(
	repo repository.RecommendationRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
) AssociationService {
	return &associationService{repo: repo, orderRepo: orderRepo, productRepo: productRepo}
}

// Rebuild normalizes pair co-occurrence counts by the maximum count, so the
// most frequent pair always lands at strength 1.0, and writes every pair in
// both directions.
func (s *associationService) Rebuild(ctx context.Context) (int, error) {
	pairs, err := s.repo.ListPairCounts(ctx)
	if err != nil {
		return 0, err
	}
	if len(pairs) == 0 {
		log.Info().Msg("association rebuild: no qualifying pairs")
		return 0, nil
	}

	var maxFreq int64
	for _, p := range pairs {
		if p.Frequency > maxFreq {
			maxFreq = p.Frequency
		}
	}

	upserted := 0
	for _, p := range pairs {
		strength := float64(p.Frequency) / float64(maxFreq)
		if err := s.repo.UpsertAssociation(ctx, p.ProductID, p.AssociatedProductID, strength); err != nil {
			return upserted, err
		}
		if err := s.repo.UpsertAssociation(ctx, p.AssociatedProductID, p.ProductID, strength); err != nil {
			return upserted, err
		}
		upserted += 2
	}
	log.Info().Int("pairs", len(pairs)).Int("rows", upserted).Msg("association rebuild finished")
	return upserted, nil
}

// GenerateForUser seeds from the products the user has ordered, pulls the
// strongest associated candidates not already purchased, and upserts a
// recommendation record per candidate. A changed score resets the viewed
// flag so the recommendation resurfaces.
func (s *associationService) GenerateForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	purchased, err := s.orderRepo.ListPurchasedProductIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(purchased) == 0 {
		return 0, nil
	}

	candidates, err := s.repo.ListAssociatedForProducts(ctx, purchased, maxUserRecommendations)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, c := range candidates {
		rec, err := s.repo.FindRecommendation(ctx, userID, c.ProductID)
		switch {
		case err == nil:
			if rec.Score == c.MaxStrength {
				continue
			}
			rec.Score = c.MaxStrength
			rec.Viewed = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = &model.ProductRecommendation{
				UserID:    userID,
				ProductID: c.ProductID,
				Score:     c.MaxStrength,
			}
		default:
			return written, err
		}
		if err := s.repo.SaveRecommendation(ctx, rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (s *associationService) ListForUser(ctx context.Context, userID uuid.UUID, filter dto.UserRecommendationFilter) ([]dto.RecommendationResponse, error) {
	if filter.Limit < 1 {
		filter.Limit = maxUserRecommendations
	}
	if filter.MinScore < 0 || filter.MinScore > 1 {
		return nil, fmt.Errorf("min_score must be within [0,1]: %w", ErrInvalidInput)
	}
	recs, err := s.repo.ListRecommendations(ctx, userID, filter.Limit, filter.MinScore, filter.IncludeViewed)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		name := ""
		if rec.Product != nil {
			name = rec.Product.Name
		}
		out = append(out, dto.RecommendationResponse{
			ID:          rec.ID.String(),
			ProductID:   rec.ProductID.String(),
			ProductName: name,
			Score:       rec.Score,
			Viewed:      rec.Viewed,
		})
	}
	return out, nil
}

// MarkViewed is idempotent: marking an already-viewed recommendation
// succeeds without effect.
func (s *associationService) MarkViewed(ctx context.Context, recommendationID uuid.UUID) error {
	if _, err := s.repo.FindRecommendationByID(ctx, recommendationID); err != nil {
		return fmt.Errorf("recommendation %s: %w", recommendationID, ErrNotFound)
	}
	return s.repo.MarkViewed(ctx, recommendationID)
}

// CreateAssociation upserts one directional pair by hand. Manual entries are
// overwritten by the next batch rebuild if the pair qualifies there.
func (s *associationService) CreateAssociation(ctx context.Context, req dto.CreateAssociationRequest) (*dto.AssociationResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	associatedID, err := uuid.Parse(req.AssociatedProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid associated product id: %w", ErrInvalidInput)
	}
	if productID == associatedID {
		return nil, ErrSelfAssociation
	}
	for _, id := range []uuid.UUID{productID, associatedID} {
		if _, err := s.productRepo.FindByID(ctx, id); err != nil {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
	}

	if err := s.repo.UpsertAssociation(ctx, productID, associatedID, req.Strength); err != nil {
		return nil, err
	}
	assoc, err := s.repo.FindAssociation(ctx, productID, associatedID)
	if err != nil {
		return nil, err
	}
	return associationToResponse(assoc), nil
}

func (s *associationService) ListForProduct(ctx context.Context, productID uuid.UUID, minStrength float64, limit int) ([]dto.AssociationResponse, error) {
	if limit < 1 {
		limit = maxUserRecommendations
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	assocs, err := s.repo.ListAssociationsForProduct(ctx, productID, minStrength, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AssociationResponse, 0, len(assocs))
	for i := range assocs {
		out = append(out, *associationToResponse(&assocs[i]))
	}
	return out, nil
}

func associationToResponse(a *model.ProductAssociation) *dto.AssociationResponse {
	return &dto.AssociationResponse{
		ID:                  a.ID.String(),
		ProductID:           a.ProductID.String(),
		AssociatedProductID: a.AssociatedProductID.String(),
		Strength:            a.Strength,
	}
}
