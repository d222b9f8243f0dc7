package service

import (
	"context"
	"fmt"
	"sort"

	"shopcore/internal/mining"
	"shopcore/internal/model"
	"shopcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RecommendationService serves the rule-based recommendations: mined
// association rules ranked by lift, topped up with fallbacks so callers
// always get a usable list. Recommendations degrade, they never fail — any
// mining or history error falls through to the fallback chain.
type RecommendationService interface {
	ForProduct(ctx context.Context, productID uuid.UUID, max int) ([]model.ProductSummary, error)
	ForCart(ctx context.Context, productIDs []uuid.UUID, max int) ([]model.ProductSummary, error)
}

type recommendationService struct {
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	thresholds  mining.Thresholds
	defaultMax  int
}

func NewRecommendationService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	thresholds mining.Thresholds,
	defaultMax int,
) RecommendationService {
	if defaultMax < 1 {
		defaultMax = 4
	}
	return &recommendationService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		thresholds:  thresholds,
		defaultMax:  defaultMax,
	}
}

// ForProduct recommends products for a detail page: rule consequents whose
// antecedent contains the seed, ranked by lift, then same-category products,
// then popular ones. The seed never appears in its own recommendations.
func (s *recommendationService) ForProduct(ctx context.Context, productID uuid.UUID, max int) ([]model.ProductSummary, error) {
	if max < 1 {
		max = s.defaultMax
	}
	seed, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	picked := newPickSet(productID)
	for _, id := range s.ruleConsequents(ctx, func(r mining.Rule) bool {
		return r.AntecedentContains(productID)
	}) {
		picked.add(id)
		if picked.len() >= max {
			break
		}
	}

	// Category fallback, then popularity, for whatever the rules left open.
	if picked.len() < max {
		same, err := s.productRepo.ListActiveByCategory(ctx, seed.CategoryID, picked.all(), max-picked.len())
		if err == nil {
			for _, p := range same {
				picked.add(p.ID)
			}
		}
	}
	if picked.len() < max {
		popular, err := s.productRepo.ListPopular(ctx, picked.all(), max-picked.len())
		if err == nil {
			for _, p := range popular {
				picked.add(p.ID)
			}
		}
	}

	return s.resolve(ctx, picked.ordered)
}

// ForCart recommends complements for the cart as a whole. An empty cart gets
// popular products. Deficits are covered with products from categories not
// already in the cart, then popular, then random active products.
func (s *recommendationService) ForCart(ctx context.Context, productIDs []uuid.UUID, max int) ([]model.ProductSummary, error) {
	if max < 1 {
		max = s.defaultMax
	}
	if len(productIDs) == 0 {
		popular, err := s.productRepo.ListPopular(ctx, nil, max)
		if err != nil {
			return nil, err
		}
		return summaries(popular), nil
	}

	inCart := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		inCart[id] = true
	}

	picked := newPickSet(productIDs...)
	for _, id := range s.ruleConsequents(ctx, func(r mining.Rule) bool {
		for _, a := range r.Antecedent {
			if inCart[a] {
				return true
			}
		}
		return false
	}) {
		picked.add(id)
		if picked.len() >= max {
			break
		}
	}

	// Diversity fallback: roughly half the deficit from categories the cart
	// does not touch, the rest from popularity, then anything active.
	if picked.len() < max {
		cartCategories := s.categoriesOf(ctx, productIDs)
		deficit := max - picked.len()
		outside, err := s.productRepo.ListRandomOutsideCategories(ctx, picked.all(), cartCategories, (deficit+1)/2)
		if err == nil {
			for _, p := range outside {
				picked.add(p.ID)
			}
		}
	}
	if picked.len() < max {
		popular, err := s.productRepo.ListPopular(ctx, picked.all(), max-picked.len())
		if err == nil {
			for _, p := range popular {
				picked.add(p.ID)
			}
		}
	}
	if picked.len() < max {
		random, err := s.productRepo.ListRandom(ctx, picked.all(), max-picked.len())
		if err == nil {
			for _, p := range random {
				picked.add(p.ID)
			}
		}
	}

	return s.resolve(ctx, picked.ordered)
}

// ruleConsequents mines the completed-sale history and returns consequent
// product ids of matching rules, best lift first, deduplicated. Errors are
// logged and yield an empty slice — the fallbacks take over.
func (s *recommendationService) ruleConsequents(ctx context.Context, match func(mining.Rule) bool) []uuid.UUID {
	txns, err := s.saleRepo.ListCompletedTransactions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading sale history for mining failed, using fallbacks")
		return nil
	}
	rules := mining.Mine(txns, s.thresholds)

	matched := rules[:0:0]
	for _, r := range rules {
		if match(r) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Lift > matched[j].Lift })

	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, r := range matched {
		for _, c := range r.Consequent {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func (s *recommendationService) categoriesOf(ctx context.Context, productIDs []uuid.UUID) []uuid.UUID {
	products, err := s.productRepo.ListByIDs(ctx, productIDs)
	if err != nil {
		return nil
	}
	var cats []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, p := range products {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			cats = append(cats, p.CategoryID)
		}
	}
	return cats
}

// resolve loads the picked products and returns their summaries, preserving
// pick order and dropping anything inactive or since deleted.
func (s *recommendationService) resolve(ctx context.Context, ids []uuid.UUID) ([]model.ProductSummary, error) {
	if len(ids) == 0 {
		return []model.ProductSummary{}, nil
	}
	products, err := s.productRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	out := make([]model.ProductSummary, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.Active {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

func summaries(products []model.Product) []model.ProductSummary {
	out := make([]model.ProductSummary, 0, len(products))
	for i := range products {
		out = append(out, products[i].Summary())
	}
	return out
}

// pickSet accumulates recommendation candidates in order while excluding
// the seeds and rejecting duplicates.
type pickSet struct {
	exclude map[uuid.UUID]bool
	ordered []uuid.UUID
}

func newPickSet(seeds ...uuid.UUID) *pickSet {
	ex := make(map[uuid.UUID]bool, len(seeds))
	for _, s := range seeds {
		ex[s] = true
	}
	return &pickSet{exclude: ex}
}

func (p *pickSet) add(id uuid.UUID) {
	if p.exclude[id] {
		return
	}
	p.exclude[id] = true
	p.ordered = append(p.ordered, id)
}

func (p *pickSet) len() int { return len(p.ordered) }

// all returns everything to exclude from the next fallback query: the seeds
// plus everything already picked.
func (p *pickSet) all() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(p.exclude))
	for id := range p.exclude {
		out = append(out, id)
	}
	return out
}
