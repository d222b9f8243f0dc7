package service_test

// In-memory repository stubs for service unit tests. Transaction-scoped
// methods accept a nil *gorm.DB because runTx short-circuits when the
// repository has no real database behind it.

import (
	"context"
	"fmt"
	"sort"

	"shopcore/internal/dto"
	"shopcore/internal/mining"
	"shopcore/internal/model"
	"shopcore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Product repository stub ───────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
	// popularity ranking consulted by ListPopular, most popular first
	popular []uuid.UUID
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) seed(name string, price float64, stock int, categoryID uuid.UUID) *model.Product {
	p := &model.Product{
		ID:         uuid.New(),
		Name:       name,
		CategoryID: categoryID,
		Price:      decimal.NewFromFloat(price),
		Stock:      stock,
		Active:     true,
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.products {
		if filter.Active == "" && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if p, ok := r.products[id]; ok {
		p.Active = false
	}
	return nil
}

func (r *stubProductRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	if p, ok := r.products[id]; ok {
		p.Active = true
	}
	return nil
}

func (r *stubProductRepo) ListActiveByCategory(_ context.Context, categoryID uuid.UUID, exclude []uuid.UUID, limit int) ([]model.Product, error) {
	excluded := idSet(exclude)
	var out []model.Product
	for _, p := range r.products {
		if p.CategoryID == categoryID && p.Active && !excluded[p.ID] {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return capSlice(out, limit), nil
}

func (r *stubProductRepo) ListPopular(_ context.Context, exclude []uuid.UUID, limit int) ([]model.Product, error) {
	excluded := idSet(exclude)
	var out []model.Product
	for _, id := range r.popular {
		p, ok := r.products[id]
		if !ok || !p.Active || excluded[p.ID] {
			continue
		}
		out = append(out, *p)
	}
	return capSlice(out, limit), nil
}

func (r *stubProductRepo) ListRandomOutsideCategories(_ context.Context, exclude []uuid.UUID, excludeCategories []uuid.UUID, limit int) ([]model.Product, error) {
	excluded := idSet(exclude)
	cats := idSet(excludeCategories)
	var out []model.Product
	for _, p := range r.products {
		if p.Active && !excluded[p.ID] && !cats[p.CategoryID] {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return capSlice(out, limit), nil
}

func (r *stubProductRepo) ListRandom(_ context.Context, exclude []uuid.UUID, limit int) ([]model.Product, error) {
	return r.ListRandomOutsideCategories(context.Background(), exclude, nil, limit)
}

func (r *stubProductRepo) DecrementStockTx(_ *gorm.DB, id uuid.UUID, qty int) error {
	p, ok := r.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrStockConflict
	}
	p.Stock -= qty
	return nil
}

func (r *stubProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) error {
	if p, ok := r.products[id]; ok && p.Active {
		p.Stock += delta
	}
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Cart repository stub ──────────────────────────────────────────────────────

type stubCartRepo struct {
	carts map[uuid.UUID]*model.Cart
	items map[uuid.UUID]*model.CartItem
	// insertion-ordered item ids, stands in for ORDER BY created_at
	itemOrder []uuid.UUID
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		carts: make(map[uuid.UUID]*model.Cart),
		items: make(map[uuid.UUID]*model.CartItem),
	}
}

func (r *stubCartRepo) Create(_ context.Context, c *model.Cart) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.carts[c.ID] = c
	return nil
}

func (r *stubCartRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cart, error) {
	c, ok := r.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	copied.Items, _ = r.ListItems(context.Background(), id)
	return &copied, nil
}

func (r *stubCartRepo) FindActiveByUser(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	for id, c := range r.carts {
		if c.UserID == userID && c.Status == model.CartActive {
			return r.FindByID(context.Background(), id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCartRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	c, ok := r.carts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	return nil
}

func (r *stubCartRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string) error {
	return r.UpdateStatus(context.Background(), id, status)
}

func (r *stubCartRepo) UpdateSubtotal(_ context.Context, id uuid.UUID, subtotal decimal.Decimal) error {
	c, ok := r.carts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Subtotal = subtotal
	return nil
}

func (r *stubCartRepo) ListItems(_ context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, id := range r.itemOrder {
		if item, ok := r.items[id]; ok && item.CartID == cartID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubCartRepo) FindItem(_ context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	for _, item := range r.items {
		if item.CartID == cartID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCartRepo) FindItemByID(_ context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (r *stubCartRepo) CreateItem(_ context.Context, item *model.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = item
	r.itemOrder = append(r.itemOrder, item.ID)
	return nil
}

func (r *stubCartRepo) UpdateItem(_ context.Context, item *model.CartItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *stubCartRepo) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	delete(r.items, itemID)
	return nil
}

func (r *stubCartRepo) DB() *gorm.DB { return nil }

var _ repository.CartRepository = (*stubCartRepo)(nil)

// ── Sale repository stub ──────────────────────────────────────────────────────

type stubSaleRepo struct {
	sales      map[uuid.UUID]*model.Sale
	saleOrder  []uuid.UUID
	invoiceSeq int
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) Create(_ context.Context, _ *gorm.DB, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	r.saleOrder = append(r.saleOrder, s.ID)
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) List(_ context.Context, _ dto.SaleFilter) ([]model.Sale, int64, error) {
	var out []model.Sale
	for _, id := range r.saleOrder {
		out = append(out, *r.sales[id])
	}
	return out, int64(len(out)), nil
}

func (r *stubSaleRepo) NextInvoiceNumber(_ context.Context, _ *gorm.DB) (string, error) {
	r.invoiceSeq++
	return fmt.Sprintf("FACT-%06d", r.invoiceSeq), nil
}

func (r *stubSaleRepo) ListCompletedTransactions(_ context.Context) ([]mining.Transaction, error) {
	var txns []mining.Transaction
	for _, id := range r.saleOrder {
		s := r.sales[id]
		if s.Status != model.SaleCompleted {
			continue
		}
		t := mining.Transaction{ID: s.ID}
		for _, item := range s.Items {
			t.Products = append(t.Products, item.ProductID)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// ── Order repository stub ─────────────────────────────────────────────────────

type stubOrderRepo struct {
	orders     map[uuid.UUID]*model.Order
	orderOrder []uuid.UUID
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (r *stubOrderRepo) Create(_ context.Context, _ *gorm.DB, o *model.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = o
	r.orderOrder = append(r.orderOrder, o.ID)
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (r *stubOrderRepo) List(_ context.Context, _ dto.OrderFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, id := range r.orderOrder {
		out = append(out, *r.orders[id])
	}
	return out, int64(len(out)), nil
}

func (r *stubOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	o, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	return nil
}

func (r *stubOrderRepo) ListPurchasedProductIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, oid := range r.orderOrder {
		o := r.orders[oid]
		if o.UserID != userID {
			continue
		}
		for _, item := range o.Items {
			if !seen[item.ProductID] {
				seen[item.ProductID] = true
				ids = append(ids, item.ProductID)
			}
		}
	}
	return ids, nil
}

func (r *stubOrderRepo) DB() *gorm.DB { return nil }

var _ repository.OrderRepository = (*stubOrderRepo)(nil)

// ── Stock movement repository stub ────────────────────────────────────────────

type stubMovementRepo struct {
	movements []model.StockMovement
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) Create(_ context.Context, m *model.StockMovement) error {
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) ListByProduct(_ context.Context, productID uuid.UUID, _ int) ([]model.StockMovement, error) {
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

// ── Recommendation repository stub ────────────────────────────────────────────

type pairKey struct{ product, associated uuid.UUID }

type stubRecommendationRepo struct {
	assocs     map[pairKey]*model.ProductAssociation
	assocOrder []pairKey
	recs       map[uuid.UUID]*model.ProductRecommendation
	recOrder   []uuid.UUID
	pairCounts []repository.PairCount
}

func newStubRecommendationRepo() *stubRecommendationRepo {
	return &stubRecommendationRepo{
		assocs: make(map[pairKey]*model.ProductAssociation),
		recs:   make(map[uuid.UUID]*model.ProductRecommendation),
	}
}

func (r *stubRecommendationRepo) FindAssociation(_ context.Context, productID, associatedID uuid.UUID) (*model.ProductAssociation, error) {
	a, ok := r.assocs[pairKey{productID, associatedID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *stubRecommendationRepo) UpsertAssociation(_ context.Context, productID, associatedID uuid.UUID, strength float64) error {
	key := pairKey{productID, associatedID}
	if a, ok := r.assocs[key]; ok {
		a.Strength = strength
		return nil
	}
	r.assocs[key] = &model.ProductAssociation{
		ID:                  uuid.New(),
		ProductID:           productID,
		AssociatedProductID: associatedID,
		Strength:            strength,
	}
	r.assocOrder = append(r.assocOrder, key)
	return nil
}

func (r *stubRecommendationRepo) ListAssociationsForProduct(_ context.Context, productID uuid.UUID, minStrength float64, limit int) ([]model.ProductAssociation, error) {
	var out []model.ProductAssociation
	for _, key := range r.assocOrder {
		a := r.assocs[key]
		if a.ProductID == productID && a.Strength >= minStrength {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return capSlice(out, limit), nil
}

func (r *stubRecommendationRepo) ListAssociatedForProducts(_ context.Context, seed []uuid.UUID, limit int) ([]repository.AssociatedProduct, error) {
	seeds := idSet(seed)
	max := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, key := range r.assocOrder {
		a := r.assocs[key]
		if !seeds[a.ProductID] || seeds[a.AssociatedProductID] {
			continue
		}
		if _, ok := max[a.AssociatedProductID]; !ok {
			order = append(order, a.AssociatedProductID)
		}
		if a.Strength > max[a.AssociatedProductID] {
			max[a.AssociatedProductID] = a.Strength
		}
	}
	out := make([]repository.AssociatedProduct, 0, len(order))
	for _, id := range order {
		out = append(out, repository.AssociatedProduct{ProductID: id, MaxStrength: max[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaxStrength > out[j].MaxStrength })
	return capSlice(out, limit), nil
}

func (r *stubRecommendationRepo) ListPairCounts(_ context.Context) ([]repository.PairCount, error) {
	return r.pairCounts, nil
}

func (r *stubRecommendationRepo) FindRecommendation(_ context.Context, userID, productID uuid.UUID) (*model.ProductRecommendation, error) {
	for _, rec := range r.recs {
		if rec.UserID == userID && rec.ProductID == productID {
			return rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRecommendationRepo) FindRecommendationByID(_ context.Context, id uuid.UUID) (*model.ProductRecommendation, error) {
	rec, ok := r.recs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubRecommendationRepo) SaveRecommendation(_ context.Context, rec *model.ProductRecommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
		r.recOrder = append(r.recOrder, rec.ID)
	}
	r.recs[rec.ID] = rec
	return nil
}

func (r *stubRecommendationRepo) ListRecommendations(_ context.Context, userID uuid.UUID, limit int, minScore float64, includeViewed bool) ([]model.ProductRecommendation, error) {
	var out []model.ProductRecommendation
	for _, id := range r.recOrder {
		rec := r.recs[id]
		if rec.UserID != userID || rec.Score < minScore {
			continue
		}
		if !includeViewed && rec.Viewed {
			continue
		}
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return capSlice(out, limit), nil
}

func (r *stubRecommendationRepo) MarkViewed(_ context.Context, id uuid.UUID) error {
	rec, ok := r.recs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.Viewed = true
	return nil
}

var _ repository.RecommendationRepository = (*stubRecommendationRepo)(nil)

// ── User repository stub ──────────────────────────────────────────────────────

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

// ── Helpers ───────────────────────────────────────────────────────────────────

func idSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func capSlice[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
