package service

import (
	"context"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/payment"
	"github.com/kodamarket/koda/internal/repository"
)

/************ products ************/
type fakeProducts struct {
	m       map[uuid.UUID]*model.Product
	getErr  error
	ratings map[uuid.UUID]model.RatingStats
	listIn  model.ProductFilter
	deleted []uuid.UUID
}

var _ repository.ProductRepository = (*fakeProducts)(nil)

func newFakeProducts(ps ...*model.Product) *fakeProducts {
	f := &fakeProducts{m: map[uuid.UUID]*model.Product{}, ratings: map[uuid.UUID]model.RatingStats{}}
	for _, p := range ps {
		f.m[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Create(_ context.Context, p *model.Product) error {
	p.CreatedAt = time.Now()
	f.m[p.ID] = p
	return nil
}
func (f *fakeProducts) Get(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
func (f *fakeProducts) Update(_ context.Context, p *model.Product) error {
	if _, ok := f.m[p.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *p
	f.m[p.ID] = &cp
	return nil
}
func (f *fakeProducts) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.m[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.m, id)
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeProducts) List(_ context.Context, flt model.ProductFilter) ([]model.Product, int, error) {
	f.listIn = flt
	var out []model.Product
	for _, p := range f.m {
		out = append(out, *p)
	}
	return out, len(out), nil
}
func (f *fakeProducts) ListBySeller(_ context.Context, sellerID string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.m {
		if p.SellerID == sellerID {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (f *fakeProducts) SetRating(_ context.Context, id uuid.UUID, st model.RatingStats) error {
	f.ratings[id] = st
	if p, ok := f.m[id]; ok {
		p.AverageRating, p.ReviewCount = st.Average, st.Count
	}
	return nil
}

/************ users ************/
type fakeUsers struct {
	m          map[string]*model.User
	upsertErr  error
	onboarding map[string]bool
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{m: map[string]*model.User{}, onboarding: map[string]bool{}}
	for _, u := range us {
		f.m[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Upsert(_ context.Context, u *model.User) (*model.User, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	cur, ok := f.m[u.ID]
	if !ok {
		cp := *u
		cp.Role = model.RoleUser
		f.m[u.ID] = &cp
		cur = &cp
	} else {
		cur.Email, cur.FirstName, cur.LastName, cur.Username = u.Email, u.FirstName, u.LastName, u.Username
	}
	out := *cur
	return &out, nil
}
func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
func (f *fakeUsers) FindByIdentifier(_ context.Context, ident string) (*model.User, error) {
	for _, u := range f.m {
		if u.ID == ident || u.Email == ident {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) Search(_ context.Context, q string, limit int) ([]model.User, error) {
	var out []model.User
	for _, u := range f.m {
		if strings.Contains(u.ID, q) || strings.Contains(u.Email, q) {
			out = append(out, *u)
		}
	}
	return out, nil
}
func (f *fakeUsers) SetPayoutAccount(_ context.Context, id, acct string) error {
	u, ok := f.m[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PayoutAccountID = acct
	return nil
}
func (f *fakeUsers) SetOnboardingByAccount(_ context.Context, acct string, complete bool) error {
	for _, u := range f.m {
		if u.PayoutAccountID == acct {
			u.OnboardingComplete = complete
			f.onboarding[acct] = complete
			return nil
		}
	}
	return errs.ErrNotFound
}
func (f *fakeUsers) SetBanned(_ context.Context, id string, banned bool) error {
	u, ok := f.m[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Banned = banned
	return nil
}
func (f *fakeUsers) SetRole(_ context.Context, id string, role model.Role) error {
	u, ok := f.m[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Role = role
	return nil
}

/************ purchases ************/
// fakePurchases keeps the same (buyer, product) uniqueness as the database index.
type fakePurchases struct {
	mu        sync.Mutex
	list      []model.Purchase
	existsErr error
	// raceOnCreate makes Exists miss the next duplicate so Create hits the unique index.
	raceOnCreate bool
}

var _ repository.PurchaseRepository = (*fakePurchases)(nil)

func (f *fakePurchases) own(buyer string, pid uuid.UUID) {
	f.list = append(f.list, model.Purchase{ID: uuid.Must(uuid.NewV4()), BuyerID: buyer, ProductID: pid})
}

func (f *fakePurchases) Exists(_ context.Context, buyer string, pid uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.raceOnCreate {
		return false, nil
	}
	for _, p := range f.list {
		if p.BuyerID == buyer && p.ProductID == pid {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakePurchases) Create(_ context.Context, p *model.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.list {
		if x.BuyerID == p.BuyerID && x.ProductID == p.ProductID {
			return errs.ErrAlreadyExists
		}
	}
	f.list = append(f.list, *p)
	return nil
}
func (f *fakePurchases) count(buyer string, pid uuid.UUID) int {
	n := 0
	for _, p := range f.list {
		if p.BuyerID == buyer && p.ProductID == pid {
			n++
		}
	}
	return n
}
func (f *fakePurchases) ListByBuyer(_ context.Context, buyer string) ([]model.PurchaseView, error) {
	var out []model.PurchaseView
	for _, p := range f.list {
		if p.BuyerID == buyer {
			out = append(out, model.PurchaseView{ID: p.ID.String(), BuyerID: p.BuyerID, ProductID: p.ProductID.String()})
		}
	}
	return out, nil
}
func (f *fakePurchases) ListBySeller(_ context.Context, seller string) ([]model.PurchaseView, error) {
	var out []model.PurchaseView
	for _, p := range f.list {
		if p.SellerID == seller {
			out = append(out, model.PurchaseView{ID: p.ID.String(), SellerID: p.SellerID, Amount: p.Amount})
		}
	}
	return out, nil
}
func (f *fakePurchases) ListRecent(ctx context.Context, buyer string, limit int) ([]model.PurchaseView, error) {
	return f.ListByBuyer(ctx, buyer)
}

/************ reviews ************/
type fakeReviews struct {
	m     map[uuid.UUID]*model.Review
	order []uuid.UUID
}

var _ repository.ReviewRepository = (*fakeReviews)(nil)

func newFakeReviews() *fakeReviews { return &fakeReviews{m: map[uuid.UUID]*model.Review{}} }

func (f *fakeReviews) put(r *model.Review) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().Add(time.Duration(len(f.order)) * time.Second)
	}
	cp := *r
	f.m[r.ID] = &cp
	f.order = append(f.order, r.ID)
}

func (f *fakeReviews) UpsertReview(_ context.Context, r *model.Review) error {
	for _, x := range f.m {
		if x.Kind == model.KindReview && x.ProductID == r.ProductID && x.UserID == r.UserID {
			x.Rating, x.Comment, x.UserName = r.Rating, r.Comment, r.UserName
			r.ID = x.ID
			return nil
		}
	}
	f.put(r)
	return nil
}
func (f *fakeReviews) Create(_ context.Context, r *model.Review) error { f.put(r); return nil }
func (f *fakeReviews) Get(_ context.Context, id uuid.UUID) (*model.Review, error) {
	r, ok := f.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *r
	return &cp, nil
}
func (f *fakeReviews) UpdateComment(_ context.Context, id uuid.UUID, c string) error {
	r, ok := f.m[id]
	if !ok {
		return errs.ErrNotFound
	}
	r.Comment = c
	return nil
}
func (f *fakeReviews) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.m[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.m, id)
	for k, r := range f.m {
		if r.ParentID != nil && *r.ParentID == id {
			delete(f.m, k)
		}
	}
	return nil
}
func (f *fakeReviews) Stats(_ context.Context, pid uuid.UUID) (model.RatingStats, error) {
	sum, n := 0, 0
	for _, r := range f.m {
		if r.ProductID == pid && r.Kind == model.KindReview {
			sum += *r.Rating
			n++
		}
	}
	if n == 0 {
		return model.RatingStats{}, nil
	}
	return model.RatingStats{Average: math.Round(float64(sum)/float64(n)*10) / 10, Count: n}, nil
}
func (f *fakeReviews) ListByProduct(_ context.Context, pid uuid.UUID) ([]model.Review, error) {
	var out []model.Review
	for _, id := range f.order {
		if r, ok := f.m[id]; ok && r.ProductID == pid {
			out = append(out, *r)
		}
	}
	return out, nil
}

/************ carts, favorites, notifications ************/
type fakeCarts struct {
	items    map[string][]uuid.UUID
	cleared  []string
	clearErr error
}

var _ repository.CartRepository = (*fakeCarts)(nil)

func (f *fakeCarts) Add(_ context.Context, u string, pid uuid.UUID) error {
	if f.items == nil {
		f.items = map[string][]uuid.UUID{}
	}
	f.items[u] = append(f.items[u], pid)
	return nil
}
func (f *fakeCarts) Remove(_ context.Context, u string, pid uuid.UUID) error { return nil }
func (f *fakeCarts) List(_ context.Context, u string) ([]model.Product, error) {
	return nil, nil
}
func (f *fakeCarts) Clear(_ context.Context, u string) error {
	f.cleared = append(f.cleared, u)
	return f.clearErr
}

type fakeFavorites struct{ on map[uuid.UUID]bool }

var _ repository.FavoriteRepository = (*fakeFavorites)(nil)

func (f *fakeFavorites) Toggle(_ context.Context, u string, pid uuid.UUID) (bool, error) {
	if f.on == nil {
		f.on = map[uuid.UUID]bool{}
	}
	f.on[pid] = !f.on[pid]
	return f.on[pid], nil
}
func (f *fakeFavorites) List(_ context.Context, u string) ([]model.Product, error) { return nil, nil }
func (f *fakeFavorites) IDs(_ context.Context, u string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, on := range f.on {
		if on {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeNotes struct {
	list      []model.Notification
	createErr error
}

var _ repository.NotificationRepository = (*fakeNotes)(nil)

func (f *fakeNotes) Create(_ context.Context, n *model.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.list = append(f.list, *n)
	return nil
}
func (f *fakeNotes) ListForUser(_ context.Context, u string, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.list {
		if n.UserID == u {
			out = append(out, n)
		}
	}
	return out, nil
}
func (f *fakeNotes) MarkRead(_ context.Context, u string, id uuid.UUID) error {
	for i := range f.list {
		if f.list[i].ID == id && f.list[i].UserID == u {
			f.list[i].Read = true
			return nil
		}
	}
	return errs.ErrNotFound
}
func (f *fakeNotes) MarkAllRead(_ context.Context, u string) error { return nil }
func (f *fakeNotes) UnreadCount(_ context.Context, u string) (int, error) {
	n := 0
	for _, x := range f.list {
		if x.UserID == u && !x.Read {
			n++
		}
	}
	return n, nil
}
func (f *fakeNotes) ofType(t model.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range f.list {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

/************ payment provider ************/
type fakePay struct {
	req        payment.CheckoutRequest
	sessionErr error

	event    model.PaymentEvent
	eventErr error

	accountID  string
	accountErr error
	linkErr    error
	balance    model.Balance
	balanceErr error
}

var _ payment.Provider = (*fakePay)(nil)

func (f *fakePay) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	f.req = req
	if f.sessionErr != nil {
		return payment.Session{}, f.sessionErr
	}
	return payment.Session{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}
func (f *fakePay) CreateAccount(_ context.Context, email string) (string, error) {
	return f.accountID, f.accountErr
}
func (f *fakePay) CreateOnboardingLink(_ context.Context, acct, ret string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return "https://connect.test/" + acct, nil
}
func (f *fakePay) GetBalance(_ context.Context, acct string) (model.Balance, error) {
	return f.balance, f.balanceErr
}
func (f *fakePay) VerifyEvent(payload []byte, sig string) (model.PaymentEvent, error) {
	if sig != "good" {
		return model.PaymentEvent{}, errs.ErrBadSignature
	}
	return f.event, f.eventErr
}

/************ object store ************/
type fakeStore struct {
	putKey, putType string
	putTTL          time.Duration
	getKey          string
	openKey         string
	openErr         error
}

var _ ObjectStore = (*fakeStore)(nil)

func (f *fakeStore) PresignPut(_ context.Context, key, ctype, name string, ttl time.Duration) (string, error) {
	f.putKey, f.putType, f.putTTL = key, ctype, ttl
	return "https://s3.test/put/" + key, nil
}
func (f *fakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.getKey = key
	return "https://s3.test/get/" + key, nil
}
func (f *fakeStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.openKey = key
	if f.openErr != nil {
		return nil, "", f.openErr
	}
	return io.NopCloser(strings.NewReader("img")), "", nil
}
func (f *fakeStore) URL(key string) string { return "https://bucket.s3.test/" + key }
func (f *fakeStore) KeyFromURL(raw string) (string, error) {
	k := strings.TrimPrefix(raw, "https://bucket.s3.test/")
	if k == raw || k == "" {
		return "", errs.Validation("invalid object url")
	}
	return k, nil
}

/************ helpers ************/
func newProduct(sellerID, price string) *model.Product {
	return &model.Product{
		ID: uuid.Must(uuid.NewV4()), Kind: model.KindAutomation, Title: "Flow " + price,
		Price: decimal.RequireFromString(price), SellerID: sellerID, FileURL: "https://bucket.s3.test/files/" + sellerID + "/flow.json",
	}
}

func newSeller(id, acct string) *model.User {
	return &model.User{ID: id, Role: model.RoleUser, PayoutAccountID: acct}
}
