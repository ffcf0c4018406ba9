package httpserver

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/limiter"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/service"
)

var testKey = []byte("test-signing-key")

func init() { gin.SetMode(gin.TestMode) }

/************ fakes ************/
// Embedded interfaces satisfy the methods a test does not exercise.

type fakeAccounts struct {
	service.AccountService
	banned  map[string]bool
	synced  []model.User
	balance *model.Balance
}

func (f *fakeAccounts) Sync(_ context.Context, claims model.User) (*model.User, error) {
	if f.banned[claims.ID] {
		return nil, errs.ErrBanned
	}
	f.synced = append(f.synced, claims)
	u := claims
	u.Role = model.RoleUser
	if strings.HasPrefix(u.ID, "admin") {
		u.Role = model.RoleAdmin
	}
	return &u, nil
}
func (f *fakeAccounts) Balance(context.Context, model.User) *model.Balance { return f.balance }
func (f *fakeAccounts) SearchUsers(_ context.Context, admin model.User, q string, limit int) ([]model.UserView, error) {
	return []model.UserView{{ID: "u1", Name: q}}, nil
}

type fakeCheckout struct {
	buyer string
	ids   []uuid.UUID
	err   error
}

func (f *fakeCheckout) Start(_ context.Context, buyer string, ids []uuid.UUID) (string, error) {
	f.buyer, f.ids = buyer, ids
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.test/cs_1", nil
}

type fakeWebhooks struct{ payload []byte }

func (f *fakeWebhooks) HandleWebhook(_ context.Context, payload []byte, sig string) (service.ReconcileResult, error) {
	f.payload = payload
	if sig != "good" {
		return service.ReconcileResult{}, errs.ErrBadSignature
	}
	return service.ReconcileResult{EventType: model.EventCheckoutCompleted, Created: 1}, nil
}

type fakeProducts struct {
	service.ProductService
	filter model.ProductFilter
	err    error
}

func (f *fakeProducts) List(_ context.Context, flt model.ProductFilter) (model.ProductPage, error) {
	f.filter = flt
	return model.ProductPage{Products: []model.ProductView{}, CurrentPage: 1}, f.err
}
func (f *fakeProducts) Get(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Product{ID: id, Title: "Flow", FileURL: "https://bucket.s3.test/files/secret.json"}, nil
}
func (f *fakeProducts) Create(_ context.Context, seller model.User, in model.ProductInput) (*model.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Product{ID: uuid.Must(uuid.NewV4()), Title: in.Title, SellerID: seller.ID}, nil
}

type fakeUploads struct {
	service.UploadService
	origin string
}

func (f *fakeUploads) PresignImage(_ context.Context, _ string, req service.UploadRequest, origin string) (service.Upload, error) {
	f.origin = origin
	return service.Upload{UploadURL: "https://s3.test/put", FileURL: origin + "/api/image?url=x"}, nil
}
func (f *fakeUploads) OpenImage(_ context.Context, raw string) (io.ReadCloser, string, error) {
	if strings.HasSuffix(raw, ".json") {
		return nil, "", errs.ErrForbidden
	}
	return io.NopCloser(strings.NewReader("PNGDATA")), "image/png", nil
}

type fakeLimiter struct {
	keys  []string
	allow bool
	retry time.Duration
	err   error
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.retry, f.err
}

/************ harness ************/
type harness struct {
	router   *gin.Engine
	accounts *fakeAccounts
	checkout *fakeCheckout
	webhooks *fakeWebhooks
	products *fakeProducts
	uploads  *fakeUploads
	lim      *fakeLimiter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		accounts: &fakeAccounts{banned: map[string]bool{}},
		checkout: &fakeCheckout{},
		webhooks: &fakeWebhooks{},
		products: &fakeProducts{},
		uploads:  &fakeUploads{},
		lim:      &fakeLimiter{allow: true},
	}
	log := zaptest.NewLogger(t)
	srv := New(Services{
		Checkout: h.checkout,
		Webhooks: h.webhooks,
		Products: h.products,
		Accounts: h.accounts,
		Uploads:  h.uploads,
	}, NewTokenVerifier(testKey, 30*time.Second), limiter.NewGuard(h.lim, log), "", log)
	h.router = srv.Router()
	return h
}

func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, sub string, key []byte, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Email:     sub + "@koda.test",
		GivenName: "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validToken(t *testing.T, sub string) string {
	return tokenFor(t, sub, testKey, time.Now().Add(time.Hour))
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

