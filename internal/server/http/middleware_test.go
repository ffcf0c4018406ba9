package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func TestRecover_CatchesPanic(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(Recover(zaptest.NewLogger(t)))
	r.GET("/boom", func(*gin.Context) { panic("oh no") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	expectStatus(t, w, http.StatusInternalServerError)
}

func TestAccessLog_Passthrough(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(AccessLog(zaptest.NewLogger(t)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusTeapot, "tea") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusTeapot || w.Body.String() != "tea" {
		t.Fatalf("unexpected response: %d %q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	expectStatus(t, w, http.StatusNotFound)
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	h.accounts.banned["banned"] = true

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong key", tokenFor(t, "u1", []byte("other"), time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", tokenFor(t, "u1", testKey, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"within leeway", tokenFor(t, "u1", testKey, time.Now().Add(-10*time.Second)), http.StatusOK},
		{"empty subject", tokenFor(t, "", testKey, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"banned", validToken(t, "banned"), http.StatusForbidden},
		{"ok", validToken(t, "u1"), http.StatusOK},
	}
	for _, tc := range cases {
		w := h.do(http.MethodGet, "/api/me", "", tc.token)
		if w.Code != tc.want {
			t.Fatalf("%s: got %d, want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
	if last := h.accounts.synced[len(h.accounts.synced)-1]; last.Email != "u1@koda.test" || last.FirstName != "Ada" {
		t.Fatalf("claims not mapped: %+v", last)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"Bearer abc":    "abc",
		"bearer   abc ": "abc",
		"Basic abc":     "",
		"Bearer ":       "",
		"":              "",
	} {
		got, err := bearerToken(in)
		if got != want || (want == "") != (err != nil) {
			t.Fatalf("%q: got %q, %v", in, got, err)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	h := newHarness(t)
	expectStatus(t, h.do(http.MethodGet, "/api/admin/users?q=x", "", validToken(t, "u1")), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodGet, "/api/admin/users?q=x", "", validToken(t, "admin1")), http.StatusOK)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t)
	body := `{"fileName":"a.png","fileType":"image/png","fileSize":10}`

	expectStatus(t, h.do(http.MethodPost, "/api/uploads/image", body, validToken(t, "u1")), http.StatusOK)
	if len(h.lim.keys) != 1 || h.lim.keys[0] != "upload:u1" {
		t.Fatalf("limiter key: %v", h.lim.keys)
	}

	h.lim.allow, h.lim.retry = false, 1500*time.Millisecond
	w := h.do(http.MethodPost, "/api/uploads/image", body, validToken(t, "u1"))
	expectStatus(t, w, http.StatusTooManyRequests)
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After: %q", got)
	}

	h.lim.err = errors.New("db down")
	expectStatus(t, h.do(http.MethodPost, "/api/uploads/image", body, validToken(t, "u1")), http.StatusOK)
}
