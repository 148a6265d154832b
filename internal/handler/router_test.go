package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/driftbottle/internal/delivery"
	"github.com/hitoshi/driftbottle/internal/identity"
	"github.com/hitoshi/driftbottle/internal/metrics"
	"github.com/hitoshi/driftbottle/internal/middleware"
	"github.com/hitoshi/driftbottle/internal/model"

	"golang.org/x/time/rate"
)

type mockIdentityFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Identity, error)
}

func (m *mockIdentityFinder) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

func newTestRouter(t *testing.T, finder middleware.IdentityFinder) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		PostRate:        rate.Limit(100),
		PostBurst:       100,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()

	return NewRouter(&RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		IdentityFinder:    finder,
		CookieConfig:      testCookieConfig(),
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Collector:         metrics.NewCollector(reg),
		Gatherer:          reg,
		IdentityService: &mockIdentityService{
			registerFn: func(ctx context.Context, presentedID, displayName string) (*identity.RegisterResult, error) {
				return &identity.RegisterResult{
					Identity: &model.Identity{ID: "new-id", DisplayName: displayName},
					Created:  true,
				}, nil
			},
		},
		BottleService: &mockBottleService{
			postFn: func(ctx context.Context, authorID, content string) (*model.Bottle, error) {
				return &model.Bottle{ID: 1, Content: content}, nil
			},
			reportFn: func(ctx context.Context, bottleID int64) (*model.Bottle, error) {
				return &model.Bottle{ID: bottleID, ReportCount: 1}, nil
			},
		},
		Allocator: &mockAllocator{
			getTodaysBottleFn: func(ctx context.Context, identityID string) (*delivery.DailyBottle, error) {
				return &delivery.DailyBottle{
					Date:   "2025-06-01",
					Bottle: &model.Bottle{ID: 42, Content: "hello"},
				}, nil
			},
		},
	})
}

func knownIdentityFinder() *mockIdentityFinder {
	return &mockIdentityFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Identity, error) {
			if id == "identity-1" {
				return &model.Identity{ID: id, DisplayName: "test"}, nil
			}
			return nil, nil
		},
	}
}

// POST /identityは認証なしで呼べることを検証
func TestRouter_Identity_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	req := httptest.NewRequest("POST", "/identity", strings.NewReader(`{"display_name":"name"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}

// GET /todayはCookieが無いと401になることを検証
func TestRouter_Today_RequiresCookie(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	req := httptest.NewRequest("GET", "/today", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// 有効なCookieを持つGET /todayが配達結果を返すことを検証
func TestRouter_Today_WithValidCookie(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	req := httptest.NewRequest("GET", "/today", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AnonCookieName, Value: "identity-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONBody(t, rec)
	if body["date"] != "2025-06-01" {
		t.Errorf("date = %v, want 2025-06-01", body["date"])
	}
}

// 失効済みCookieでのGET /todayは401とCookie破棄になることを検証
func TestRouter_Today_StaleCookie(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	req := httptest.NewRequest("GET", "/today", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AnonCookieName, Value: "stale-id"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	cookie := anonCookie(t, rec)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Error("expected the anon cookie to be expired")
	}
}

// POST /bottlesとPOST /reportが認証付きで通ることを検証
func TestRouter_PostRoutes_WithValidCookie(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	req := httptest.NewRequest("POST", "/bottles", strings.NewReader(`{"content":"hello"}`))
	req.AddCookie(&http.Cookie{Name: middleware.AnonCookieName, Value: "identity-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /bottles status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("POST", "/report", strings.NewReader(`{"bottle_id":1}`))
	req.AddCookie(&http.Cookie{Name: middleware.AnonCookieName, Value: "identity-1"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /report status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

// ヘルスチェックとメトリクスが認証なしで公開されることを検証
func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
}

// セキュリティヘッダーが全レスポンスに付与されることを検証
func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}

// CORSプリフライトが許可オリジンを返すことを検証
func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, knownIdentityFinder())

	req := httptest.NewRequest("OPTIONS", "/today", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
	}
}
