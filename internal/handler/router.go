package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/driftbottle/internal/metrics"
	"github.com/hitoshi/driftbottle/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	IdentityFinder    middleware.IdentityFinder
	CookieConfig      middleware.CookieConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// サービス
	IdentityService IdentityServiceInterface
	BottleService   BottleServiceInterface
	Allocator       AllocatorInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging →
//	（認証必須グループのみ）Anon → RateLimit(General)
//
// POST /identity、/health、/metrics は認証必須グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	}

	identityHandler := NewIdentityHandler(deps.IdentityService, deps.CookieConfig)
	bottleHandler := NewBottleHandler(deps.BottleService)
	deliveryHandler := NewDeliveryHandler(deps.Allocator, deps.CookieConfig)

	// --- 認証不要のルート ---

	r.Post("/identity", identityHandler.Register)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Anon → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAnonMiddleware(deps.IdentityFinder, deps.CookieConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 今日のボトル
		r.Get("/today", deliveryHandler.Today)

		// 投稿・通報（投稿専用レート制限を追加）
		r.With(deps.RateLimiter.PostMiddleware()).Post("/bottles", bottleHandler.Post)
		r.With(deps.RateLimiter.PostMiddleware()).Post("/report", bottleHandler.Report)
	})

	return r
}
