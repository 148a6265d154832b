package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
// ここでのレート制限はHTTPレベルの過剰リクエスト対策であり、
// DBでカウントする1日3本の投稿上限（ドメインルール）とは独立している。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	PostRate        rate.Limit    // ボトル投稿・通報のレート（req/sec）
	PostBurst       int           // ボトル投稿・通報のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/identity、投稿系 10 req/min/identity
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		PostRate:        rate.Limit(10.0 / 60.0), // ~0.167 req/sec
		PostBurst:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// identityLimiter はIdentityごとのレートリミッターとアクセス時刻を保持する。
type identityLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はIdentityごとのレート制限を管理する。
// API全般のレート制限と投稿系のレート制限の2種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*identityLimiter

	postMu       sync.RWMutex
	postLimiters map[string]*identityLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:          config,
		generalLimiters: make(map[string]*identityLimiter),
		postLimiters:    make(map[string]*identityLimiter),
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストに匿名IDが含まれている必要がある（AnonMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identityID, err := IdentityIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateGeneralLimiter(identityID)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("identity_id", identityID),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PostMiddleware はボトル投稿・通報専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) PostMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identityID, err := IdentityIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreatePostLimiter(identityID)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.PostRate)
				slog.Warn("rate limit exceeded",
					slog.String("identity_id", identityID),
					slog.String("limit_type", "post"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// PostLimiterCount は現在管理されている投稿系リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) PostLimiterCount() int {
	rl.postMu.RLock()
	defer rl.postMu.RUnlock()
	return len(rl.postLimiters)
}

// getOrCreateGeneralLimiter はIdentityのAPI全般リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateGeneralLimiter(identityID string) *rate.Limiter {
	rl.generalMu.RLock()
	il, exists := rl.generalLimiters[identityID]
	rl.generalMu.RUnlock()

	if exists {
		rl.generalMu.Lock()
		il.lastAccess = time.Now()
		rl.generalMu.Unlock()
		return il.limiter
	}

	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	// ダブルチェック
	if il, exists := rl.generalLimiters[identityID]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst)
	rl.generalLimiters[identityID] = &identityLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreatePostLimiter はIdentityの投稿系リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreatePostLimiter(identityID string) *rate.Limiter {
	rl.postMu.RLock()
	il, exists := rl.postLimiters[identityID]
	rl.postMu.RUnlock()

	if exists {
		rl.postMu.Lock()
		il.lastAccess = time.Now()
		rl.postMu.Unlock()
		return il.limiter
	}

	rl.postMu.Lock()
	defer rl.postMu.Unlock()

	// ダブルチェック
	if il, exists := rl.postLimiters[identityID]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.config.PostRate, rl.config.PostBurst)
	rl.postLimiters[identityID] = &identityLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for identityID, il := range rl.generalLimiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.generalLimiters, identityID)
		}
	}
	rl.generalMu.Unlock()

	rl.postMu.Lock()
	for identityID, il := range rl.postLimiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.postLimiters, identityID)
		}
	}
	rl.postMu.Unlock()
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
