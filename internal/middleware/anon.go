// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/driftbottle/internal/model"
)

// AnonCookieName は匿名IDを保持するCookieの名前。
const AnonCookieName = "anon_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityIDContextKey はリクエストコンテキストに匿名IDを格納するためのキー。
var identityIDContextKey = contextKey("identity_id")

// CookieConfig は匿名ID Cookieの発行設定。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge int
}

// IdentityFinder はIdentityの検索に必要なインターフェース。
// repository.IdentityRepositoryの部分集合として定義する。
type IdentityFinder interface {
	FindByID(ctx context.Context, id string) (*model.Identity, error)
}

// NewAnonMiddleware はHTTP Only Cookieから匿名IDを読み取り、
// 有効性を検証するミドルウェアを返す。
// 有効な匿名IDをリクエストコンテキストに注入する。
// Cookieが無い、または匿名IDが解決できないリクエストには401を返し、
// Cookieを失効させて呼び出し元に識別子を破棄させる。
func NewAnonMiddleware(finder IdentityFinder, config CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieから匿名IDを取得
			cookie, err := r.Cookie(AnonCookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			// 2. 匿名IDの有効性を検証
			identity, err := finder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find identity",
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w)
				return
			}
			if identity == nil {
				// 失効済みの識別子は破棄させる
				ExpireAnonCookie(w, config)
				writeUnauthorized(w)
				return
			}

			// 3. 匿名IDをコンテキストに注入
			ctx := context.WithValue(r.Context(), identityIDContextKey, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetAnonCookie は匿名ID Cookieを発行する。
// HttpOnly + SameSite=Lax。呼び出し元は長期credentialとして保持する。
func SetAnonCookie(w http.ResponseWriter, config CookieConfig, anonID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    anonID,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ExpireAnonCookie は匿名ID Cookieを失効させる。
// 無効な識別子を提示した呼び出し元に破棄を指示する際に使用する。
func ExpireAnonCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeUnauthorized はunknown_identityの401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnknownIdentityError())
}

// IdentityIDFromContext はリクエストコンテキストから匿名IDを取得する。
// 匿名IDミドルウェアを通過したリクエストでのみ有効。
func IdentityIDFromContext(ctx context.Context) (string, error) {
	identityID, ok := ctx.Value(identityIDContextKey).(string)
	if !ok || identityID == "" {
		return "", fmt.Errorf("identity ID not found in context")
	}
	return identityID, nil
}

// ContextWithIdentityID はコンテキストに匿名IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentityID(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityIDContextKey, identityID)
}
