package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/driftbottle/internal/identity"
	"github.com/hitoshi/driftbottle/internal/middleware"
	"github.com/hitoshi/driftbottle/internal/model"
)

// IdentityServiceInterface はIdentityハンドラーが必要とするサービスインターフェース。
type IdentityServiceInterface interface {
	// Register はニックネームを検証して匿名Identityを発行する。
	// presentedIDが既存Identityに解決できる場合は再利用する。
	Register(ctx context.Context, presentedID, displayName string) (*identity.RegisterResult, error)
}

// IdentityHandler は匿名Identity管理のHTTPハンドラー。
type IdentityHandler struct {
	service IdentityServiceInterface
	cookie  middleware.CookieConfig
}

// NewIdentityHandler はIdentityHandlerを生成する。
func NewIdentityHandler(service IdentityServiceInterface, cookie middleware.CookieConfig) *IdentityHandler {
	return &IdentityHandler{
		service: service,
		cookie:  cookie,
	}
}

// registerRequest はPOST /identityのリクエストボディ。
type registerRequest struct {
	DisplayName string `json:"display_name"`
}

// identityResponse はIdentityのAPI表現。
type identityResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Created     bool      `json:"created"`
}

// Register は匿名Identityを発行または再利用する。
// POST /identity
// 発行した識別子はHTTP Only Cookieとして返し、呼び出し元は
// 以後のリクエストでこれを提示する。
func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	// 既に有効なCookieを持っていれば登録はno-opになる
	presentedID := ""
	if cookie, err := r.Cookie(middleware.AnonCookieName); err == nil {
		presentedID = cookie.Value
	}

	result, err := h.service.Register(r.Context(), presentedID, req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.SetAnonCookie(w, h.cookie, result.Identity.ID)

	statusCode := http.StatusOK
	if result.Created {
		statusCode = http.StatusCreated
	}

	writeJSON(w, statusCode, identityResponse{
		ID:          result.Identity.ID,
		DisplayName: result.Identity.DisplayName,
		CreatedAt:   result.Identity.CreatedAt,
		Created:     result.Created,
	})
}
