package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/driftbottle/internal/delivery"
	"github.com/hitoshi/driftbottle/internal/middleware"
	"github.com/hitoshi/driftbottle/internal/model"
)

// AllocatorInterface は配達ハンドラーが必要とするアロケータインターフェース。
type AllocatorInterface interface {
	// GetTodaysBottle は指定Identityの「今日のボトル」を返す。
	// 同一日の再リクエストは同じ結果を決定的に返す。
	GetTodaysBottle(ctx context.Context, identityID string) (*delivery.DailyBottle, error)
}

// DeliveryHandler は「今日のボトル」取得のHTTPハンドラー。
type DeliveryHandler struct {
	allocator AllocatorInterface
	cookie    middleware.CookieConfig
}

// NewDeliveryHandler はDeliveryHandlerを生成する。
func NewDeliveryHandler(allocator AllocatorInterface, cookie middleware.CookieConfig) *DeliveryHandler {
	return &DeliveryHandler{
		allocator: allocator,
		cookie:    cookie,
	}
}

// deliveredBottle は配達されたボトルのAPI表現。
type deliveredBottle struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// todayResponse はGET /todayのレスポンスボディ。
// 候補が存在しない日はbottleがnullになり、messageに案内文が入る。
type todayResponse struct {
	Date    string           `json:"date"`
	Bottle  *deliveredBottle `json:"bottle"`
	Message string           `json:"message,omitempty"`
}

// Today は今日のボトルを取得する。
// GET /today
// Identityが解決できない場合は401を返し、Cookieを失効させて
// 呼び出し元に識別子を破棄させる。
func (h *DeliveryHandler) Today(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		middleware.ExpireAnonCookie(w, h.cookie)
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnknownIdentityError())
		return
	}

	result, err := h.allocator.GetTodaysBottle(r.Context(), identityID)
	if err != nil {
		if isUnknownIdentityError(err) {
			middleware.ExpireAnonCookie(w, h.cookie)
		}
		handleServiceError(w, err)
		return
	}

	resp := todayResponse{
		Date:    result.Date,
		Message: result.Message,
	}
	if result.Bottle != nil {
		resp.Bottle = &deliveredBottle{
			ID:      result.Bottle.ID,
			Content: result.Bottle.Content,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
