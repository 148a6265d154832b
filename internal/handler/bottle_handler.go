package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/driftbottle/internal/middleware"
	"github.com/hitoshi/driftbottle/internal/model"
)

// BottleServiceInterface はボトルハンドラーが必要とするサービスインターフェース。
type BottleServiceInterface interface {
	// Post は本文を検証してボトルを投稿する。1日3本の投稿上限を超えると
	// daily_limit_reachedのAPIErrorを返す。
	Post(ctx context.Context, authorID, content string) (*model.Bottle, error)

	// Report はボトルの通報カウントを+1し、閾値に達したら非表示にする。
	Report(ctx context.Context, bottleID int64) (*model.Bottle, error)
}

// BottleHandler はボトル投稿・通報のHTTPハンドラー。
type BottleHandler struct {
	service BottleServiceInterface
}

// NewBottleHandler はBottleHandlerを生成する。
func NewBottleHandler(service BottleServiceInterface) *BottleHandler {
	return &BottleHandler{
		service: service,
	}
}

// postBottleRequest はPOST /bottlesのリクエストボディ。
type postBottleRequest struct {
	Content string `json:"content"`
}

// bottleResponse は投稿されたボトルのAPI表現。
type bottleResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// reportRequest はPOST /reportのリクエストボディ。
type reportRequest struct {
	BottleID int64 `json:"bottle_id"`
}

// reportResponse は通報結果のAPI表現。
type reportResponse struct {
	BottleID    int64 `json:"bottle_id"`
	ReportCount int   `json:"report_count"`
	Hidden      bool  `json:"hidden"`
}

// Post はボトルを投稿する。
// POST /bottles
func (h *BottleHandler) Post(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnknownIdentityError())
		return
	}

	var req postBottleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	bottle, err := h.service.Post(r.Context(), identityID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bottleResponse{
		ID:        bottle.ID,
		Content:   bottle.Content,
		CreatedAt: bottle.CreatedAt,
	})
}

// Report はボトルを通報する。
// POST /report
func (h *BottleHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	bottle, err := h.service.Report(r.Context(), req.BottleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		BottleID:    bottle.ID,
		ReportCount: bottle.ReportCount,
		Hidden:      bottle.Hidden,
	})
}
