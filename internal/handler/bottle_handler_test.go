package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/driftbottle/internal/middleware"
	"github.com/hitoshi/driftbottle/internal/model"
)

type mockBottleService struct {
	postFn   func(ctx context.Context, authorID, content string) (*model.Bottle, error)
	reportFn func(ctx context.Context, bottleID int64) (*model.Bottle, error)
}

func (m *mockBottleService) Post(ctx context.Context, authorID, content string) (*model.Bottle, error) {
	if m.postFn != nil {
		return m.postFn(ctx, authorID, content)
	}
	return nil, nil
}
func (m *mockBottleService) Report(ctx context.Context, bottleID int64) (*model.Bottle, error) {
	if m.reportFn != nil {
		return m.reportFn(ctx, bottleID)
	}
	return nil, nil
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.ContextWithIdentityID(req.Context(), "identity-1"))
}

// 投稿が201でボトルを返すことを検証
func TestBottleHandler_Post_Success(t *testing.T) {
	service := &mockBottleService{
		postFn: func(ctx context.Context, authorID, content string) (*model.Bottle, error) {
			if authorID != "identity-1" {
				t.Errorf("authorID = %q, want %q", authorID, "identity-1")
			}
			return &model.Bottle{ID: 10, Content: content}, nil
		},
	}
	h := NewBottleHandler(service)

	rec := httptest.NewRecorder()
	h.Post(rec, authedRequest("POST", "/bottles", `{"content":"こんにちは、海"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	body := decodeJSONBody(t, rec)
	if body["id"] != float64(10) {
		t.Errorf("id = %v, want 10", body["id"])
	}
	if body["content"] != "こんにちは、海" {
		t.Errorf("content = %v, want こんにちは、海", body["content"])
	}
}

// 匿名IDが無いリクエストは401になることを検証
func TestBottleHandler_Post_Unauthenticated(t *testing.T) {
	h := NewBottleHandler(&mockBottleService{})

	req := httptest.NewRequest("POST", "/bottles", strings.NewReader(`{"content":"x"}`))
	rec := httptest.NewRecorder()
	h.Post(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// サービス層のエラーコードがHTTPステータスに対応することを検証
func TestBottleHandler_Post_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        *model.APIError
		wantStatus int
		wantCode   string
	}{
		{"本文未入力", model.NewContentRequiredError(), http.StatusBadRequest, model.ErrCodeContentRequired},
		{"本文超過", model.NewContentTooLongError(), http.StatusBadRequest, model.ErrCodeContentTooLong},
		{"投稿上限", model.NewDailyLimitReachedError(), http.StatusTooManyRequests, model.ErrCodeDailyLimitReached},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &mockBottleService{
				postFn: func(ctx context.Context, authorID, content string) (*model.Bottle, error) {
					return nil, tc.err
				},
			}
			h := NewBottleHandler(service)

			rec := httptest.NewRecorder()
			h.Post(rec, authedRequest("POST", "/bottles", `{"content":"x"}`))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			body := decodeJSONBody(t, rec)
			if body["code"] != tc.wantCode {
				t.Errorf("code = %v, want %q", body["code"], tc.wantCode)
			}
		})
	}
}

// 不正なJSONボディは400になることを検証
func TestBottleHandler_Post_InvalidJSON(t *testing.T) {
	h := NewBottleHandler(&mockBottleService{})

	rec := httptest.NewRecorder()
	h.Post(rec, authedRequest("POST", "/bottles", "not json"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeJSONBody(t, rec)
	if body["code"] != model.ErrCodeInvalidRequest {
		t.Errorf("code = %v, want %q", body["code"], model.ErrCodeInvalidRequest)
	}
}

// 通報が200で通報後の状態を返すことを検証
func TestBottleHandler_Report_Success(t *testing.T) {
	service := &mockBottleService{
		reportFn: func(ctx context.Context, bottleID int64) (*model.Bottle, error) {
			if bottleID != 7 {
				t.Errorf("bottleID = %d, want 7", bottleID)
			}
			return &model.Bottle{ID: 7, ReportCount: 3, Hidden: true}, nil
		},
	}
	h := NewBottleHandler(service)

	rec := httptest.NewRecorder()
	h.Report(rec, authedRequest("POST", "/report", `{"bottle_id":7}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeJSONBody(t, rec)
	if body["bottle_id"] != float64(7) {
		t.Errorf("bottle_id = %v, want 7", body["bottle_id"])
	}
	if body["report_count"] != float64(3) {
		t.Errorf("report_count = %v, want 3", body["report_count"])
	}
	if body["hidden"] != true {
		t.Errorf("hidden = %v, want true", body["hidden"])
	}
}

// 存在しないボトルへの通報は404になることを検証
func TestBottleHandler_Report_NotFound(t *testing.T) {
	service := &mockBottleService{
		reportFn: func(ctx context.Context, bottleID int64) (*model.Bottle, error) {
			return nil, model.NewBottleNotFoundError(bottleID)
		},
	}
	h := NewBottleHandler(service)

	rec := httptest.NewRecorder()
	h.Report(rec, authedRequest("POST", "/report", `{"bottle_id":999}`))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeJSONBody(t, rec)
	if body["code"] != model.ErrCodeBottleNotFound {
		t.Errorf("code = %v, want %q", body["code"], model.ErrCodeBottleNotFound)
	}
}
