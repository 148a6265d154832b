package bottle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/driftbottle/internal/clock"
	"github.com/hitoshi/driftbottle/internal/model"
	"github.com/hitoshi/driftbottle/internal/security"
)

var testLoc = time.FixedZone("JST", 9*60*60)

func fixedClock(t *testing.T, value string) *clock.Clock {
	t.Helper()
	now, err := time.ParseInLocation("2006-01-02 15:04:05", value, testLoc)
	if err != nil {
		t.Fatalf("failed to parse test time: %v", err)
	}
	return clock.NewFixed(now, testLoc)
}

type mockBottleRepo struct {
	findByIDFn             func(ctx context.Context, id int64) (*model.Bottle, error)
	createFn               func(ctx context.Context, bottle *model.Bottle) error
	incrementReportFn      func(ctx context.Context, id int64, threshold int) (*model.Bottle, error)
	countByAuthorBetweenFn func(ctx context.Context, authorID string, start, end time.Time) (int, error)
}

func (m *mockBottleRepo) FindByID(ctx context.Context, id int64) (*model.Bottle, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockBottleRepo) Create(ctx context.Context, bottle *model.Bottle) error {
	if m.createFn != nil {
		return m.createFn(ctx, bottle)
	}
	bottle.ID = 1
	return nil
}
func (m *mockBottleRepo) IncrementReport(ctx context.Context, id int64, threshold int) (*model.Bottle, error) {
	if m.incrementReportFn != nil {
		return m.incrementReportFn(ctx, id, threshold)
	}
	return nil, nil
}
func (m *mockBottleRepo) CountByAuthorBetween(ctx context.Context, authorID string, start, end time.Time) (int, error) {
	if m.countByAuthorBetweenFn != nil {
		return m.countByAuthorBetweenFn(ctx, authorID, start, end)
	}
	return 0, nil
}
func (m *mockBottleRepo) FindRandomCandidate(ctx context.Context, identityID string) (*model.Bottle, error) {
	return nil, nil
}

func newTestService(repo *mockBottleRepo, clk *clock.Clock) *Service {
	return NewService(repo, security.NewContentSanitizer(), clk, nil)
}

// 正常な本文の投稿が成功することを検証
func TestService_Post_Success(t *testing.T) {
	var created *model.Bottle
	repo := &mockBottleRepo{
		createFn: func(ctx context.Context, bottle *model.Bottle) error {
			bottle.ID = 10
			created = bottle
			return nil
		},
	}
	s := newTestService(repo, fixedClock(t, "2025-06-01 12:00:00"))

	bottle, err := s.Post(context.Background(), "author-1", "  こんにちは、海  ")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if bottle.ID != 10 {
		t.Errorf("bottle.ID = %d, want 10", bottle.ID)
	}
	if created.Content != "こんにちは、海" {
		t.Errorf("stored content = %q, want trimmed %q", created.Content, "こんにちは、海")
	}
	if created.AuthorID == nil || *created.AuthorID != "author-1" {
		t.Errorf("stored author = %v, want author-1", created.AuthorID)
	}
}

// HTMLマークアップがサニタイズで除去されることを検証
func TestService_Post_SanitizesMarkup(t *testing.T) {
	var created *model.Bottle
	repo := &mockBottleRepo{
		createFn: func(ctx context.Context, bottle *model.Bottle) error {
			created = bottle
			return nil
		},
	}
	s := newTestService(repo, fixedClock(t, "2025-06-01 12:00:00"))

	if _, err := s.Post(context.Background(), "author-1", `<b>hello</b><script>alert("x")</script>`); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if created.Content != "hello" {
		t.Errorf("stored content = %q, want %q", created.Content, "hello")
	}
}

// サニタイズ後に空になる本文はcontent_requiredになることを検証
func TestService_Post_EmptyAfterSanitize(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"空文字", ""},
		{"空白のみ", "   　  "},
		{"マークアップのみ", "<script>alert(1)</script>"},
	}

	s := newTestService(&mockBottleRepo{}, fixedClock(t, "2025-06-01 12:00:00"))

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Post(context.Background(), "author-1", tc.content)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeContentRequired {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeContentRequired)
			}
		})
	}
}

// 90文字境界の検証: 90文字は成功、91文字はcontent_too_long
func TestService_Post_ContentLengthBoundary(t *testing.T) {
	repo := &mockBottleRepo{}
	s := newTestService(repo, fixedClock(t, "2025-06-01 12:00:00"))

	exactly := strings.Repeat("あ", model.ContentPostMaxLength)
	if _, err := s.Post(context.Background(), "author-1", exactly); err != nil {
		t.Errorf("content of %d runes should be accepted, got error: %v", model.ContentPostMaxLength, err)
	}

	tooLong := strings.Repeat("あ", model.ContentPostMaxLength+1)
	_, err := s.Post(context.Background(), "author-1", tooLong)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeContentTooLong {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeContentTooLong)
	}
}

// 1日の投稿上限に達している場合はdaily_limit_reachedになることを検証
func TestService_Post_DailyLimitReached(t *testing.T) {
	createCalled := false
	repo := &mockBottleRepo{
		countByAuthorBetweenFn: func(ctx context.Context, authorID string, start, end time.Time) (int, error) {
			return model.DailyPostLimit, nil
		},
		createFn: func(ctx context.Context, bottle *model.Bottle) error {
			createCalled = true
			return nil
		},
	}
	s := newTestService(repo, fixedClock(t, "2025-06-01 12:00:00"))

	_, err := s.Post(context.Background(), "author-1", "4本目")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDailyLimitReached {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeDailyLimitReached)
	}
	if createCalled {
		t.Error("expected no bottle to be created")
	}
}

// 上限カウントが配達日と同じ暦日ウィンドウで行われることを検証
func TestService_Post_CountsWithinDayWindow(t *testing.T) {
	clk := fixedClock(t, "2025-06-01 23:30:00")
	var gotStart, gotEnd time.Time
	repo := &mockBottleRepo{
		countByAuthorBetweenFn: func(ctx context.Context, authorID string, start, end time.Time) (int, error) {
			gotStart, gotEnd = start, end
			return 0, nil
		},
	}
	s := newTestService(repo, clk)

	if _, err := s.Post(context.Background(), "author-1", "hello"); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}

	wantStart, wantEnd := clk.DayWindow()
	if !gotStart.Equal(wantStart) || !gotEnd.Equal(wantEnd) {
		t.Errorf("count window = [%v, %v), want [%v, %v)", gotStart, gotEnd, wantStart, wantEnd)
	}
}

// 上限まで投稿した翌日は再び投稿できることを検証
func TestService_Post_LimitResetsNextDay(t *testing.T) {
	var stored []*model.Bottle
	repo := &mockBottleRepo{
		createFn: func(ctx context.Context, bottle *model.Bottle) error {
			copied := *bottle
			stored = append(stored, &copied)
			return nil
		},
		countByAuthorBetweenFn: func(ctx context.Context, authorID string, start, end time.Time) (int, error) {
			count := 0
			for _, b := range stored {
				if !b.CreatedAt.Before(start) && b.CreatedAt.Before(end) {
					count++
				}
			}
			return count, nil
		},
	}

	day1 := newTestService(repo, fixedClock(t, "2025-06-01 22:00:00"))
	for i := 0; i < model.DailyPostLimit; i++ {
		if _, err := day1.Post(context.Background(), "author-1", "day1"); err != nil {
			t.Fatalf("post %d on day1 returned error: %v", i+1, err)
		}
	}
	if _, err := day1.Post(context.Background(), "author-1", "4本目"); err == nil {
		t.Fatal("4th post on day1 should hit the daily limit")
	}

	// 日付が変わればカウントはリセットされる
	day2 := newTestService(repo, fixedClock(t, "2025-06-02 00:30:00"))
	if _, err := day2.Post(context.Background(), "author-1", "day2"); err != nil {
		t.Fatalf("post on day2 returned error: %v", err)
	}
}

// 通報がカウントを+1し、結果を返すことを検証
func TestService_Report_Increments(t *testing.T) {
	repo := &mockBottleRepo{
		incrementReportFn: func(ctx context.Context, id int64, threshold int) (*model.Bottle, error) {
			if threshold != model.HideReportThreshold {
				t.Errorf("threshold = %d, want %d", threshold, model.HideReportThreshold)
			}
			return &model.Bottle{ID: id, Content: "x", ReportCount: 1}, nil
		},
	}
	s := newTestService(repo, fixedClock(t, "2025-06-01 12:00:00"))

	bottle, err := s.Report(context.Background(), 7)
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if bottle.ReportCount != 1 {
		t.Errorf("ReportCount = %d, want 1", bottle.ReportCount)
	}
	if bottle.Hidden {
		t.Error("bottle should not be hidden after a single report")
	}
}

// 閾値に達した通報でボトルが非表示になることを検証
func TestService_Report_HidesAtThreshold(t *testing.T) {
	repo := &mockBottleRepo{
		incrementReportFn: func(ctx context.Context, id int64, threshold int) (*model.Bottle, error) {
			return &model.Bottle{ID: id, ReportCount: threshold, Hidden: true}, nil
		},
	}
	s := newTestService(repo, fixedClock(t, "2025-06-01 12:00:00"))

	bottle, err := s.Report(context.Background(), 7)
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if !bottle.Hidden {
		t.Error("bottle should be hidden at the report threshold")
	}
}

// 存在しないボトルへの通報はbottle_not_foundになることを検証
func TestService_Report_NotFound(t *testing.T) {
	s := newTestService(&mockBottleRepo{}, fixedClock(t, "2025-06-01 12:00:00"))

	_, err := s.Report(context.Background(), 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeBottleNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeBottleNotFound)
	}
}

// Getは見つからない場合nilを返すことを検証
func TestService_Get_NotFound(t *testing.T) {
	s := newTestService(&mockBottleRepo{}, fixedClock(t, "2025-06-01 12:00:00"))

	bottle, err := s.Get(context.Background(), 123)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if bottle != nil {
		t.Errorf("bottle = %+v, want nil", bottle)
	}
}
