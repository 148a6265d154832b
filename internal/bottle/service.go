// Package bottle はボトルの投稿・通報・参照のドメインロジックを提供する。
package bottle

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hitoshi/driftbottle/internal/clock"
	"github.com/hitoshi/driftbottle/internal/metrics"
	"github.com/hitoshi/driftbottle/internal/model"
	"github.com/hitoshi/driftbottle/internal/repository"
	"github.com/hitoshi/driftbottle/internal/security"
)

// Service はボトルのサービス層。
// 投稿レート制限（1日3本、固定タイムゾーン基準）と
// 通報による非表示化（3件で非表示）を担う。
type Service struct {
	bottleRepo repository.BottleRepository
	sanitizer  security.ContentSanitizerService
	clk        *clock.Clock
	collector  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよい（テスト時はメトリクス記録をスキップする）。
func NewService(
	bottleRepo repository.BottleRepository,
	sanitizer security.ContentSanitizerService,
	clk *clock.Clock,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		bottleRepo: bottleRepo,
		sanitizer:  sanitizer,
		clk:        clk,
		collector:  collector,
	}
}

// Post は本文を検証してボトルを投稿する。
// 本文はサニタイズ（マークアップ除去＋トリム）後に1〜90文字であること。
// 保存カラムの容量は2000文字だが、投稿エンドポイントの上限は90文字で
// この非対称は意図的に維持する。
// 投稿者は配達日と同じ固定タイムゾーン基準で1日3本まで投稿できる。
func (s *Service) Post(ctx context.Context, authorID, content string) (*model.Bottle, error) {
	content = s.sanitizer.Sanitize(content)
	if content == "" {
		return nil, model.NewContentRequiredError()
	}
	if utf8.RuneCountInString(content) > model.ContentPostMaxLength {
		return nil, model.NewContentTooLongError()
	}

	// 投稿レート制限: 今日の投稿本数をDBでカウントする
	start, end := s.clk.DayWindow()
	count, err := s.bottleRepo.CountByAuthorBetween(ctx, authorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("投稿数のカウントに失敗しました: %w", err)
	}
	if count >= model.DailyPostLimit {
		return nil, model.NewDailyLimitReachedError()
	}

	bottle := &model.Bottle{
		AuthorID:  &authorID,
		Content:   content,
		CreatedAt: s.clk.Now(),
	}
	if err := s.bottleRepo.Create(ctx, bottle); err != nil {
		return nil, fmt.Errorf("ボトルの作成に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordBottlePosted()
	}

	slog.Info("bottle posted",
		slog.Int64("bottle_id", bottle.ID),
		slog.String("author_id", authorID),
	)

	return bottle, nil
}

// Get は指定IDのボトルを取得する。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Bottle, error) {
	bottle, err := s.bottleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ボトルの取得に失敗しました: %w", err)
	}
	return bottle, nil
}

// Report はボトルの通報カウントを+1し、閾値（3件）に達したら非表示にする。
// 通報者ごとの重複排除は行わない。同一呼び出し元の繰り返し通報も
// 独立してカウントされる。
func (s *Service) Report(ctx context.Context, bottleID int64) (*model.Bottle, error) {
	bottle, err := s.bottleRepo.IncrementReport(ctx, bottleID, model.HideReportThreshold)
	if err != nil {
		return nil, fmt.Errorf("通報の記録に失敗しました: %w", err)
	}
	if bottle == nil {
		return nil, model.NewBottleNotFoundError(bottleID)
	}

	if s.collector != nil {
		s.collector.RecordReport()
		// ちょうど閾値に達した通報でのみ非表示化を記録する
		if bottle.Hidden && bottle.ReportCount == model.HideReportThreshold {
			s.collector.RecordBottleHidden()
		}
	}

	if bottle.Hidden {
		slog.Info("bottle hidden by reports",
			slog.Int64("bottle_id", bottle.ID),
			slog.Int("report_count", bottle.ReportCount),
		)
	}

	return bottle, nil
}
