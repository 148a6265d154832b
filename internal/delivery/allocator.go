// Package delivery は1日1通の配達割り当てロジックを提供する。
//
// 不変条件:
//   - あるIdentityのある暦日に対する配達は高々1件
//     （DBのユニークインデックスで強制する）
//   - 同じボトルは同じIdentityに生涯二度と届かない
//   - 同一日の再リクエストは同じボトルを決定的に返す
//
// 並行リクエストの調停はアプリケーションロックではなくストレージの
// ユニーク制約に委ねる。INSERTで敗れた側は既存の配達記録を読み直して
// リトライするため、複数プロセス構成でも不変条件が成立する。
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/driftbottle/internal/clock"
	"github.com/hitoshi/driftbottle/internal/metrics"
	"github.com/hitoshi/driftbottle/internal/model"
	"github.com/hitoshi/driftbottle/internal/repository"
)

// EmptySeaMessage は候補ボトルが存在しない場合の案内メッセージ。
const EmptySeaMessage = "まだ海にボトルがない。君が最初の1本を流していい。"

// maxAllocateAttempts は割り当てループの最大試行回数。
// 1回の競合敗北は次のループで既存配達の読み直しにより解決するため、
// 通常は2回目で必ず返る。超過は想定外の状態を意味する。
const maxAllocateAttempts = 3

// DailyBottle は「今日のボトル」リクエストの結果。
// 候補が存在しない場合はBottleがnilになり、Messageに案内文が入る。
type DailyBottle struct {
	Date    string
	Bottle  *model.Bottle
	Message string
}

// Allocator は配達割り当てのサービス層。
type Allocator struct {
	identityRepo repository.IdentityRepository
	bottleRepo   repository.BottleRepository
	deliveryRepo repository.DeliveryRepository
	clk          *clock.Clock
	collector    metrics.MetricsCollector
}

// NewAllocator はAllocatorの新しいインスタンスを生成する。
// collectorはnilでもよい（テスト時はメトリクス記録をスキップする）。
func NewAllocator(
	identityRepo repository.IdentityRepository,
	bottleRepo repository.BottleRepository,
	deliveryRepo repository.DeliveryRepository,
	clk *clock.Clock,
	collector metrics.MetricsCollector,
) *Allocator {
	return &Allocator{
		identityRepo: identityRepo,
		bottleRepo:   bottleRepo,
		deliveryRepo: deliveryRepo,
		clk:          clk,
		collector:    collector,
	}
}

// GetTodaysBottle は指定Identityの「今日のボトル」を返す。
// 今日の配達が既に存在すればそのボトルを、なければ未配達・非hiddenの
// ボトルから一様ランダムに1本選んで配達記録を作成して返す。
// 候補が存在しない場合は配達記録を作らず案内メッセージを返す。
//
// Identityが解決できない場合はunknown_identityのAPIErrorを返す。
// 境界側はこれを受けてCookieを破棄させる必要がある。
func (a *Allocator) GetTodaysBottle(ctx context.Context, identityID string) (*DailyBottle, error) {
	today := a.clk.Today()

	// 1. Identityの解決
	identity, err := a.identityRepo.FindByID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("Identityの取得に失敗しました: %w", err)
	}
	if identity == nil {
		return nil, model.NewUnknownIdentityError()
	}

	// 2. last_seen_atの更新
	if err := a.identityRepo.Touch(ctx, identityID, a.clk.Now()); err != nil {
		return nil, fmt.Errorf("last_seen_atの更新に失敗しました: %w", err)
	}

	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		// 3. 今日の配達の読み取り
		existing, err := a.deliveryRepo.FindByIdentityAndDay(ctx, identityID, today)
		if err != nil {
			return nil, fmt.Errorf("配達記録の取得に失敗しました: %w", err)
		}

		if existing != nil {
			bottle, err := a.bottleRepo.FindByID(ctx, existing.BottleID)
			if err != nil {
				return nil, fmt.Errorf("配達済みボトルの取得に失敗しました: %w", err)
			}

			if bottle != nil && !bottle.Hidden {
				// 同一日の再リクエストは同じボトルを返す
				return &DailyBottle{Date: today, Bottle: bottle}, nil
			}

			// 配達済みボトルが消えた/非表示になった場合の自己修復:
			// 配達記録を削除して未配達として割り当てをやり直す。
			// 配達記録が作成後に削除されるのはここだけ。
			if err := a.deliveryRepo.DeleteByID(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("配達記録の削除に失敗しました: %w", err)
			}
			if a.collector != nil {
				a.collector.RecordSelfHealing()
			}
			slog.Info("stale delivery removed, reallocating",
				slog.String("identity_id", identityID),
				slog.Int64("bottle_id", existing.BottleID),
				slog.String("delivered_on", existing.DeliveredOn),
			)
		}

		// 4. 候補の選定: hiddenでなく、このIdentityへ過去に一度も
		//    配達されていないボトルから一様ランダムに1本
		candidate, err := a.bottleRepo.FindRandomCandidate(ctx, identityID)
		if err != nil {
			return nil, fmt.Errorf("候補ボトルの選定に失敗しました: %w", err)
		}

		// 5. 候補枯渇: 配達記録は作らない
		if candidate == nil {
			if a.collector != nil {
				a.collector.RecordEmptySea()
			}
			return &DailyBottle{Date: today, Message: EmptySeaMessage}, nil
		}

		// 6. 配達記録の作成
		d := &model.Delivery{
			IdentityID:  identityID,
			BottleID:    candidate.ID,
			DeliveredOn: today,
			DeliveredAt: a.clk.Now(),
		}
		err = a.deliveryRepo.Create(ctx, d)
		if err == nil {
			if a.collector != nil {
				a.collector.RecordDelivery()
			}
			slog.Info("bottle delivered",
				slog.String("identity_id", identityID),
				slog.Int64("bottle_id", candidate.ID),
				slog.String("delivered_on", today),
			)
			return &DailyBottle{Date: today, Bottle: candidate}, nil
		}

		if errors.Is(err, repository.ErrDeliveryExists) {
			// 同一Identityの並行リクエストに敗れた。勝者が作成した
			// 配達記録を読み直して返すため、ループ先頭に戻る。
			// この競合は呼び出し元には一切露出しない。
			if a.collector != nil {
				a.collector.RecordAllocationConflict()
			}
			slog.Info("allocation conflict, re-reading existing delivery",
				slog.String("identity_id", identityID),
				slog.String("delivered_on", today),
			)
			continue
		}

		return nil, fmt.Errorf("配達記録の作成に失敗しました: %w", err)
	}

	return nil, fmt.Errorf("配達の割り当てが%d回の試行でも収束しませんでした: identity=%s", maxAllocateAttempts, identityID)
}
