// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/driftbottle/internal/model"
)

// ErrDeliveryExists は (identity_id, delivered_on) のユニーク制約違反を表す。
// 同一IdentityのDayに対する並行割り当ての敗者がこのエラーを受け取り、
// アロケータは既存の配達記録を読み直してリトライする。呼び出し元の
// クライアントには決して露出しない。
var ErrDeliveryExists = errors.New("delivery already exists for identity and day")

// IdentityRepository は匿名Identityの永続化インターフェース。
type IdentityRepository interface {
	// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// Create はIdentityを作成する。
	Create(ctx context.Context, identity *model.Identity) error

	// Touch はlast_seen_atを指定時刻に更新する。
	Touch(ctx context.Context, id string, seenAt time.Time) error
}

// BottleRepository はボトルデータの永続化インターフェース。
type BottleRepository interface {
	// FindByID は指定IDのボトルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Bottle, error)

	// Create はボトルを作成し、採番されたIDをbottle.IDに書き戻す。
	Create(ctx context.Context, bottle *model.Bottle) error

	// IncrementReport は通報カウントをアトミックに+1し、新カウントが
	// 閾値以上ならhiddenをtrueにする。更新後のボトルを返す。
	// 見つからない場合はnilを返す。
	IncrementReport(ctx context.Context, id int64, threshold int) (*model.Bottle, error)

	// CountByAuthorBetween は指定authorが [start, end) に投稿した本数を返す。
	// 投稿レート制限の判定に使用する。
	CountByAuthorBetween(ctx context.Context, authorID string, start, end time.Time) (int, error)

	// FindRandomCandidate は「hiddenでなく、かつ指定Identityへ過去に一度も
	// 配達されていない」ボトルから一様ランダムに1本を返す。
	// 候補が存在しない場合はnilを返す。
	FindRandomCandidate(ctx context.Context, identityID string) (*model.Bottle, error)
}

// DeliveryRepository は配達台帳の永続化インターフェース。
type DeliveryRepository interface {
	// FindByIdentityAndDay は指定Identityの指定暦日の配達を取得する。
	// 見つからない場合はnilを返す。
	FindByIdentityAndDay(ctx context.Context, identityID, day string) (*model.Delivery, error)

	// Create は配達記録を作成し、採番されたIDをdelivery.IDに書き戻す。
	// (identity_id, delivered_on) が既に存在する場合はErrDeliveryExistsを返す。
	Create(ctx context.Context, delivery *model.Delivery) error

	// DeleteByID は指定IDの配達記録を削除する。
	// 配達済みボトルが後から非表示になった場合の自己修復でのみ使用する。
	DeleteByID(ctx context.Context, id int64) error
}
