// Package model はドメインモデルを定義する。
package model

import "time"

// Bottle は海に流された1通のテキスト投稿を表す。
// AuthorIDは完全匿名投稿を許容するためnullable。
type Bottle struct {
	ID          int64
	AuthorID    *string
	Content     string
	CreatedAt   time.Time
	Hidden      bool
	ReportCount int
}

const (
	// ContentPostMaxLength は投稿エンドポイントが受け付ける本文の最大文字数。
	ContentPostMaxLength = 90

	// ContentStorageMaxLength はDBカラムの本文最大文字数。
	// 投稿上限(90)より大きいが、この非対称は元仕様のまま維持する。
	ContentStorageMaxLength = 2000

	// HideReportThreshold は通報によりボトルを非表示にする閾値。
	HideReportThreshold = 3

	// DailyPostLimit は1日あたりの投稿上限本数。
	DailyPostLimit = 3
)
