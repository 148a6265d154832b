// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, bottle, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNicknameRequired  = "nickname_required"
	ErrCodeNicknameTooLong   = "nickname_too_long"
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeContentRequired   = "content_required"
	ErrCodeContentTooLong    = "content_too_long"
	ErrCodeDailyLimitReached = "daily_limit_reached"
	ErrCodeBottleNotFound    = "bottle_not_found"
	ErrCodeUnknownIdentity   = "unknown_identity"
	ErrCodeInternalError     = "internal_error"
)

// NewNicknameRequiredError はニックネーム未入力エラーを生成する。
func NewNicknameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeNicknameRequired,
		Message:  "ニックネームを入力してください。",
		Category: "validation",
		Action:   "1文字以上のニックネームを入力してください。",
	}
}

// NewNicknameTooLongError はニックネーム文字数超過エラーを生成する。
func NewNicknameTooLongError() *APIError {
	return &APIError{
		Code:     ErrCodeNicknameTooLong,
		Message:  fmt.Sprintf("ニックネームが長すぎます（最大%d文字）。", DisplayNameMaxLength),
		Category: "validation",
		Action:   fmt.Sprintf("%d文字以内のニックネームを入力してください。", DisplayNameMaxLength),
	}
}

// NewContentRequiredError は本文未入力エラーを生成する。
func NewContentRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeContentRequired,
		Message:  "ボトルの本文を入力してください。",
		Category: "validation",
		Action:   "1文字以上の本文を入力してください。",
	}
}

// NewContentTooLongError は本文文字数超過エラーを生成する。
func NewContentTooLongError() *APIError {
	return &APIError{
		Code:     ErrCodeContentTooLong,
		Message:  fmt.Sprintf("本文が長すぎます（最大%d文字）。", ContentPostMaxLength),
		Category: "validation",
		Action:   fmt.Sprintf("%d文字以内で入力してください。", ContentPostMaxLength),
	}
}

// NewDailyLimitReachedError は1日の投稿上限到達エラーを生成する。
func NewDailyLimitReachedError() *APIError {
	return &APIError{
		Code:     ErrCodeDailyLimitReached,
		Message:  fmt.Sprintf("本日の投稿上限（%d本）に達しています。", DailyPostLimit),
		Category: "bottle",
		Action:   "日付が変わってから再度投稿してください。",
	}
}

// NewBottleNotFoundError はボトル未検出エラーを生成する。
func NewBottleNotFoundError(bottleID int64) *APIError {
	return &APIError{
		Code:     ErrCodeBottleNotFound,
		Message:  fmt.Sprintf("指定されたボトルが見つかりません: %d", bottleID),
		Category: "bottle",
		Action:   "ボトルIDを確認してください。",
	}
}

// NewUnknownIdentityError は無効な匿名IDエラーを生成する。
// 境界側はこのエラーを受けてCookieを破棄させる必要がある。
func NewUnknownIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeUnknownIdentity,
		Message:  "匿名IDが無効です。",
		Category: "auth",
		Action:   "ニックネームを登録し直してください。",
	}
}
