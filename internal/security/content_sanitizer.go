// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はボトル本文からマークアップを除去し、
// 蓄積型XSSからボトルの受け取り手を保護する。ボトルはプレーンテキスト
// 専用のため、許可リストではなく全タグ除去のStrictPolicyを使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はボトル本文のサニタイズ機能のインターフェースを定義する。
// 投稿の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// タグ除去後のエンティティはデコードし、前後の空白をトリムする。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはいかなるタグ・属性も許可しない。script, img, aなどは
// テキストのみ残して除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からマークアップを除去したプレーンテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	// StrictPolicyは残したテキストをエンティティエスケープするため、
	// プレーンテキストとして保存する前にデコードして戻す。
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
