// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はCookieで保持される匿名の仮アカウントを表す。
// IDは推測不能なUUID文字列で、実世界の身元とは紐付かない。
type Identity struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// DisplayNameMaxLength はニックネームの最大文字数。
const DisplayNameMaxLength = 32
