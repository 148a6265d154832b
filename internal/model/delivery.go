// Package model はドメインモデルを定義する。
package model

import "time"

// Delivery は「どのIdentityに、どの日、どのBottleが届いたか」を記録する
// 配達台帳のエントリ。(IdentityID, DeliveredOn) の組はDBのユニーク制約で
// 高々1件に制限される。作成後は不変で、配達済みボトルが後から非表示に
// なった場合の再割り当て時にのみ削除される。
type Delivery struct {
	ID          int64
	IdentityID  string
	BottleID    int64
	DeliveredOn string // 固定タイムゾーン基準の暦日（"2006-01-02"形式）
	DeliveredAt time.Time
}
