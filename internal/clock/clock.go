// Package clock は固定タイムゾーン基準の「今日」を提供する。
//
// 配達の1日1通ルールと投稿レート制限は、呼び出し元のローカル時刻ではなく
// 単一の正準な壁時計（デフォルトはAsia/Tokyo）で日付が切り替わる。
// 全Identityが同じ瞬間に新しい配達日へロールオーバーする。
package clock

import (
	"fmt"
	"time"
)

// DateFormat は暦日の文字列表現フォーマット。DBのDATE型と対応する。
const DateFormat = "2006-01-02"

// Clock は固定タイムゾーンでの現在時刻と暦日を提供する。
type Clock struct {
	loc   *time.Location
	nowFn func() time.Time
}

// New は指定タイムゾーン名のClockを生成する。
// タイムゾーン名が解決できない場合はエラーを返す。
func New(tzName string) (*Clock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tzName, err)
	}
	return &Clock{loc: loc, nowFn: time.Now}, nil
}

// NewFixed は固定時刻を返すClockを生成する。テスト用。
func NewFixed(now time.Time, loc *time.Location) *Clock {
	return &Clock{loc: loc, nowFn: func() time.Time { return now }}
}

// Now は現在時刻を固定タイムゾーンで返す。
func (c *Clock) Now() time.Time {
	return c.nowFn().In(c.loc)
}

// Today は固定タイムゾーン基準の今日の暦日を"2006-01-02"形式で返す。
func (c *Clock) Today() string {
	return c.Now().Format(DateFormat)
}

// DayWindow は固定タイムゾーン基準の今日1日の時間範囲 [start, end) を返す。
// 投稿レート制限のカウント範囲として使用する。
func (c *Clock) DayWindow() (start, end time.Time) {
	now := c.Now()
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	end = start.AddDate(0, 0, 1)
	return start, end
}

// Location は固定タイムゾーンを返す。
func (c *Clock) Location() *time.Location {
	return c.loc
}
