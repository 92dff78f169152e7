// Package calendar はカレンダー日付（Asia/Seoul基準）の変換を提供する。
// 日付はすべて "YYYY-MM-DD" 形式の文字列として扱い、
// 呼び出し元のローカルタイムゾーンに依存しない。
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout はカレンダー日付の文字列フォーマット。
const Layout = "2006-01-02"

// seoulOffset はAsia/SeoulのUTCからの固定オフセット。
// 韓国標準時は夏時間を持たないため固定値で扱う。
const seoulOffset = 9 * time.Hour

// Seoul はAsia/Seoul相当の固定タイムゾーン。
// tzdataに依存せずに済むようFixedZoneで表現する。
var Seoul = time.FixedZone("Asia/Seoul", int(seoulOffset/time.Second))

// Day はAsia/Seoul基準のカレンダー日付を表す（YYYY-MM-DD）。
type Day string

// DayOf は指定時刻をAsia/Seoulのカレンダー日付に変換する。
// UTC時刻に9時間を加算してから日付部分を切り出す。
// 例: 2024-01-01T16:00:00Z は 2024-01-02 になる。
func DayOf(t time.Time) Day {
	return Day(t.UTC().Add(seoulOffset).Format(Layout))
}

// Today は現在時刻のAsia/Seoulカレンダー日付を返す。
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay は "YYYY-MM-DD" 形式の文字列をDayに変換する。
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid calendar day %q: %w", s, err)
	}
	return Day(t.Format(Layout)), nil
}

// String はDayの文字列表現を返す。
func (d Day) String() string {
	return string(d)
}

// IsZero は日付が未設定かを返す。
func (d Day) IsZero() bool {
	return d == ""
}

// Time はDayをAsia/Seoulの0時ちょうどの時刻に変換する。
// 不正な日付の場合はゼロ値を返す。
func (d Day) Time() time.Time {
	t, err := time.ParseInLocation(Layout, string(d), Seoul)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays はn日後のDayを返す。
func (d Day) AddDays(n int) Day {
	return Day(d.Time().AddDate(0, 0, n).Format(Layout))
}

// DaysUntil はdからtargetまでの日数を返す。targetが過去なら負数になる。
func (d Day) DaysUntil(target Day) int {
	return int(target.Time().Sub(d.Time()).Hours() / 24)
}

// Scan はsql.Scannerを実装する。
// PostgreSQLのDATE型（time.Time）と文字列の両方を受け付ける。
func (d *Day) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		// DATE型はタイムゾーンを持たないため、日付部分のみを採用する
		*d = Day(v.Format(Layout))
	case string:
		parsed, err := parseStored(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := parseStored(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("cannot scan %T into calendar.Day", src)
	}
	return nil
}

// Value はdriver.Valuerを実装する。未設定の場合はNULLになる。
func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return string(d), nil
}

// parseStored はDBから読み出した文字列を日付に変換する。
// "2024-01-02T00:00:00Z" のようなタイムスタンプ表現も先頭10文字で扱う。
func parseStored(s string) (Day, error) {
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	return ParseDay(s)
}
