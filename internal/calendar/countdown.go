package calendar

import (
	"fmt"
	"time"
)

// Countdown はD-Dayのカウントダウン表記を返す。
// 目標日が未来なら "D-3"、当日なら "D-Day"、過去なら "D+2" となる。
func Countdown(today, target Day) string {
	diff := today.DaysUntil(target)
	switch {
	case diff > 0:
		return fmt.Sprintf("D-%d", diff)
	case diff == 0:
		return "D-Day"
	default:
		return fmt.Sprintf("D+%d", -diff)
	}
}

// MonthRange は "YYYY-MM" 形式の月の初日と末日を返す。
func MonthRange(month string) (Day, Day, error) {
	t, err := time.ParseInLocation("2006-01", month, Seoul)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: %w", month, err)
	}
	first := Day(t.Format(Layout))
	last := Day(t.AddDate(0, 1, -1).Format(Layout))
	return first, last, nil
}
