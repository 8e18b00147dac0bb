// utils/dates.go
package utils

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// WeekRange returns the Monday-to-Saturday working week containing t as
// [start, end). A Sunday belongs to the week that just ended.
func WeekRange(t time.Time) (time.Time, time.Time) {
	day := BeginningOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

func YearRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(1, 0, 0)
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "03:04 PM", "3:04 pm", "3 PM", "3PM"}

// ParseClock reads a time of day written either as 24-hour "14:30" or
// 12-hour "2:30 PM". An empty string yields nil.
func ParseClock(s string) (*datatypes.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, upper)
		if err != nil {
			t, err = time.Parse(layout, s)
		}
		if err == nil {
			v := datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0)
			return &v, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q", s)
}
