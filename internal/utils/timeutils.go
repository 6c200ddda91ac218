package utils

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate returns a UTC midnight time from a YYYY-MM-DD string.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return t, nil
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDayValue interprets a sales-table day cell: either a YYYY-MM-DD date or
// an integer day offset from the supplied origin.
func ParseDayValue(value string, origin time.Time) (time.Time, error) {
	if offset, err := strconv.Atoi(value); err == nil {
		return origin.AddDate(0, 0, offset), nil
	}
	return ParseDate(value)
}
