package webinars

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CombineDateTime merges a date ("2006-01-02"), a 12-hour clock time
// ("03:04"), and a meridiem designator ("AM"/"PM") into one instant in UTC.
// Hour 12 AM maps to 0; PM hours below 12 get +12.
func CombineDateTime(date, clock, meridiem string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}

	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 1 || hour > 12 {
		return time.Time{}, fmt.Errorf("invalid hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute %q", parts[1])
	}

	switch strings.ToUpper(strings.TrimSpace(meridiem)) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 12 {
			hour += 12
		}
	default:
		return time.Time{}, fmt.Errorf("invalid meridiem %q", meridiem)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), nil
}
