package features

import (
	"time"

	"github.com/crimson-sun/blotter/internal/model"
)

// DateTimeLayout is the only accepted report timestamp format.
const DateTimeLayout = "2006-01-02 15:04:05"

// Temporal holds the features derived from the report timestamp.
type Temporal struct {
	Year      int
	Month     int
	Hour      int
	DayOfWeek string
}

// ParseDateTime derives temporal features from s. On any parse failure it
// returns zeros and DayOfWeek "Unknown".
func ParseDateTime(s string) Temporal {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return Temporal{DayOfWeek: model.Unknown}
	}
	return Temporal{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Hour:      t.Hour(),
		DayOfWeek: t.Weekday().String(),
	}
}

// IsWeekend returns 1 for Saturday or Sunday, else 0.
func IsWeekend(day string) int {
	if day == "Saturday" || day == "Sunday" {
		return 1
	}
	return 0
}

var peakHours = map[int]bool{12: true, 17: true, 18: true}

// IsPeakHour returns 1 when hour is one of the peak hours (12, 17, 18), else 0.
func IsPeakHour(hour int) int {
	if peakHours[hour] {
		return 1
	}
	return 0
}
