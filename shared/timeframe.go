package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	FifteenMinute
	OneHour
	FourHour
	OneDay
	OneWeek
	OneMonth
)

// Timeframes lists every supported timeframe, shortest first.
var Timeframes = []Timeframe{OneMinute, FiveMinute, FifteenMinute, OneHour, FourHour, OneDay, OneWeek, OneMonth}

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case OneHour:
		return "1h"
	case FourHour:
		return "4h"
	case OneDay:
		return "1d"
	case OneWeek:
		return "1w"
	case OneMonth:
		return "1M"
	default:
		return "unknown"
	}
}

// ParseTimeframe parses the provided timeframe string. Hour, day and week
// suffixes are case insensitive, the month suffix must be an upper case M
// since a lower case m denotes minutes.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("timeframe cannot be an empty string")
	}

	switch s {
	case "1M":
		return OneMonth, nil
	case "1m":
		return OneMinute, nil
	}

	switch strings.ToLower(s) {
	case "5m":
		return FiveMinute, nil
	case "15m":
		return FifteenMinute, nil
	case "1h":
		return OneHour, nil
	case "4h":
		return FourHour, nil
	case "1d":
		return OneDay, nil
	case "1w":
		return OneWeek, nil
	default:
		return 0, fmt.Errorf("unknown timeframe provided: %s", s)
	}
}

// ParseTimeframes parses a collection of timeframe strings.
func ParseTimeframes(set []string) ([]Timeframe, error) {
	timeframes := make([]Timeframe, 0, len(set))
	for idx := range set {
		tf, err := ParseTimeframe(set[idx])
		if err != nil {
			return nil, err
		}

		timeframes = append(timeframes, tf)
	}

	return timeframes, nil
}

// Duration returns the nominal length of the timeframe. A month is
// nominally 30 days, use Truncate for calendar alignment.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case OneMinute:
		return time.Minute
	case FiveMinute:
		return time.Minute * 5
	case FifteenMinute:
		return time.Minute * 15
	case OneHour:
		return time.Hour
	case FourHour:
		return time.Hour * 4
	case OneDay:
		return time.Hour * 24
	case OneWeek:
		return time.Hour * 24 * 7
	case OneMonth:
		return time.Hour * 24 * 30
	default:
		return 0
	}
}

// Truncate aligns the provided time to the start of the timeframe bucket
// containing it, in UTC. Weeks start on monday and months on the first
// calendar day.
func (t Timeframe) Truncate(at time.Time) time.Time {
	at = at.UTC()

	switch t {
	case OneMonth:
		return time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	case OneWeek:
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		d := t.Duration()
		if d == 0 {
			return at
		}
		return at.Truncate(d)
	}
}
