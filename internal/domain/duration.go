package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var durationUnits = map[rune]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDuration parses compact durations like "30s", "1h30m", "1.5d" or "2w".
//
// Each number must be followed by a unit (s, m, h, d, w) except the last,
// which is read as seconds when the unit is omitted. The total must be
// positive and fit in a time.Duration (about 292 years). Errors wrap ErrInvalidDuration.
func ParseDuration(s string) (time.Duration, error) {
	var (
		total float64
		num   strings.Builder
	)

	flush := func(unit time.Duration) error {
		v, err := strconv.ParseFloat(num.String(), 64)
		if err != nil {
			return fmt.Errorf("%w: bad number %q", ErrInvalidDuration, num.String())
		}
		total += v * float64(unit)
		num.Reset()
		return nil
	}

	for _, c := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case c >= '0' && c <= '9', c == '.':
			num.WriteRune(c)
		case durationUnits[c] != 0:
			if num.Len() == 0 {
				return 0, fmt.Errorf("%w: number missing before %q", ErrInvalidDuration, c)
			}
			if err := flush(durationUnits[c]); err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("%w: invalid time unit %q", ErrInvalidDuration, c)
		}
	}

	if num.Len() > 0 {
		if err := flush(time.Second); err != nil {
			return 0, err
		}
	}

	if total >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: time is out of range", ErrInvalidDuration)
	}
	d := time.Duration(total)
	if d <= 0 {
		return 0, fmt.Errorf("%w: time must be positive", ErrInvalidDuration)
	}
	return d, nil
}

var formatUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// FormatDuration renders d as "1w 2d 3h 4m 5s", omitting zero components.
// Sub-second remainders are dropped; non-positive durations render as "0s".
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return "0s"
	}

	parts := make([]string, 0, len(formatUnits))
	for _, f := range formatUnits {
		if n := d / f.unit; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, f.suffix))
			d -= n * f.unit
		}
	}
	return strings.Join(parts, " ")
}
