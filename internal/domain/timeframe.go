package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultTimeframe is used when a caller does not name a forecast horizon.
const DefaultTimeframe = "30d"

// ErrInvalidTimeframe is returned for horizons that are not "<n>d", "<n>w", "<n>m" or "<n>y".
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// MaxTimeframeDays caps a horizon at ten years.
const MaxTimeframeDays = 3650

var timeframeUnitDays = map[byte]int{
	'd': 1,
	'w': 7,
	'm': 30,
	'y': 365,
}

// ParseTimeframe converts a horizon such as "30d" or "2w" into days.
func ParseTimeframe(tf string) (int, error) {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if len(tf) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}

	unit, ok := timeframeUnitDays[tf[len(tf)-1]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}

	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 || n > MaxTimeframeDays/unit {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}

	return n * unit, nil
}

// NormalizeTimeframe trims the horizon and substitutes the default when empty.
func NormalizeTimeframe(tf string) string {
	tf = strings.TrimSpace(tf)
	if tf == "" {
		return DefaultTimeframe
	}
	return tf
}
