package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidDuration is returned when an expression contains no valid
// tokens or sums to zero.
var ErrInvalidDuration = errors.New("INVALID_DURATION")

var durationToken = regexp.MustCompile(`(\d+)([smhdw])`)

// ParseDuration converts a compact expression like "1d12h" or "90s" into a
// duration. Tokens are <integer><unit> with unit in s/m/h/d/w; they may
// repeat and mix, and unrecognized characters between tokens are ignored.
func ParseDuration(input string) (time.Duration, error) {
	var ms int64

	for _, match := range durationToken.FindAllStringSubmatch(input, -1) {
		value, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}

		switch match[2] {
		case "s":
			ms += value * 1000
		case "m":
			ms += value * 60 * 1000
		case "h":
			ms += value * 60 * 60 * 1000
		case "d":
			ms += value * 24 * 60 * 60 * 1000
		case "w":
			ms += value * 7 * 24 * 60 * 60 * 1000
		}
	}

	if ms <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, input)
	}

	return time.Duration(ms) * time.Millisecond, nil
}
