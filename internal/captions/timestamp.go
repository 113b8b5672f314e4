package captions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	millisPerHour   = 3_600_000
	millisPerMinute = 60_000
	millisPerSecond = 1_000
)

// Millis converts seconds to a whole millisecond count. Halves round to the
// even neighbour; negative values clamp to zero.
func Millis(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int64(math.RoundToEven(seconds * 1000))
}

// FormatTimestamp renders seconds as HH:MM:SS<sep>mmm. Hours are padded to two
// digits but never capped.
func FormatTimestamp(seconds float64, sep byte) string {
	millis := Millis(seconds)
	hours := millis / millisPerHour
	millis %= millisPerHour
	minutes := millis / millisPerMinute
	millis %= millisPerMinute
	secs := millis / millisPerSecond
	millis %= millisPerSecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis)
}

// SRTTimestamp formats seconds with the comma separator SubRip expects.
func SRTTimestamp(seconds float64) string {
	return FormatTimestamp(seconds, ',')
}

// VTTTimestamp formats seconds with the period separator WebVTT expects.
func VTTTimestamp(seconds float64) string {
	return FormatTimestamp(seconds, '.')
}

// ParseTimestamp reads an HH:MM:SS,mmm or HH:MM:SS.mmm value back into a
// millisecond count.
func ParseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	cut := strings.LastIndexAny(value, ",.")
	if cut < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(value[:cut], ":")
	if len(hms) != 3 || len(value[cut+1:]) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.ParseInt(hms[0], 10, 64)
	minutes, errM := strconv.ParseInt(hms[1], 10, 64)
	seconds, errS := strconv.ParseInt(hms[2], 10, 64)
	millis, errMS := strconv.ParseInt(value[cut+1:], 10, 64)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes > 59 || seconds > 59 || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("timestamp %q out of range", value)
	}
	return hours*millisPerHour + minutes*millisPerMinute + seconds*millisPerSecond + millis, nil
}
