package console

import (
	"time"

	"ladder-console/internal/constants"
)

const timestampLayout = "2006-01-02 15:04"

var displayZone = time.FixedZone("UTC-4", int(constants.DisplayUTCOffset/time.Second))

// FormatTimestamp renders t at a fixed UTC-4 offset. t itself is not modified.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(displayZone).Format(timestampLayout)
}

func winRate(wins, played int) float64 {
	if played == 0 {
		return 0
	}
	return float64(wins) / float64(played)
}
