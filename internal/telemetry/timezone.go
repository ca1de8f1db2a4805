package telemetry

import "time"

// Timezone returns the canonical pipeline timezone (Asia/Ho_Chi_Minh, with
// a fixed ICT fallback when tzdata is unavailable).
func Timezone() *time.Location {
	tz, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return tz
}
