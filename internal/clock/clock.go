// Package clock provides the wall clock implementation of telemetry.Clock.
package clock

import "time"

// System reads the real wall clock.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time { return time.Now() }
