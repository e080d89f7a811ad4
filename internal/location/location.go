// Package location provides GPS fix acquisition with abstraction for
// testing. The real implementation subscribes to a device-tracker MQTT
// topic; the fake replays scripted fixes.
package location

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when no usable fix exists this tick.
var ErrUnavailable = errors.New("location unavailable")

// Fix is one normalized GPS reading. Heading is degrees clockwise from true
// north; Speed is mph.
type Fix struct {
	Lat     float64
	Lon     float64
	Heading float64
	Speed   float64
	Time    time.Time
}

// Provider supplies the current fix for the tracked entity.
type Provider interface {
	// Current returns the latest fix, or ErrUnavailable when the tracked
	// entity has not reported a usable position.
	Current() (Fix, error)

	// Close releases provider resources.
	Close() error
}
