// Package status provides a thread-safe status tracker for the tz-tracker
// daemon. It is read by HTTP handlers and serialized into MQTT system
// events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tz-tracker/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	MinIntervalSec  int
	MaxIntervalSec  int
	HysteresisCount int
	Broker          string
	HTTPAddr        string
	DatasetPath     string
	LocationTopic   string
}

// Position is the last GPS fix shown on the status surface.
type Position struct {
	Latitude  float64
	Longitude float64
	Heading   float64
	Speed     float64
	Time      time.Time
}

// TickView is what one resolution tick reports to the tracker.
type TickView struct {
	CurrentZone       string
	DetectedZone      string
	PendingZone       string
	PendingCount      int
	NearestOtherZone  string
	EdgeDistance      float64 // miles, +Inf when unknown
	HeadingDistance   float64 // miles, +Inf when stopped or unknown
	EffectiveDistance float64
	CheckInterval     int // seconds
	DistanceCategory  string
	SpeedCategory     string
	Position          Position
	Counts            logic.Counts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Tick          TickView
	Ticks         int
	PolygonCount  int
	DatasetTime   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the result of one resolution tick.
func (t *Tracker) Update(view TickView) {
	t.mu.Lock()
	t.snap.Tick = view
	t.snap.Ticks++
	t.mu.Unlock()
}

// SetDataset records the active dataset snapshot's size and load time.
func (t *Tracker) SetDataset(polygons int, loaded time.Time) {
	t.mu.Lock()
	t.snap.PolygonCount = polygons
	t.snap.DatasetTime = loaded
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
