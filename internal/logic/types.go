// Package logic contains pure state tracking for timezone changes.
// This package has NO external dependencies (no MQTT, geometry, OS, or
// timers). Time is always injectable via time.Time parameters.
package logic

import "time"

// EventType represents a confirmed timezone state transition.
type EventType string

const (
	// EventZoneSet is the initial acquisition: the first resolved zone
	// differed from the externally reported setting.
	EventZoneSet EventType = "ZONE_SET"
	// EventZoneChanged is a hysteresis-confirmed change of zone.
	EventZoneChanged EventType = "ZONE_CHANGED"
)

// Event represents a confirmed transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	From      string // empty for ZONE_SET
	To        string
}

// Counts tracks transition statistics since startup.
type Counts struct {
	Changes         int // confirmed zone changes
	PendingStarts   int // candidates entering the hysteresis window
	PendingAbandons int // candidates dropped before confirmation
}
