package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event            string        `json:"event,omitempty"`
	Reason           string        `json:"reason,omitempty"`
	CurrentZone      string        `json:"current_zone"`
	DetectedZone     string        `json:"detected_zone,omitempty"`
	PendingZone      string        `json:"pending_zone,omitempty"`
	PendingCount     int           `json:"pending_count,omitempty"`
	NearestOtherZone string        `json:"nearest_other_zone,omitempty"`
	EdgeDistance     *float64      `json:"edge_distance_mi,omitempty"`
	HeadingDistance  *float64      `json:"heading_distance_mi,omitempty"`
	EffectiveDist    *float64      `json:"effective_distance_mi,omitempty"`
	DistanceCategory string        `json:"distance_category,omitempty"`
	SpeedCategory    string        `json:"speed_category,omitempty"`
	CheckInterval    int           `json:"check_interval_s"`
	Position         *PositionJSON `json:"position,omitempty"`
	Ticks            int           `json:"ticks"`
	UptimeSeconds    int64         `json:"uptime_seconds"`
	StartTime        string        `json:"start_time"`
	Timestamp        string        `json:"timestamp"`
	MQTT             MQTTStatus    `json:"mqtt"`
	Counts           CountsJSON    `json:"event_counts"`
	Dataset          DatasetJSON   `json:"dataset"`
	Config           ConfigJSON    `json:"config"`
}

// PositionJSON is the JSON representation of the last GPS fix.
type PositionJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
	Time      string  `json:"time,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Changes         int `json:"zone_changes"`
	PendingStarts   int `json:"pending_starts"`
	PendingAbandons int `json:"pending_abandons"`
}

// DatasetJSON describes the active dataset snapshot.
type DatasetJSON struct {
	Polygons int    `json:"polygons"`
	LoadedAt string `json:"loaded_at,omitempty"`
	Path     string `json:"path"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	MinIntervalSec  int    `json:"min_interval_s"`
	MaxIntervalSec  int    `json:"max_interval_s"`
	HysteresisCount int    `json:"hysteresis_count"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
	LocationTopic   string `json:"location_topic"`
}

// displayCap hides distances that mean "nothing nearby" rather than a real
// measurement, matching the sensor behavior this replaces.
const displayCap = 9999

func roundedMiles(d float64) *float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) || d > displayCap {
		return nil
	}
	r := math.Round(d*10) / 10
	return &r
}

func buildInner(snap Snapshot) StatusInner {
	tick := snap.Tick
	current := tick.CurrentZone
	if current == "" {
		current = "UNKNOWN"
	}

	inner := StatusInner{
		CurrentZone:      current,
		DetectedZone:     tick.DetectedZone,
		PendingZone:      tick.PendingZone,
		PendingCount:     tick.PendingCount,
		NearestOtherZone: tick.NearestOtherZone,
		EdgeDistance:     roundedMiles(tick.EdgeDistance),
		HeadingDistance:  roundedMiles(tick.HeadingDistance),
		EffectiveDist:    roundedMiles(tick.EffectiveDistance),
		DistanceCategory: tick.DistanceCategory,
		SpeedCategory:    tick.SpeedCategory,
		CheckInterval:    tick.CheckInterval,
		Ticks:            snap.Ticks,
		UptimeSeconds:    int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:        snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		MQTT:             MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Changes:         tick.Counts.Changes,
			PendingStarts:   tick.Counts.PendingStarts,
			PendingAbandons: tick.Counts.PendingAbandons,
		},
		Dataset: DatasetJSON{
			Polygons: snap.PolygonCount,
			Path:     snap.Config.DatasetPath,
		},
		Config: ConfigJSON{
			MinIntervalSec:  snap.Config.MinIntervalSec,
			MaxIntervalSec:  snap.Config.MaxIntervalSec,
			HysteresisCount: snap.Config.HysteresisCount,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			LocationTopic:   snap.Config.LocationTopic,
		},
	}

	if !snap.DatasetTime.IsZero() {
		inner.Dataset.LoadedAt = snap.DatasetTime.UTC().Format(time.RFC3339)
	}
	if !tick.Position.Time.IsZero() {
		inner.Position = &PositionJSON{
			Latitude:  tick.Position.Latitude,
			Longitude: tick.Position.Longitude,
			Heading:   tick.Position.Heading,
			Speed:     tick.Position.Speed,
			Time:      tick.Position.Time.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
