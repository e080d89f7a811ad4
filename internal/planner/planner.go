// Package planner maps distance-to-boundary and speed to the next check
// interval. Pure functions; distances in miles, speeds in mph, intervals in
// seconds.
package planner

import "math"

// Distance thresholds in miles.
const (
	DistanceVeryClose = 2
	DistanceClose     = 6
	DistanceMedium    = 20
	DistanceFar       = 50
)

// Speed thresholds in mph.
const (
	SpeedStopped = 3
	SpeedSlow    = 25
	SpeedFast    = 65
)

// NextInterval returns the next check interval in seconds, clamped to
// [minInterval, maxInterval]. Closer and faster both shorten the interval;
// when moving, the interval is additionally capped at a quarter of the
// estimated time to the boundary. A cheap heuristic, not a control loop.
func NextInterval(distance, speed float64, minInterval, maxInterval int) int {
	var distFactor float64
	switch {
	case distance < DistanceVeryClose:
		distFactor = 0.02
	case distance < DistanceClose:
		distFactor = 0.08
	case distance < DistanceMedium:
		distFactor = 0.25
	case distance < DistanceFar:
		distFactor = 0.5
	default:
		distFactor = 1.0
	}

	var speedFactor float64
	switch {
	case speed < SpeedStopped:
		speedFactor = 1.0
	case speed < SpeedSlow:
		speedFactor = 0.8
	case speed < SpeedFast:
		speedFactor = 0.5
	default:
		speedFactor = 0.2
	}

	combined := math.Min(distFactor, speedFactor*0.7+distFactor*0.3)

	// Close-and-moving overrides.
	if distance < DistanceVeryClose && speed > SpeedStopped {
		combined = 0.01
	} else if distance < DistanceClose && speed > SpeedFast {
		combined = 0.02
	}

	interval := float64(minInterval) + float64(maxInterval-minInterval)*combined

	if speed > SpeedStopped && !math.IsInf(distance, 1) {
		etaSeconds := distance / speed * 3600
		interval = math.Min(interval, math.Max(float64(minInterval), etaSeconds/4))
	}

	if interval < float64(minInterval) {
		return minInterval
	}
	if interval > float64(maxInterval) {
		return maxInterval
	}
	return int(interval)
}

// DistanceCategory returns the label for a distance, for status output.
func DistanceCategory(distance float64) string {
	switch {
	case distance < DistanceVeryClose:
		return "very_close"
	case distance < DistanceClose:
		return "close"
	case distance < DistanceMedium:
		return "medium"
	case distance < DistanceFar:
		return "far"
	default:
		return "very_far"
	}
}

// SpeedCategory returns the label for a speed, for status output.
func SpeedCategory(speed float64) string {
	switch {
	case speed < SpeedStopped:
		return "stopped"
	case speed < SpeedSlow:
		return "slow"
	case speed < SpeedFast:
		return "normal"
	default:
		return "fast"
	}
}
