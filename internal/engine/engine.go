// Package engine runs the adaptive timezone tracking loop: resolve the
// current fix, estimate distance to a timezone change, plan the next check,
// and apply hysteresis before committing a zone change.
package engine

import (
	"context"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/sweeney/tz-tracker/internal/locate"
	"github.com/sweeney/tz-tracker/internal/location"
	"github.com/sweeney/tz-tracker/internal/logic"
	"github.com/sweeney/tz-tracker/internal/metrics"
	"github.com/sweeney/tz-tracker/internal/mqtt"
	"github.com/sweeney/tz-tracker/internal/planner"
	"github.com/sweeney/tz-tracker/internal/status"
	"github.com/sweeney/tz-tracker/internal/tzdata"
)

// pendingRecheckSec caps the interval while a zone change awaits
// confirmation.
const pendingRecheckSec = 30

// resolveRetrySec is the retry interval after a resolution failure.
const resolveRetrySec = 300

// Config holds the engine's tuning parameters. MinInterval and MaxInterval
// are seconds, 0 < min < max.
type Config struct {
	MinInterval        int
	MaxInterval        int
	HysteresisCount    int
	MaxHeadingDistance float64 // miles; zero means the default cap
}

// TickResult reports what one resolution cycle computed.
type TickResult struct {
	DetectedZone      string
	EdgeDistance      float64
	HeadingDistance   float64
	EffectiveDistance float64
	NearestOtherZone  string
	Interval          int // seconds until the next check
	Event             *logic.Event
}

// Engine owns one tracked point's state. The dataset snapshot is shared and
// swapped atomically on reload; everything else is mutated only by the tick
// loop.
type Engine struct {
	cfg       Config
	snap      atomic.Pointer[locate.Map]
	tracker   *logic.Tracker
	provider  location.Provider
	publisher mqtt.Publisher
	stat      *status.Tracker

	forceCh chan struct{}
	now     func() time.Time
}

// New creates an engine over an initial dataset snapshot. externalZone is
// the timezone the external setting reports right now; the initial
// acquisition publishes a ZONE_SET only when the resolved zone differs.
func New(cfg Config, m *locate.Map, provider location.Provider, publisher mqtt.Publisher, stat *status.Tracker, externalZone string) *Engine {
	if cfg.MaxHeadingDistance <= 0 {
		cfg.MaxHeadingDistance = locate.DefaultMaxHeadingDistance
	}
	e := &Engine{
		cfg:       cfg,
		tracker:   logic.NewTracker(cfg.HysteresisCount, externalZone),
		provider:  provider,
		publisher: publisher,
		stat:      stat,
		forceCh:   make(chan struct{}, 1),
		now:       time.Now,
	}
	e.snap.Store(m)
	metrics.LoadedPolygons.Set(float64(m.Len()))
	return e
}

// Tick runs one resolution cycle and returns what it computed, including
// the next check interval. Never fatal: every failure path degrades to a
// safe retry interval.
func (e *Engine) Tick() TickResult {
	started := e.now()
	metrics.TicksTotal.Inc()
	defer func() {
		metrics.TickDurationMs.Observe(float64(e.now().Sub(started).Milliseconds()))
	}()

	// The snapshot is pinned once per tick; a concurrent reload cannot
	// mix geometries mid-computation.
	snap := e.snap.Load()

	if snap.Len() == 0 {
		log.Printf("engine: no timezone data loaded")
		return TickResult{Interval: e.cfg.MaxInterval}
	}

	fix, err := e.provider.Current()
	if err != nil {
		log.Printf("engine: location unavailable: %v", err)
		metrics.LocationUnavailableTotal.Inc()
		return TickResult{Interval: e.cfg.MaxInterval}
	}

	detected, ok := snap.Resolve(fix.Lat, fix.Lon)
	if !ok {
		log.Printf("engine: could not resolve timezone at (%v, %v)", fix.Lat, fix.Lon)
		return TickResult{Interval: resolveRetrySec}
	}

	edgeDist, nearestOther := snap.EdgeDistance(fix.Lat, fix.Lon, detected)

	headingDist := math.Inf(1)
	if fix.Speed > planner.SpeedStopped {
		headingDist = snap.HeadingDistance(fix.Lat, fix.Lon, fix.Heading, detected, e.cfg.MaxHeadingDistance)
	}

	effective := math.Min(edgeDist, headingDist)
	interval := planner.NextInterval(effective, fix.Speed, e.cfg.MinInterval, e.cfg.MaxInterval)

	before := e.tracker.CountsSnapshot()
	event, recheck := e.tracker.Process(detected, fix.Time)
	after := e.tracker.CountsSnapshot()
	if after.PendingStarts > before.PendingStarts {
		metrics.PendingStartsTotal.Inc()
	}
	if after.PendingAbandons > before.PendingAbandons {
		metrics.PendingAbandonsTotal.Inc()
	}
	if recheck && interval > pendingRecheckSec {
		interval = pendingRecheckSec
	}
	if event != nil {
		e.emit(event)
	}

	result := TickResult{
		DetectedZone:      detected,
		EdgeDistance:      edgeDist,
		HeadingDistance:   headingDist,
		EffectiveDistance: effective,
		NearestOtherZone:  nearestOther,
		Interval:          interval,
		Event:             event,
	}

	metrics.IntervalSeconds.Observe(float64(interval))
	e.updateStatus(fix, result)

	log.Printf("engine: zone=%s dist=%.1fmi speed=%.0fmph interval=%ds",
		e.tracker.Current(), effective, fix.Speed, interval)
	return result
}

// Run drives the tick loop until ctx is cancelled. The first tick runs
// immediately; each tick's result schedules the next. ForceTick bypasses
// the pending wait without double-firing it.
func (e *Engine) Run(ctx context.Context) {
	interval := e.Tick().Interval

	timer := time.NewTimer(time.Duration(interval) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-e.forceCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}

		case <-timer.C:
		}

		interval = e.Tick().Interval
		timer.Reset(time.Duration(interval) * time.Second)
	}
}

// ForceTick requests an immediate re-check, cancelling the scheduled wait.
// Safe to call from any goroutine; extra requests while one is pending
// collapse into it.
func (e *Engine) ForceTick() {
	select {
	case e.forceCh <- struct{}{}:
	default:
	}
}

// Reload builds a new snapshot from entries and swaps it in atomically.
// In-flight ticks keep the snapshot they started with.
func (e *Engine) Reload(entries []tzdata.Entry) error {
	m, err := locate.NewMap(entries)
	if err != nil {
		return err
	}
	e.snap.Store(m)
	metrics.DatasetReloadsTotal.Inc()
	metrics.LoadedPolygons.Set(float64(m.Len()))
	if e.stat != nil {
		e.stat.SetDataset(m.Len(), e.now())
	}
	log.Printf("engine: dataset reloaded, %d boundaries", m.Len())
	return nil
}

// CurrentZone returns the confirmed zone, empty before first acquisition.
func (e *Engine) CurrentZone() string {
	return e.tracker.Current()
}

// emit publishes a confirmed transition. A publish failure is reported but
// does not roll back the tracker: the engine's own state is authoritative
// and the retained topic reconciles on the next confirmed change.
func (e *Engine) emit(event *logic.Event) {
	switch event.Type {
	case logic.EventZoneSet:
		log.Printf("engine: timezone set to %s", event.To)
	case logic.EventZoneChanged:
		log.Printf("engine: timezone changed from %s to %s", event.From, event.To)
		metrics.ZoneChangesTotal.Inc()
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(*event); err != nil {
		log.Printf("engine: publish %s: %v", event.Type, err)
	}
}

func (e *Engine) updateStatus(fix location.Fix, r TickResult) {
	if e.stat == nil {
		return
	}
	pendingZone, pendingCount := e.tracker.Pending()
	speed := fix.Speed
	e.stat.Update(status.TickView{
		CurrentZone:       e.tracker.Current(),
		DetectedZone:      r.DetectedZone,
		PendingZone:       pendingZone,
		PendingCount:      pendingCount,
		NearestOtherZone:  r.NearestOtherZone,
		EdgeDistance:      r.EdgeDistance,
		HeadingDistance:   r.HeadingDistance,
		EffectiveDistance: r.EffectiveDistance,
		CheckInterval:     r.Interval,
		DistanceCategory:  planner.DistanceCategory(r.EffectiveDistance),
		SpeedCategory:     planner.SpeedCategory(speed),
		Position: status.Position{
			Latitude:  fix.Lat,
			Longitude: fix.Lon,
			Heading:   fix.Heading,
			Speed:     fix.Speed,
			Time:      fix.Time,
		},
		Counts: e.tracker.CountsSnapshot(),
	})
}
