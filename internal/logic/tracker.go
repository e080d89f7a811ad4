package logic

import "time"

// Tracker holds the confirmed timezone and applies hysteresis to detected
// changes: a new zone must be seen hysteresisCount consecutive ticks before
// it is confirmed. GPS noise near a boundary flips single readings; this
// keeps the confirmed zone from flapping.
type Tracker struct {
	hysteresisCount int
	externalZone    string // zone the outside world reported at startup
	current         string
	pending         string
	pendingCount    int
	counts          Counts
}

// NewTracker creates a tracker. externalZone is the zone the external
// setting currently holds; the initial acquisition only emits an event when
// the resolved zone differs from it.
func NewTracker(hysteresisCount int, externalZone string) *Tracker {
	if hysteresisCount < 1 {
		hysteresisCount = 1
	}
	return &Tracker{
		hysteresisCount: hysteresisCount,
		externalZone:    externalZone,
	}
}

// Process feeds one tick's detected zone into the machine. It returns the
// confirmed transition event, if any, and whether the caller should re-check
// soon because a change is pending.
func (t *Tracker) Process(detected string, now time.Time) (*Event, bool) {
	if detected == "" {
		return nil, false
	}

	// Initial acquisition: adopt immediately, no hysteresis.
	if t.current == "" {
		t.current = detected
		if detected != t.externalZone {
			return &Event{Timestamp: now, Type: EventZoneSet, To: detected}, false
		}
		return nil, false
	}

	if detected == t.current {
		// Back in (or still in) the confirmed zone: drop any candidate.
		if t.pending != "" {
			t.pending = ""
			t.pendingCount = 0
			t.counts.PendingAbandons++
		}
		return nil, false
	}

	if detected == t.pending {
		t.pendingCount++
		if t.pendingCount >= t.hysteresisCount {
			from := t.current
			t.current = detected
			t.pending = ""
			t.pendingCount = 0
			t.counts.Changes++
			return &Event{Timestamp: now, Type: EventZoneChanged, From: from, To: detected}, false
		}
		return nil, true
	}

	// New candidate (or a third zone replacing the old candidate).
	t.pending = detected
	t.pendingCount = 1
	t.counts.PendingStarts++
	return nil, true
}

// Current returns the confirmed zone, empty before the first acquisition.
func (t *Tracker) Current() string {
	return t.current
}

// Pending returns the candidate zone and how many consecutive ticks it has
// been seen. The zone is empty when no change is pending.
func (t *Tracker) Pending() (string, int) {
	return t.pending, t.pendingCount
}

// CountsSnapshot returns a copy of the transition counters.
func (t *Tracker) CountsSnapshot() Counts {
	return t.counts
}
