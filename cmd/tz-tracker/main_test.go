package main

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/tz-tracker/internal/engine"
	"github.com/sweeney/tz-tracker/internal/geometry"
	"github.com/sweeney/tz-tracker/internal/locate"
	"github.com/sweeney/tz-tracker/internal/location"
	"github.com/sweeney/tz-tracker/internal/mqtt"
	"github.com/sweeney/tz-tracker/internal/status"
	"github.com/sweeney/tz-tracker/internal/tzdata"
)

func TestSplitRegions(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"America/", []string{"America/"}},
		{"America/,Pacific/Honolulu", []string{"America/", "Pacific/Honolulu"}},
		{" America/ , , Europe/ ", []string{"America/", "Europe/"}},
	}
	for _, c := range cases {
		got := splitRegions(c.in)
		if len(got) != len(c.want) {
			t.Errorf("splitRegions(%q): got %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitRegions(%q)[%d]: got %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestParseLatLon(t *testing.T) {
	lat, lon, err := parseLatLon("39.7392, -104.9903")
	if err != nil {
		t.Fatalf("parseLatLon: %v", err)
	}
	if lat != 39.7392 || lon != -104.9903 {
		t.Errorf("got (%v, %v)", lat, lon)
	}

	bad := []string{"", "39.7", "39.7,-104.9,0", "north,west", "91,0", "0,181"}
	for _, s := range bad {
		if _, _, err := parseLatLon(s); err == nil {
			t.Errorf("parseLatLon(%q): expected error", s)
		}
	}
}

func TestEnvStr(t *testing.T) {
	t.Setenv("TZT_TEST_STR", "hello")
	if got := envStr("TZT_TEST_STR", "fallback"); got != "hello" {
		t.Errorf("set var: got %q", got)
	}
	if got := envStr("TZT_TEST_STR_UNSET", "fallback"); got != "fallback" {
		t.Errorf("unset var: got %q", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TZT_TEST_INT", "120")
	if got := envInt("TZT_TEST_INT", 60); got != 120 {
		t.Errorf("set var: got %d", got)
	}
	if got := envInt("TZT_TEST_INT_UNSET", 60); got != 60 {
		t.Errorf("unset var: got %d", got)
	}
	t.Setenv("TZT_TEST_INT_BAD", "many")
	if got := envInt("TZT_TEST_INT_BAD", 60); got != 60 {
		t.Errorf("bad var: got %d, want fallback 60", got)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  config
	}{
		{"zero min interval", config{minInterval: 0, maxInterval: 3600, hysteresis: 3}},
		{"max not above min", config{minInterval: 60, maxInterval: 60, hysteresis: 3}},
		{"zero hysteresis", config{minInterval: 60, maxInterval: 3600, hysteresis: 0}},
		{"negative hysteresis", config{minInterval: 60, maxInterval: 3600, hysteresis: -2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := run(c.cfg); err == nil {
				t.Errorf("run(%+v) should fail validation", c.cfg)
			}
		})
	}
}

// --- runLoop tests ---

func testMap(t *testing.T) *locate.Map {
	t.Helper()
	m, err := locate.NewMap([]tzdata.Entry{{
		ID: "Zone/X",
		Geometry: geometry.MultiPolygon{{Exterior: geometry.Ring{
			{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 1},
		}}},
	}})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	return m
}

func newLoopFixture(t *testing.T) (*engine.Engine, *mqtt.FakePublisher, *status.Tracker) {
	t.Helper()
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{})
	eng := engine.New(engine.Config{MinInterval: 30, MaxInterval: 3600, HysteresisCount: 2},
		testMap(t), location.NewFakeProvider(nil), pub, tr, "")
	return eng, pub, tr
}

func startLoop(t *testing.T, eng *engine.Engine, pub *mqtt.FakePublisher, tr *status.Tracker, reload func() error) (chan os.Signal, chan time.Time, chan error) {
	t.Helper()
	sig := make(chan os.Signal, 1)
	hb := make(chan time.Time, 1)
	done := make(chan error, 1)
	go func() {
		done <- runLoop(eng, pub, pub, tr, reload, time.Now, hb, sig)
	}()
	return sig, hb, done
}

func waitDone(t *testing.T, done chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return")
	}
}

func TestRunLoopShutdownOnSIGTERM(t *testing.T) {
	eng, pub, tr := newLoopFixture(t)
	sig, _, done := startLoop(t, eng, pub, tr, func() error { return nil })

	sig <- syscall.SIGTERM
	waitDone(t, done)

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	ev := pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" {
		t.Errorf("got %s/%s, want SHUTDOWN/SIGTERM", ev.Event, ev.Reason)
	}
	if !ev.Retained {
		t.Error("shutdown event should be retained")
	}
	if ev.RawPayload == nil {
		t.Error("shutdown event should carry a status snapshot")
	}
}

func TestRunLoopReloadOnSIGHUP(t *testing.T) {
	eng, pub, tr := newLoopFixture(t)
	reloaded := make(chan struct{}, 1)
	sig, _, done := startLoop(t, eng, pub, tr, func() error {
		reloaded <- struct{}{}
		return nil
	})

	sig <- syscall.SIGHUP
	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP did not trigger reload")
	}

	sig <- syscall.SIGINT
	waitDone(t, done)

	// RELOAD then SHUTDOWN.
	if len(pub.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "RELOAD" || pub.SystemEvents[0].Reason != "SIGHUP" {
		t.Errorf("first event: got %s/%s, want RELOAD/SIGHUP", pub.SystemEvents[0].Event, pub.SystemEvents[0].Reason)
	}
	if pub.SystemEvents[1].Event != "SHUTDOWN" {
		t.Errorf("second event: got %s, want SHUTDOWN", pub.SystemEvents[1].Event)
	}
}

func TestRunLoopReloadFailureKeepsRunning(t *testing.T) {
	eng, pub, tr := newLoopFixture(t)
	sig, _, done := startLoop(t, eng, pub, tr, func() error {
		return errors.New("dataset unreadable")
	})

	sig <- syscall.SIGHUP
	sig <- syscall.SIGTERM
	waitDone(t, done)

	// Failed reload publishes nothing; only the shutdown event appears.
	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected only SHUTDOWN, got %+v", pub.SystemEvents)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	eng, pub, tr := newLoopFixture(t)
	sig, hb, done := startLoop(t, eng, pub, tr, func() error { return nil })

	hb <- time.Now()
	sig <- syscall.SIGTERM
	waitDone(t, done)

	if len(pub.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "HEARTBEAT" {
		t.Errorf("first event: got %s, want HEARTBEAT", pub.SystemEvents[0].Event)
	}
	if pub.SystemEvents[0].Retained {
		t.Error("heartbeat should not be retained")
	}
}

func TestRunLoopSIGUSR1DoesNotExit(t *testing.T) {
	eng, pub, tr := newLoopFixture(t)
	sig, _, done := startLoop(t, eng, pub, tr, func() error { return nil })

	sig <- syscall.SIGUSR1
	select {
	case err := <-done:
		t.Fatalf("runLoop exited on SIGUSR1: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	sig <- syscall.SIGTERM
	waitDone(t, done)
}
