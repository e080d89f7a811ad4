package mqtt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/tz-tracker/internal/logic"
)

var bufTime = time.Date(2026, 4, 12, 6, 30, 0, 0, time.UTC)

func zoneChangeMsg(t *testing.T, from, to string) bufferedMsg {
	t.Helper()
	payload, err := FormatPayload(logic.Event{
		Timestamp: bufTime,
		Type:      logic.EventZoneChanged,
		From:      from,
		To:        to,
	})
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	return bufferedMsg{topic: Topic, payload: payload, qos: 1, retained: true}
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(8)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d messages", len(got))
	}
}

func TestRingBufferDrainOrderOldestFirst(t *testing.T) {
	// A drive through four zones while offline: the replay must arrive in
	// crossing order or the retained topic ends on the wrong zone.
	zones := []string{"America/Denver", "America/Chicago", "America/New_York", "America/Detroit"}
	rb := newRingBuffer(8)
	for i := 1; i < len(zones); i++ {
		rb.push(zoneChangeMsg(t, zones[i-1], zones[i]))
	}

	got := rb.drainAll()
	if len(got) != len(zones)-1 {
		t.Fatalf("expected %d messages, got %d", len(zones)-1, len(got))
	}
	for i, msg := range got {
		want := fmt.Sprintf("%q", zones[i+1])
		if !strings.Contains(string(msg.payload), want) {
			t.Errorf("message %d: payload %s should carry zone %s", i, msg.payload, want)
		}
	}

	if got := rb.drainAll(); got != nil {
		t.Errorf("second drain should be empty, got %d messages", len(got))
	}
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	// With the buffer full, older crossings are the ones to lose: the most
	// recent events decide the consumer's current zone.
	rb := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.push(zoneChangeMsg(t, fmt.Sprintf("Zone/%d", i), fmt.Sprintf("Zone/%d", i+1)))
	}

	got := rb.drainAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, msg := range got {
		want := fmt.Sprintf(`"Zone/%d"`, i+3) // crossings into 3, 4, 5 survive
		if !strings.Contains(string(msg.payload), want) {
			t.Errorf("message %d: payload %s should carry %s", i, msg.payload, want)
		}
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	rb := newRingBuffer(4)
	rb.push(zoneChangeMsg(t, "Zone/A", "Zone/B"))
	rb.push(zoneChangeMsg(t, "Zone/B", "Zone/C"))
	if got := rb.drainAll(); len(got) != 2 {
		t.Fatalf("first cycle: expected 2 messages, got %d", len(got))
	}

	// Wrap past the old head on the second cycle.
	for i := 0; i < 3; i++ {
		rb.push(zoneChangeMsg(t, "Zone/C", "Zone/D"))
	}
	if rb.len() != 3 {
		t.Errorf("len after second cycle: got %d, want 3", rb.len())
	}
	if got := rb.drainAll(); len(got) != 3 {
		t.Errorf("second cycle: expected 3 messages, got %d", len(got))
	}
	if rb.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", rb.len())
	}
}

func TestPublisherBuffersWhileDisconnected(t *testing.T) {
	// No client means no connection: zone and system events must queue
	// with their topic, QoS and retained flag intact for the replay.
	p := &RealPublisher{buf: newRingBuffer(offlineBufferSize)}

	err := p.Publish(logic.Event{
		Timestamp: bufTime,
		Type:      logic.EventZoneChanged,
		From:      "America/Denver",
		To:        "America/Chicago",
	})
	if err != nil {
		t.Fatalf("Publish while disconnected: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: bufTime, Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("PublishSystem while disconnected: %v", err)
	}

	got := p.buf.drainAll()
	if len(got) != 2 {
		t.Fatalf("expected 2 buffered messages, got %d", len(got))
	}
	if got[0].topic != Topic || got[0].qos != 1 || !got[0].retained {
		t.Errorf("zone message: topic=%q qos=%d retained=%v", got[0].topic, got[0].qos, got[0].retained)
	}
	if !strings.Contains(string(got[0].payload), `"America/Chicago"`) {
		t.Errorf("zone payload: %s", got[0].payload)
	}
	if got[1].topic != TopicSystem || got[1].retained {
		t.Errorf("system message: topic=%q retained=%v", got[1].topic, got[1].retained)
	}
	if !strings.Contains(string(got[1].payload), `"HEARTBEAT"`) {
		t.Errorf("system payload: %s", got[1].payload)
	}
}
