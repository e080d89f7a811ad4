package location

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTProvider holds the latest fix received from a device-tracker MQTT
// topic. Trackers disagree on attribute naming (latitude vs Latitude,
// heading vs course), so payloads are normalized here before the core ever
// sees them.
type MQTTProvider struct {
	client paho.Client
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	fix     Fix
	haveFix bool
}

// defaultMaxFixAge is how long a cached fix stays servable after the
// tracker goes silent. A fix older than this means the device stopped
// reporting, not that it stopped moving.
const defaultMaxFixAge = time.Hour

// NewMQTTProvider connects to the broker and subscribes to topic.
func NewMQTTProvider(broker, topic string) (*MQTTProvider, error) {
	p := &MQTTProvider{maxAge: defaultMaxFixAge, now: time.Now}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("tz-tracker-location").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			token := c.Subscribe(topic, 0, p.handleMessage)
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Printf("location: subscribe %s: %v", topic, token.Error())
			}
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return p, nil
}

// Current returns the latest received fix. A fix is served only while it
// is fresh; once the tracker has been silent longer than the max age the
// provider reports unavailable rather than replaying a stale position.
func (p *MQTTProvider) Current() (Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.haveFix {
		return Fix{}, ErrUnavailable
	}
	if p.now().Sub(p.fix.Time) > p.maxAge {
		return Fix{}, ErrUnavailable
	}
	return p.fix, nil
}

// Close disconnects from the broker.
func (p *MQTTProvider) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000)
	}
	return nil
}

func (p *MQTTProvider) handleMessage(_ paho.Client, msg paho.Message) {
	fix, err := ParseFix(msg.Payload(), time.Now())
	if err != nil {
		log.Printf("location: bad payload on %s: %v", msg.Topic(), err)
		return
	}
	p.mu.Lock()
	p.fix = fix
	p.haveFix = true
	p.mu.Unlock()
}

// ParseFix normalizes a device-tracker attribute payload into a Fix.
// Latitude and longitude are required; heading and speed default to zero.
func ParseFix(payload []byte, now time.Time) (Fix, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(payload, &attrs); err != nil {
		return Fix{}, fmt.Errorf("parse attributes: %w", err)
	}

	lat, ok := pickNumber(attrs, "latitude", "Latitude", "lat")
	if !ok {
		return Fix{}, fmt.Errorf("missing latitude")
	}
	lon, ok := pickNumber(attrs, "longitude", "Longitude", "lon")
	if !ok {
		return Fix{}, fmt.Errorf("missing longitude")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Fix{}, fmt.Errorf("coordinates out of range (%v, %v)", lat, lon)
	}

	heading, _ := pickNumber(attrs, "heading", "Heading", "course", "Course")
	speed, _ := pickNumber(attrs, "speed", "Speed")

	// Normalize heading into [0, 360).
	heading = math.Mod(heading, 360)
	if heading < 0 {
		heading += 360
	}
	if speed < 0 {
		speed = 0
	}

	return Fix{Lat: lat, Lon: lon, Heading: heading, Speed: speed, Time: now}, nil
}

func pickNumber(attrs map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := attrs[k]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true
		}
		// Some trackers quote their numbers.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			var q float64
			if _, err := fmt.Sscanf(s, "%g", &q); err == nil {
				return q, true
			}
		}
	}
	return 0, false
}
