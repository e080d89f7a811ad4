// Command tz-tracker resolves the vehicle's GPS position to an IANA
// timezone and publishes confirmed zone transitions to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/tz-tracker/internal/engine"
	"github.com/sweeney/tz-tracker/internal/locate"
	"github.com/sweeney/tz-tracker/internal/location"
	"github.com/sweeney/tz-tracker/internal/mqtt"
	"github.com/sweeney/tz-tracker/internal/status"
	"github.com/sweeney/tz-tracker/internal/tzdata"
	"github.com/sweeney/tz-tracker/internal/web"
)

func main() {
	// Optional .env alongside the binary; flags still win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	dataset := flag.String("dataset", envStr("TZT_DATASET", "/var/lib/tz-tracker/combined.json"), "Timezone boundary GeoJSON file")
	regions := flag.String("regions", envStr("TZT_REGIONS", ""), `Comma-separated zone filters, e.g. "America/,Pacific/Honolulu" (empty loads all)`)
	broker := flag.String("broker", envStr("TZT_BROKER", "tcp://192.168.1.200:1883"), "MQTT broker address")
	locationTopic := flag.String("location-topic", envStr("TZT_LOCATION_TOPIC", "location/gps/fix"), "MQTT topic carrying GPS fixes")
	minInterval := flag.Int("min-interval", envInt("TZT_MIN_INTERVAL", 60), "Minimum seconds between checks")
	maxInterval := flag.Int("max-interval", envInt("TZT_MAX_INTERVAL", 3600), "Maximum seconds between checks")
	hysteresis := flag.Int("hysteresis", envInt("TZT_HYSTERESIS", 3), "Consecutive detections required to confirm a zone change")
	maxHeading := flag.Float64("max-heading-distance", 200, "Miles to probe along the heading for a boundary crossing")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", envStr("TZT_HTTP", ":8099"), "HTTP status address (empty to disable)")
	externalZone := flag.String("external-zone", envStr("TZT_EXTERNAL_ZONE", ""), "Timezone the controlled system currently reports")
	resolveOnce := flag.String("resolve", "", `Resolve "lat,lon" against the dataset, print the zone, and exit`)

	flag.Parse()

	if err := run(config{
		dataset:       *dataset,
		regions:       splitRegions(*regions),
		broker:        *broker,
		locationTopic: *locationTopic,
		minInterval:   *minInterval,
		maxInterval:   *maxInterval,
		hysteresis:    *hysteresis,
		maxHeading:    *maxHeading,
		heartbeat:     *heartbeat,
		httpAddr:      *httpAddr,
		externalZone:  *externalZone,
		resolveOnce:   *resolveOnce,
	}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type config struct {
	dataset       string
	regions       []string
	broker        string
	locationTopic string
	minInterval   int
	maxInterval   int
	hysteresis    int
	maxHeading    float64
	heartbeat     time.Duration
	httpAddr      string
	externalZone  string
	resolveOnce   string
}

func run(cfg config) error {
	if cfg.minInterval <= 0 || cfg.maxInterval <= cfg.minInterval {
		return fmt.Errorf("intervals: need 0 < min (%d) < max (%d)", cfg.minInterval, cfg.maxInterval)
	}
	if cfg.hysteresis < 1 {
		return fmt.Errorf("hysteresis: need at least 1 detection, got %d", cfg.hysteresis)
	}

	entries, err := tzdata.Load(cfg.dataset)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if len(cfg.regions) > 0 {
		entries = tzdata.FilterPrefix(entries, cfg.regions)
	}
	tzMap, err := locate.NewMap(entries)
	if err != nil {
		return fmt.Errorf("index dataset: %w", err)
	}
	log.Printf("loaded %d timezone boundaries from %s", tzMap.Len(), cfg.dataset)

	// Resolve-once mode for scripts and smoke checks.
	if cfg.resolveOnce != "" {
		lat, lon, err := parseLatLon(cfg.resolveOnce)
		if err != nil {
			return err
		}
		zone, ok := tzMap.Resolve(lat, lon)
		if !ok {
			return fmt.Errorf("no timezone found at (%v, %v)", lat, lon)
		}
		fmt.Println(zone)
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(cfg.broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	provider, err := location.NewMQTTProvider(cfg.broker, cfg.locationTopic)
	if err != nil {
		return fmt.Errorf("init location source: %w", err)
	}
	defer provider.Close()

	// Status tracker comes up before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), status.Config{
		MinIntervalSec:  cfg.minInterval,
		MaxIntervalSec:  cfg.maxInterval,
		HysteresisCount: cfg.hysteresis,
		Broker:          cfg.broker,
		HTTPAddr:        cfg.httpAddr,
		DatasetPath:     cfg.dataset,
		LocationTopic:   cfg.locationTopic,
	})
	tracker.SetDataset(tzMap.Len(), time.Now())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	eng := engine.New(engine.Config{
		MinInterval:        cfg.minInterval,
		MaxInterval:        cfg.maxInterval,
		HysteresisCount:    cfg.hysteresis,
		MaxHeadingDistance: cfg.maxHeading,
	}, tzMap, provider, publisher, tracker, cfg.externalZone)

	log.Printf("started: interval=%d-%ds hysteresis=%d broker=%s topic=%s",
		cfg.minInterval, cfg.maxInterval, cfg.hysteresis, cfg.broker, cfg.locationTopic)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	var hbCh <-chan time.Time
	if cfg.heartbeat > 0 {
		hbTicker := time.NewTicker(cfg.heartbeat)
		defer hbTicker.Stop()
		hbCh = hbTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	reload := func() error {
		entries, err := tzdata.Load(cfg.dataset)
		if err != nil {
			return err
		}
		if len(cfg.regions) > 0 {
			entries = tzdata.FilterPrefix(entries, cfg.regions)
		}
		return eng.Reload(entries)
	}

	return runLoop(eng, publisher, publisher, tracker, reload, time.Now, hbCh, sigCh)
}

// runLoop owns the signal and heartbeat handling; the engine's tick loop
// runs on its own goroutine. Returns when a shutdown signal arrives.
func runLoop(eng *engine.Engine, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, reload func() error, now func() time.Time, hb <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			switch s {
			case syscall.SIGHUP:
				log.Printf("received SIGHUP, reloading dataset")
				if err := reload(); err != nil {
					log.Printf("reload failed, keeping current dataset: %v", err)
					continue
				}
				publishSystem(publisher, mqttStatus, tracker, now(), "RELOAD", "SIGHUP", false)
				eng.ForceTick()
				continue

			case syscall.SIGUSR1:
				log.Printf("received SIGUSR1, forcing re-check")
				eng.ForceTick()
				continue
			}

			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			publishSystem(publisher, mqttStatus, tracker, now(), "SHUTDOWN", signalName, true)
			return nil

		case <-hb:
			publishSystem(publisher, mqttStatus, tracker, now(), "HEARTBEAT", "", false)
		}
	}
}

func publishSystem(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, t time.Time, event, reason string, retained bool) {
	se := mqtt.SystemEvent{
		Timestamp: t,
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		se.RawPayload = status.FormatStatusEvent(snap, event, reason)
	}
	if err := publisher.PublishSystem(se); err != nil {
		log.Printf("%s publish error: %v", strings.ToLower(event), err)
	} else if event != "HEARTBEAT" {
		log.Printf("published %s event", strings.ToLower(event))
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("env %s: %v, using %d", key, err, fallback)
		return fallback
	}
	return n
}

func splitRegions(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("resolve: want \"lat,lon\", got %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve: bad latitude %q: %w", parts[0], err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve: bad longitude %q: %w", parts[1], err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("resolve: (%v, %v) out of range", lat, lon)
	}
	return lat, lon, nil
}
