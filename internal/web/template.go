package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/sweeney/tz-tracker/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"zoneOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"miles": func(d float64) string {
		if math.IsInf(d, 0) || math.IsNaN(d) || d > 9999 {
			return "—"
		}
		return fmt.Sprintf("%.1f mi", d)
	},
	"coord": func(v float64) string {
		return fmt.Sprintf("%.5f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Timezone Tracker</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.zone { color: green; font-weight: bold; }
.pending { color: orange; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Timezone Tracker</h1>

<h2>Zone</h2>
<table>
<tr><th>Current</th><td class="{{if .Tick.CurrentZone}}zone{{else}}unknown{{end}}">{{zoneOrUnknown .Tick.CurrentZone}}</td></tr>
{{if .Tick.PendingZone}}<tr><th>Pending</th><td class="pending">{{.Tick.PendingZone}} ({{.Tick.PendingCount}}/{{.Config.HysteresisCount}})</td></tr>{{end}}
{{if .Tick.DetectedZone}}<tr><th>Last detected</th><td>{{.Tick.DetectedZone}}</td></tr>{{end}}
{{if .Tick.NearestOtherZone}}<tr><th>Nearest other</th><td>{{.Tick.NearestOtherZone}}</td></tr>{{end}}
</table>

<h2>Distances</h2>
<table>
<tr><th>Edge</th><td>{{miles .Tick.EdgeDistance}}</td></tr>
<tr><th>Along heading</th><td>{{miles .Tick.HeadingDistance}}</td></tr>
<tr><th>Effective</th><td>{{miles .Tick.EffectiveDistance}} ({{if .Tick.DistanceCategory}}{{.Tick.DistanceCategory}}{{else}}n/a{{end}})</td></tr>
<tr><th>Speed band</th><td>{{if .Tick.SpeedCategory}}{{.Tick.SpeedCategory}}{{else}}n/a{{end}}</td></tr>
<tr><th>Next check</th><td>{{.Tick.CheckInterval}}s</td></tr>
</table>

{{if not .Tick.Position.Time.IsZero}}
<h2>Position</h2>
<table>
<tr><th>Latitude</th><td>{{coord .Tick.Position.Latitude}}</td></tr>
<tr><th>Longitude</th><td>{{coord .Tick.Position.Longitude}}</td></tr>
<tr><th>Heading</th><td>{{printf "%.0f" .Tick.Position.Heading}}&deg;</td></tr>
<tr><th>Speed</th><td>{{printf "%.1f" .Tick.Position.Speed}} mph</td></tr>
<tr><th>Fix time</th><td>{{.Tick.Position.Time.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
</table>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Location topic</th><td>{{.Config.LocationTopic}}</td></tr>
</table>

<h2>Dataset</h2>
<table>
<tr><th>Polygons</th><td>{{.PolygonCount}}</td></tr>
<tr><th>Path</th><td>{{.Config.DatasetPath}}</td></tr>
{{if not .DatasetTime.IsZero}}<tr><th>Loaded</th><td>{{.DatasetTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Zone changes</th><td>{{.Tick.Counts.Changes}}</td></tr>
<tr><th>Pending starts</th><td>{{.Tick.Counts.PendingStarts}}</td></tr>
<tr><th>Pending abandons</th><td>{{.Tick.Counts.PendingAbandons}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.MinIntervalSec}}s &ndash; {{.Config.MaxIntervalSec}}s</td></tr>
<tr><th>Hysteresis</th><td>{{.Config.HysteresisCount}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
