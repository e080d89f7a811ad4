// Package tzdata loads the prepared timezone-boundary dataset: a GeoJSON
// FeatureCollection with a tzid property per feature, as produced by the
// offline data-preparation step. Download/extraction of raw archives is not
// handled here.
package tzdata

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/sweeney/tz-tracker/internal/geometry"
)

// Entry is one timezone's geometry keyed by its IANA-style id.
type Entry struct {
	ID       string
	Geometry geometry.MultiPolygon
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		TZID string `json:"tzid"`
	} `json:"properties"`
	Geometry struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

// Load reads entries from the GeoJSON file at path. Features with a missing
// tzid or invalid geometry are skipped with a log line; duplicate ids keep
// the first occurrence so the id set stays unique.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a GeoJSON FeatureCollection from r. See Load.
func Read(r io.Reader) ([]Entry, error) {
	var fc featureCollection
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	entries := make([]Entry, 0, len(fc.Features))
	seen := make(map[string]struct{}, len(fc.Features))
	for _, ft := range fc.Features {
		id := ft.Properties.TZID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			log.Printf("tzdata: duplicate id %s, keeping first", id)
			continue
		}

		geom, err := parseGeometry(ft.Geometry.Type, ft.Geometry.Coordinates)
		if err != nil {
			log.Printf("tzdata: skipping %s: %v", id, err)
			continue
		}
		if err := geom.Validate(); err != nil {
			log.Printf("tzdata: skipping %s: invalid geometry: %v", id, err)
			continue
		}

		seen[id] = struct{}{}
		entries = append(entries, Entry{ID: id, Geometry: geom})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no usable timezone boundaries in dataset")
	}
	return entries, nil
}

// FilterPrefix keeps entries whose id matches one of the given prefixes.
// A prefix ending in "/" matches any id under it; otherwise it matches the
// exact id or any id under "prefix/". A nil or empty prefix list keeps
// everything.
func FilterPrefix(entries []Entry, prefixes []string) []Entry {
	if len(prefixes) == 0 {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		for _, prefix := range prefixes {
			if matchesPrefix(e.ID, prefix) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func matchesPrefix(id, prefix string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(id, prefix)
	}
	return id == prefix || strings.HasPrefix(id, prefix+"/")
}

// parseGeometry converts GeoJSON Polygon/MultiPolygon coordinates into a
// MultiPolygon. Other geometry types are rejected.
func parseGeometry(geomType string, raw json.RawMessage) (geometry.MultiPolygon, error) {
	switch geomType {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(raw, &rings); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		poly, err := toPolygon(rings)
		if err != nil {
			return nil, err
		}
		return geometry.MultiPolygon{poly}, nil

	case "MultiPolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		m := make(geometry.MultiPolygon, 0, len(parts))
		for _, rings := range parts {
			poly, err := toPolygon(rings)
			if err != nil {
				return nil, err
			}
			m = append(m, poly)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported geometry type %q", geomType)
	}
}

func toPolygon(rings [][][]float64) (geometry.Polygon, error) {
	if len(rings) == 0 {
		return geometry.Polygon{}, fmt.Errorf("polygon with no rings")
	}
	var poly geometry.Polygon
	for i, ring := range rings {
		r := make(geometry.Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return geometry.Polygon{}, fmt.Errorf("position with %d ordinates", len(pos))
			}
			r = append(r, geometry.Point{Lon: pos[0], Lat: pos[1]})
		}
		if i == 0 {
			poly.Exterior = r
		} else {
			poly.Holes = append(poly.Holes, r)
		}
	}
	return poly, nil
}
