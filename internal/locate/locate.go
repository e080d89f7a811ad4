// Package locate resolves GPS points to timezones and estimates how far a
// point is from crossing into a different timezone.
package locate

import (
	"fmt"
	"math"

	"github.com/sweeney/tz-tracker/internal/geodesy"
	"github.com/sweeney/tz-tracker/internal/geometry"
	"github.com/sweeney/tz-tracker/internal/metrics"
	"github.com/sweeney/tz-tracker/internal/spatial"
	"github.com/sweeney/tz-tracker/internal/tzdata"
)

// edgeSearchK bounds the k-nearest pre-filter for edge-distance queries.
// Distance to the true boundary is not monotonic with box distance, so this
// is an approximation; 10 matches the reference behavior.
const edgeSearchK = 10

// DefaultMaxHeadingDistance is the heading-distance search cap in miles.
const DefaultMaxHeadingDistance = 200

// refineIterations is the number of binary-search halvings used to refine a
// boundary crossing.
const refineIterations = 10

// headingSteps is the coarse trial-distance ladder, in miles.
var headingSteps = []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 150, 200}

// Map is one immutable dataset snapshot: the polygon store and its spatial
// index, built together so they can never disagree. Safe for concurrent use.
type Map struct {
	entries []tzdata.Entry
	byID    map[string]int
	index   *spatial.Index
}

// NewMap builds a snapshot from the ordered entry sequence.
func NewMap(entries []tzdata.Entry) (*Map, error) {
	m := &Map{
		entries: entries,
		byID:    make(map[string]int, len(entries)),
	}
	polys := make([]geometry.MultiPolygon, 0, len(entries))
	for i, e := range entries {
		if _, dup := m.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate timezone id %s", e.ID)
		}
		m.byID[e.ID] = i
		polys = append(polys, e.Geometry)
	}

	idx, err := spatial.Build(polys)
	if err != nil {
		return nil, fmt.Errorf("build spatial index: %w", err)
	}
	m.index = idx
	return m, nil
}

// Len returns the number of timezones in the snapshot.
func (m *Map) Len() int { return len(m.entries) }

// Resolve returns the timezone containing the point, or the geometrically
// nearest timezone when no polygon contains it (offshore points, dataset
// gaps). ok is false only for an empty snapshot.
func (m *Map) Resolve(lat, lon float64) (id string, ok bool) {
	for _, pos := range m.index.Candidates(lat, lon) {
		if m.entries[pos].Geometry.Contains(lon, lat) {
			return m.entries[pos].ID, true
		}
	}

	// Box distance is a prefilter only: a multipart zone's sprawling box
	// can sit closer than a compact zone whose boundary is nearer. Rank
	// the k nearest boxes by true boundary distance.
	best := -1
	bestDist := math.Inf(1)
	for _, pos := range m.index.KNearest(lat, lon, edgeSearchK) {
		bp, bok := m.entries[pos].Geometry.NearestBoundaryPoint(lon, lat)
		if !bok {
			metrics.GeometrySkipsTotal.Inc()
			continue
		}
		if d := geodesy.Distance(lat, lon, bp.Lat, bp.Lon); d < bestDist {
			bestDist = d
			best = pos
		}
	}
	if best >= 0 {
		return m.entries[best].ID, true
	}
	return "", false
}

// EdgeDistance returns the straight-line distance in miles from the point
// to the nearest boundary of a timezone other than current, and that
// timezone's id. Returns (+Inf, "") when no other timezone is found among
// the k nearest candidates.
func (m *Map) EdgeDistance(lat, lon float64, current string) (float64, string) {
	minDist := math.Inf(1)
	nearest := ""
	for _, pos := range m.index.KNearest(lat, lon, edgeSearchK) {
		e := m.entries[pos]
		if e.ID == current {
			continue
		}
		bp, ok := e.Geometry.NearestBoundaryPoint(lon, lat)
		if !ok {
			metrics.GeometrySkipsTotal.Inc()
			continue
		}
		if d := geodesy.Distance(lat, lon, bp.Lat, bp.Lon); d < minDist {
			minDist = d
			nearest = e.ID
		}
	}
	return minDist, nearest
}

// HeadingDistance returns the distance in miles along the heading to the
// first real crossing into a different timezone, refined by binary search.
// Crossings into a gap of the current zone's own multipolygon, or into
// unzoned ocean, are not crossings. Returns maxDistance when no crossing is
// found within it — a "nothing nearby" sentinel, deliberately finite so the
// interval planner is not starved. Returns +Inf when current is unknown to
// the snapshot.
func (m *Map) HeadingDistance(lat, lon, heading float64, current string, maxDistance float64) float64 {
	pos, ok := m.byID[current]
	if !ok {
		return math.Inf(1)
	}
	geom := m.entries[pos].Geometry

	lastInside := 0.0
	for _, dist := range headingSteps {
		if dist > maxDistance {
			break
		}

		pLat, pLon := geodesy.Project(lat, lon, heading, dist)
		if geom.Contains(pLon, pLat) {
			lastInside = dist
			continue
		}

		// Left the current zone. A real boundary only if a different
		// zone is on the other side.
		other, found := m.Resolve(pLat, pLon)
		if !found || other == current {
			continue
		}

		low, high := lastInside, dist
		for i := 0; i < refineIterations; i++ {
			mid := (low + high) / 2
			mLat, mLon := geodesy.Project(lat, lon, heading, mid)
			if geom.Contains(mLon, mLat) {
				low = mid
			} else {
				high = mid
			}
		}
		return (low + high) / 2
	}
	return maxDistance
}
