// Package geometry provides planar polygon operations over lon/lat
// coordinates: containment, nearest-boundary-point, and bounding boxes.
// Conversion of planar results to great-circle distances is the caller's
// concern.
package geometry

import (
	"fmt"
	"math"
)

// Point is a planar coordinate in (longitude, latitude) order, matching
// GeoJSON position order.
type Point struct {
	Lon float64
	Lat float64
}

// Ring is a closed sequence of points. The closing segment from the last
// point back to the first is implicit; a repeated final point is tolerated.
type Ring []Point

// Polygon is a single exterior ring with optional interior holes.
type Polygon struct {
	Exterior Ring
	Holes    []Ring
}

// MultiPolygon is one timezone's full geometry: one or more disjoint parts
// (islands, exclaves).
type MultiPolygon []Polygon

// Bounds is an axis-aligned bounding box in lon/lat.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Contains reports whether the point lies inside the multipolygon:
// inside some part's exterior and outside that part's holes.
func (m MultiPolygon) Contains(lon, lat float64) bool {
	for _, poly := range m {
		if !poly.Exterior.contains(lon, lat) {
			continue
		}
		inHole := false
		for _, h := range poly.Holes {
			if h.contains(lon, lat) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// NearestBoundaryPoint returns the closest point on any ring of the
// multipolygon to (lon, lat), by planar distance. ok is false when the
// geometry has no segments.
func (m MultiPolygon) NearestBoundaryPoint(lon, lat float64) (nearest Point, ok bool) {
	best := math.Inf(1)
	for _, poly := range m {
		rings := append([]Ring{poly.Exterior}, poly.Holes...)
		for _, ring := range rings {
			p, d, found := ring.nearestPoint(lon, lat)
			if found && d < best {
				best = d
				nearest = p
				ok = true
			}
		}
	}
	return nearest, ok
}

// Bounds returns the bounding box over all parts. ok is false for empty
// geometry.
func (m MultiPolygon) Bounds() (Bounds, bool) {
	b := Bounds{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	found := false
	for _, poly := range m {
		for _, p := range poly.Exterior {
			b.MinLon = math.Min(b.MinLon, p.Lon)
			b.MinLat = math.Min(b.MinLat, p.Lat)
			b.MaxLon = math.Max(b.MaxLon, p.Lon)
			b.MaxLat = math.Max(b.MaxLat, p.Lat)
			found = true
		}
	}
	return b, found
}

// Validate checks that every ring has at least three distinct vertices with
// finite coordinates. Invalid geometry is rejected at load time so that
// query paths never have to care.
func (m MultiPolygon) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("empty geometry")
	}
	for i, poly := range m {
		if err := poly.Exterior.validate(); err != nil {
			return fmt.Errorf("part %d exterior: %w", i, err)
		}
		for j, h := range poly.Holes {
			if err := h.validate(); err != nil {
				return fmt.Errorf("part %d hole %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// contains is an even-odd ray cast: count crossings of a ray extending in
// +lon from the point.
func (r Ring) contains(lon, lat float64) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := r[i], r[j]
		if (pi.Lat > lat) != (pj.Lat > lat) {
			cross := (pj.Lon-pi.Lon)*(lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if lon < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// nearestPoint returns the closest point on the ring's boundary to
// (lon, lat) and the squared planar distance to it.
func (r Ring) nearestPoint(lon, lat float64) (Point, float64, bool) {
	n := len(r)
	if n == 0 {
		return Point{}, 0, false
	}
	if n == 1 {
		d := sqDist(lon, lat, r[0].Lon, r[0].Lat)
		return r[0], d, true
	}

	best := math.Inf(1)
	var bestPt Point
	j := n - 1
	for i := 0; i < n; i++ {
		p := closestOnSegment(lon, lat, r[j], r[i])
		d := sqDist(lon, lat, p.Lon, p.Lat)
		if d < best {
			best = d
			bestPt = p
		}
		j = i
	}
	return bestPt, best, true
}

// closestOnSegment projects (lon, lat) onto the segment a-b, clamped to the
// segment endpoints.
func closestOnSegment(lon, lat float64, a, b Point) Point {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a
	}
	t := ((lon-a.Lon)*dx + (lat-a.Lat)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Point{Lon: a.Lon + t*dx, Lat: a.Lat + t*dy}
}

func sqDist(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

func (r Ring) validate() error {
	distinct := 0
	seen := make(map[Point]struct{}, len(r))
	for _, p := range r {
		if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) ||
			math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
			return fmt.Errorf("non-finite coordinate (%v, %v)", p.Lon, p.Lat)
		}
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			distinct++
		}
	}
	if distinct < 3 {
		return fmt.Errorf("ring has %d distinct vertices, need 3", distinct)
	}
	return nil
}
