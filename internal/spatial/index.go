// Package spatial provides a bounding-box index over timezone geometries,
// backed by an R-tree. Queries return positions into the entry sequence the
// index was built from; callers pair the index with the same sequence.
package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/sweeney/tz-tracker/internal/geometry"
)

// pointTolerance pads point queries and degenerate boxes so the R-tree
// always sees positive extents.
const pointTolerance = 1e-9

// Index is a read-only bounding-box index. Build it once per dataset
// snapshot; it is safe for concurrent queries afterwards.
type Index struct {
	tree   *rtreego.Rtree
	bounds []geometry.Bounds
}

// item is the Spatial stored in the tree: an entry position plus its rect.
type item struct {
	pos  int
	rect rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect { return it.rect }

// Build indexes the geometries in order. Every geometry must have a
// bounding box; the loader's validation guarantees that for real datasets.
func Build(geoms []geometry.MultiPolygon) (*Index, error) {
	idx := &Index{
		tree:   rtreego.NewTree(2, 25, 50),
		bounds: make([]geometry.Bounds, len(geoms)),
	}
	for i, g := range geoms {
		b, ok := g.Bounds()
		if !ok {
			return nil, fmt.Errorf("entry %d has no bounding box", i)
		}
		rect, err := rtreego.NewRect(
			rtreego.Point{b.MinLon, b.MinLat},
			[]float64{extent(b.MaxLon - b.MinLon), extent(b.MaxLat - b.MinLat)})
		if err != nil {
			return nil, fmt.Errorf("entry %d rect: %w", i, err)
		}
		idx.bounds[i] = b
		idx.tree.Insert(&item{pos: i, rect: rect})
	}
	return idx, nil
}

// Size returns the number of indexed entries.
func (idx *Index) Size() int { return len(idx.bounds) }

// Candidates returns, in entry order, the positions whose bounding box
// contains the point. False positives are expected; false negatives are not.
func (idx *Index) Candidates(lat, lon float64) []int {
	if idx.Size() == 0 {
		return nil
	}
	hit := idx.tree.SearchIntersect(rtreego.Point{lon, lat}.ToRect(pointTolerance))
	out := make([]int, 0, len(hit))
	for _, sp := range hit {
		out = append(out, sp.(*item).pos)
	}
	sort.Ints(out)
	return out
}

// Nearest returns the position of the entry whose bounding box is closest
// to the point. Ties break toward the earlier entry. ok is false only for
// an empty index.
func (idx *Index) Nearest(lat, lon float64) (pos int, ok bool) {
	near := idx.KNearest(lat, lon, 1)
	if len(near) == 0 {
		return 0, false
	}
	return near[0], true
}

// KNearest returns up to k entry positions ordered by ascending
// bounding-box distance, ties broken by entry order. k larger than the
// index size is capped.
func (idx *Index) KNearest(lat, lon float64, k int) []int {
	n := idx.Size()
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	hit := idx.tree.NearestNeighbors(k, rtreego.Point{lon, lat})
	out := make([]int, 0, len(hit))
	for _, sp := range hit {
		if sp == nil {
			continue
		}
		out = append(out, sp.(*item).pos)
	}

	// The tree's ordering is by box distance but leaves tie order
	// unspecified; re-sort for a deterministic contract.
	sort.SliceStable(out, func(i, j int) bool {
		di := idx.boxDistance(out[i], lat, lon)
		dj := idx.boxDistance(out[j], lat, lon)
		if di != dj {
			return di < dj
		}
		return out[i] < out[j]
	})
	return out
}

// boxDistance is the squared planar distance from the point to entry pos's
// bounding box; zero when the point is inside the box.
func (idx *Index) boxDistance(pos int, lat, lon float64) float64 {
	b := idx.bounds[pos]
	dx := axisDistance(lon, b.MinLon, b.MaxLon)
	dy := axisDistance(lat, b.MinLat, b.MaxLat)
	return dx*dx + dy*dy
}

func axisDistance(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

func extent(d float64) float64 {
	return math.Max(d, pointTolerance)
}
