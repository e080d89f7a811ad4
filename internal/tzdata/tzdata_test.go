package tzdata

import (
	"strings"
	"testing"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "properties": {"tzid": "America/Denver"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[-110, 37], [-102, 37], [-102, 41], [-110, 41], [-110, 37]]]
      }
    },
    {
      "properties": {"tzid": "America/Chicago"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[-102, 37], [-90, 37], [-90, 41], [-102, 41], [-102, 37]]],
          [[[-89, 46], [-88, 46], [-88, 47], [-89, 47], [-89, 46]]]
        ]
      }
    },
    {
      "properties": {"tzid": ""},
      "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1]]]}
    },
    {
      "properties": {"tzid": "Bad/Degenerate"},
      "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 1]]]}
    },
    {
      "properties": {"tzid": "Bad/PointType"},
      "geometry": {"type": "Point", "coordinates": [0, 0]}
    }
  ]
}`

func TestReadSample(t *testing.T) {
	entries, err := Read(strings.NewReader(sampleGeoJSON))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 usable entries, got %d", len(entries))
	}
	if entries[0].ID != "America/Denver" || entries[1].ID != "America/Chicago" {
		t.Errorf("unexpected ids: %s, %s", entries[0].ID, entries[1].ID)
	}

	if !entries[0].Geometry.Contains(-105, 39) {
		t.Error("Denver polygon should contain (-105, 39)")
	}
	if len(entries[1].Geometry) != 2 {
		t.Errorf("Chicago should be a two-part multipolygon, got %d parts", len(entries[1].Geometry))
	}
	if !entries[1].Geometry.Contains(-88.5, 46.5) {
		t.Error("Chicago's second part should contain (-88.5, 46.5)")
	}
}

func TestReadDuplicateKeepsFirst(t *testing.T) {
	dup := `{
	  "type": "FeatureCollection",
	  "features": [
	    {"properties": {"tzid": "Zone/A"},
	     "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1]]]}},
	    {"properties": {"tzid": "Zone/A"},
	     "geometry": {"type": "Polygon", "coordinates": [[[5, 5], [6, 5], [6, 6], [5, 6]]]}}
	  ]
	}`
	entries, err := Read(strings.NewReader(dup))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after dedupe, got %d", len(entries))
	}
	if !entries[0].Geometry.Contains(0.5, 0.5) {
		t.Error("dedupe should keep the first geometry")
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"type": "FeatureCollection", "features": []}`)); err == nil {
		t.Error("expected error for dataset with no usable boundaries")
	}
	if _, err := Read(strings.NewReader(`not json`)); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestFilterPrefix(t *testing.T) {
	entries := []Entry{
		{ID: "America/Denver"},
		{ID: "America/Indiana/Knox"},
		{ID: "Europe/Paris"},
		{ID: "America/Indiana"},
	}

	got := FilterPrefix(entries, []string{"America/Indiana"})
	if len(got) != 2 {
		t.Fatalf("exact-or-children filter: expected 2, got %d", len(got))
	}

	got = FilterPrefix(entries, []string{"Europe/"})
	if len(got) != 1 || got[0].ID != "Europe/Paris" {
		t.Errorf("slash filter: got %v", got)
	}

	got = FilterPrefix(entries, nil)
	if len(got) != len(entries) {
		t.Errorf("nil filter should keep everything, got %d", len(got))
	}

	got = FilterPrefix(entries, []string{"Asia/"})
	if len(got) != 0 {
		t.Errorf("non-matching filter should keep nothing, got %d", len(got))
	}
}
