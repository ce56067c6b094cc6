package classify

import (
	"testing"

	"github.com/wegman-software/osm2pdf-go/internal/feature"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		tags        map[string]string
		wantCat     feature.Category
		wantSubtype string
	}{
		{
			name:        "building",
			tags:        map[string]string{"building": "yes"},
			wantCat:     feature.CategoryBuilding,
			wantSubtype: "building",
		},
		{
			name:        "building wins over landuse",
			tags:        map[string]string{"building": "yes", "landuse": "grass"},
			wantCat:     feature.CategoryBuilding,
			wantSubtype: "building",
		},
		{
			name:    "underground building ignored",
			tags:    map[string]string{"building": "yes", "location": "underground"},
			wantCat: feature.CategoryOther,
		},
		{
			name:    "building=no is not a building",
			tags:    map[string]string{"building": "no"},
			wantCat: feature.CategoryOther,
		},
		{
			name:        "motorway",
			tags:        map[string]string{"highway": "motorway"},
			wantCat:     feature.CategoryRoad,
			wantSubtype: "motorway",
		},
		{
			name:        "road under construction uses target class",
			tags:        map[string]string{"highway": "construction", "construction": "primary"},
			wantCat:     feature.CategoryRoad,
			wantSubtype: "primary",
		},
		{
			name:    "sidewalk excluded",
			tags:    map[string]string{"highway": "footway", "footway": "sidewalk"},
			wantCat: feature.CategoryOther,
		},
		{
			name:        "river is a waterway line",
			tags:        map[string]string{"waterway": "river"},
			wantCat:     feature.CategoryWater,
			wantSubtype: "river",
		},
		{
			name:        "lake polygon",
			tags:        map[string]string{"natural": "water", "water": "lake"},
			wantCat:     feature.CategoryWater,
			wantSubtype: "water_body",
		},
		{
			name:        "coastline",
			tags:        map[string]string{"natural": "coastline"},
			wantCat:     feature.CategoryWater,
			wantSubtype: "coastline",
		},
		{
			name:        "park",
			tags:        map[string]string{"leisure": "park"},
			wantCat:     feature.CategoryLanduse,
			wantSubtype: "park",
		},
		{
			name:        "forest via natural",
			tags:        map[string]string{"natural": "wood"},
			wantCat:     feature.CategoryLanduse,
			wantSubtype: "wood",
		},
		{
			name:        "administrative boundary",
			tags:        map[string]string{"boundary": "administrative"},
			wantCat:     feature.CategoryBoundary,
			wantSubtype: "administrative",
		},
		{
			name:    "unmatched tags are other",
			tags:    map[string]string{"amenity": "bench"},
			wantCat: feature.CategoryOther,
		},
		{
			name:    "no tags",
			tags:    map[string]string{},
			wantCat: feature.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &feature.Record{Tags: tt.tags}
			Classify(rec)
			if rec.Category != tt.wantCat {
				t.Errorf("category = %v, want %v", rec.Category, tt.wantCat)
			}
			if tt.wantSubtype != "" && rec.Subtype != tt.wantSubtype {
				t.Errorf("subtype = %q, want %q", rec.Subtype, tt.wantSubtype)
			}
		})
	}
}

func TestZOrderBands(t *testing.T) {
	classify := func(tags map[string]string) *feature.Record {
		rec := &feature.Record{Tags: tags}
		Classify(rec)
		return rec
	}

	park := classify(map[string]string{"leisure": "park"})
	lake := classify(map[string]string{"natural": "water"})
	building := classify(map[string]string{"building": "yes"})
	residential := classify(map[string]string{"highway": "residential"})
	motorway := classify(map[string]string{"highway": "motorway"})
	boundary := classify(map[string]string{"boundary": "administrative"})
	other := classify(map[string]string{"amenity": "bench"})

	// Draw order: other < landuse < water < building < roads < boundary.
	ordered := []*feature.Record{other, park, lake, building, residential, motorway, boundary}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].ZOrder >= ordered[i].ZOrder {
			t.Errorf("band %d (%v z=%d) not below band %d (%v z=%d)",
				i-1, ordered[i-1].Category, ordered[i-1].ZOrder,
				i, ordered[i].Category, ordered[i].ZOrder)
		}
	}

	// More important roads draw above less important ones.
	if motorway.ZOrder <= residential.ZOrder {
		t.Errorf("motorway z=%d should exceed residential z=%d", motorway.ZOrder, residential.ZOrder)
	}
}

func TestRoadHierarchy(t *testing.T) {
	if RoadHierarchy("motorway") != 1 {
		t.Errorf("motorway hierarchy = %d, want 1", RoadHierarchy("motorway"))
	}
	if RoadHierarchy("footway") != 8 {
		t.Errorf("footway hierarchy = %d, want 8", RoadHierarchy("footway"))
	}
	if RoadHierarchy("no_such_class") != 7 {
		t.Errorf("unknown class hierarchy = %d, want 7", RoadHierarchy("no_such_class"))
	}
}
