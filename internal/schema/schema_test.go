package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleLoaded(t *testing.T) *Schema {
	t.Helper()
	s, err := Parse([]byte(Sample()))
	if err != nil {
		t.Fatalf("parse sample schema: %v", err)
	}
	return s
}

func TestParseSampleSchema(t *testing.T) {
	s := sampleLoaded(t)

	categories := s.Categories()
	if len(categories) == 0 {
		t.Fatal("expected categories")
	}
	if !s.HasCategory("e-liquid") || !s.HasCategory("CBD") {
		t.Fatalf("expected core categories, got %v", categories)
	}

	dim, ok := s.Dimension("nicotine_strength")
	if !ok {
		t.Fatal("expected nicotine_strength dimension")
	}
	if dim.Enumerated() {
		t.Fatal("nicotine_strength should be a range dimension")
	}
	if dim.Range.Max != 20 {
		t.Fatalf("expected legal max 20, got %v", dim.Range.Max)
	}
	if dim.AppliesToCategory("CBD") {
		t.Fatal("nicotine_strength should not apply to CBD")
	}
}

func TestParseRejectsValueRangeConflict(t *testing.T) {
	for name, body := range map[string]string{
		"both": `
[dimensions.category]
values = ["e-liquid"]
[dimensions.broken]
values = ["a"]
range = { min = 0.0, max = 1.0, unit = "mg" }
`,
		"neither": `
[dimensions.category]
values = ["e-liquid"]
[dimensions.broken]
applies_to = ["e-liquid"]
`,
		"no-unit": `
[dimensions.category]
values = ["e-liquid"]
[dimensions.broken]
range = { min = 0.0, max = 1.0 }
`,
		"inverted": `
[dimensions.category]
values = ["e-liquid"]
[dimensions.broken]
range = { min = 5.0, max = 1.0, unit = "mg" }
`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestParseRequiresCategoryDimension(t *testing.T) {
	body := `
[dimensions.flavor_family]
values = ["fruity"]
`
	_, err := Parse([]byte(body))
	if err == nil {
		t.Fatal("expected error for missing category dimension")
	}
	if !strings.Contains(err.Error(), "category") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDimensionForTag(t *testing.T) {
	s := sampleLoaded(t)

	tests := []struct {
		tag      string
		category string
		wantDim  string
		wantVal  float64
		wantOK   bool
	}{
		{"fruity", "e-liquid", "flavor_family", 0, true},
		{"nic_salt", "e-liquid", "nicotine_type", 0, true},
		{"3mg", "e-liquid", "nicotine_strength", 3, true},
		{"1000mg", "CBD", "cbd_strength", 1000, true},
		{"10ml", "e-liquid", "capacity", 10, true},
		{"600puffs", "disposable", "puff_count", 600, true},
		{"unknown_tag", "e-liquid", "", 0, false},
		{"3mg", "device", "", 0, false},
		{"candy", "device", "", 0, false},
		{"oil", "e-liquid", "", 0, false},
	}
	for _, tc := range tests {
		dim, value, ok := s.DimensionForTag(tc.tag, tc.category)
		if ok != tc.wantOK {
			t.Fatalf("DimensionForTag(%q, %q) ok=%v, want %v", tc.tag, tc.category, ok, tc.wantOK)
		}
		if !ok {
			continue
		}
		if dim.Name != tc.wantDim {
			t.Fatalf("DimensionForTag(%q, %q) dimension=%q, want %q", tc.tag, tc.category, dim.Name, tc.wantDim)
		}
		if value != tc.wantVal {
			t.Fatalf("DimensionForTag(%q, %q) value=%v, want %v", tc.tag, tc.category, value, tc.wantVal)
		}
	}
}

func TestDimensionsForScopesByCategory(t *testing.T) {
	s := sampleLoaded(t)

	names := func(dims []Dimension) map[string]bool {
		out := make(map[string]bool, len(dims))
		for _, d := range dims {
			out[d.Name] = true
		}
		return out
	}

	cbd := names(s.DimensionsFor("CBD"))
	if !cbd["cbd_strength"] || !cbd["cbd_form"] || !cbd["cbd_spectrum"] {
		t.Fatalf("CBD subset missing mandatory dimensions: %v", cbd)
	}
	if cbd["nicotine_strength"] {
		t.Fatal("CBD subset should not include nicotine_strength")
	}
	if cbd[CategoryDimension] {
		t.Fatal("subset should exclude the category dimension")
	}

	liquid := names(s.DimensionsFor("e-liquid"))
	if !liquid["nicotine_strength"] || !liquid["vg_pg_ratio"] {
		t.Fatalf("e-liquid subset incomplete: %v", liquid)
	}
}

func TestParseNumericTag(t *testing.T) {
	tests := []struct {
		tag    string
		unit   string
		want   float64
		wantOK bool
	}{
		{"3mg", "mg", 3, true},
		{"20MG", "mg", 20, true},
		{"0.5ohm", "ohm", 0.5, true},
		{"10ml", "mg", 0, false},
		{"mg", "mg", 0, false},
		{"x3mg", "mg", 0, false},
		{"", "mg", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseNumericTag(tc.tag, tc.unit)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ParseNumericTag(%q, %q) = %v, %v; want %v, %v", tc.tag, tc.unit, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestLoadFileAndCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "schema.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(s.Categories()) == 0 {
		t.Fatal("expected categories from sample schema")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing schema file")
	}
	if _, err := os.Stat(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("file should not exist")
	}
}
