package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_schema.toml
var sampleSchema string

// CategoryDimension is the dimension holding the product's primary classification.
const CategoryDimension = "category"

// NumericRange describes the bounds and unit of a numeric dimension.
type NumericRange struct {
	Min  float64 `toml:"min"`
	Max  float64 `toml:"max"`
	Unit string  `toml:"unit"`
}

// Dimension is one axis of the tag vocabulary. Exactly one of Values or
// Range is populated.
type Dimension struct {
	Name      string
	Values    []string
	Range     *NumericRange
	AppliesTo []string
}

// Enumerated reports whether the dimension carries a fixed tag set.
func (d Dimension) Enumerated() bool {
	return len(d.Values) > 0
}

// AppliesToCategory reports whether the dimension is valid for the category.
// A dimension with no applies_to list applies everywhere.
func (d Dimension) AppliesToCategory(category string) bool {
	if len(d.AppliesTo) == 0 {
		return true
	}
	for _, c := range d.AppliesTo {
		if c == category {
			return true
		}
	}
	return false
}

// Schema is an immutable snapshot of the tag vocabulary.
type Schema struct {
	dimensions map[string]Dimension
	order      []string
	categories []string
	valueIndex map[string]string
}

type fileDimension struct {
	Values    []string      `toml:"values"`
	Range     *NumericRange `toml:"range"`
	AppliesTo []string      `toml:"applies_to"`
}

type schemaFile struct {
	Dimensions map[string]fileDimension `toml:"dimensions"`
}

// ErrNoCategoryDimension indicates the schema file lacks the category dimension.
var ErrNoCategoryDimension = errors.New("schema has no category dimension")

// Parse builds a Schema from TOML schema file contents.
func Parse(data []byte) (*Schema, error) {
	var file schemaFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(file.Dimensions) == 0 {
		return nil, errors.New("schema defines no dimensions")
	}

	s := &Schema{
		dimensions: make(map[string]Dimension, len(file.Dimensions)),
		valueIndex: make(map[string]string),
	}
	for name, fd := range file.Dimensions {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("schema dimension with empty name")
		}
		if len(fd.Values) > 0 && fd.Range != nil {
			return nil, fmt.Errorf("dimension %q declares both values and a range", name)
		}
		if len(fd.Values) == 0 && fd.Range == nil {
			return nil, fmt.Errorf("dimension %q declares neither values nor a range", name)
		}
		if fd.Range != nil {
			if strings.TrimSpace(fd.Range.Unit) == "" {
				return nil, fmt.Errorf("dimension %q range has no unit", name)
			}
			if fd.Range.Max < fd.Range.Min {
				return nil, fmt.Errorf("dimension %q range max below min", name)
			}
		}
		dim := Dimension{
			Name:      name,
			Values:    append([]string(nil), fd.Values...),
			AppliesTo: append([]string(nil), fd.AppliesTo...),
		}
		if fd.Range != nil {
			r := *fd.Range
			dim.Range = &r
		}
		s.dimensions[name] = dim
		s.order = append(s.order, name)
		for _, value := range dim.Values {
			if name != CategoryDimension {
				s.valueIndex[value] = name
			}
		}
	}
	sort.Strings(s.order)

	category, ok := s.dimensions[CategoryDimension]
	if !ok || !category.Enumerated() {
		return nil, ErrNoCategoryDimension
	}
	s.categories = append([]string(nil), category.Values...)

	return s, nil
}

// LoadFile reads and parses a schema file from disk.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

// Categories returns the allowed primary categories in schema order.
func (s *Schema) Categories() []string {
	return append([]string(nil), s.categories...)
}

// HasCategory reports whether the category is part of the vocabulary.
func (s *Schema) HasCategory(category string) bool {
	for _, c := range s.categories {
		if c == category {
			return true
		}
	}
	return false
}

// Dimension returns the named dimension.
func (s *Schema) Dimension(name string) (Dimension, bool) {
	dim, ok := s.dimensions[name]
	return dim, ok
}

// Dimensions returns all dimensions sorted by name.
func (s *Schema) Dimensions() []Dimension {
	out := make([]Dimension, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.dimensions[name])
	}
	return out
}

// DimensionsFor returns the dimensions applicable to a category, excluding
// the category dimension itself. Used to scope prompts to the relevant
// vocabulary subset.
func (s *Schema) DimensionsFor(category string) []Dimension {
	out := make([]Dimension, 0, len(s.order))
	for _, name := range s.order {
		if name == CategoryDimension {
			continue
		}
		dim := s.dimensions[name]
		if dim.AppliesToCategory(category) {
			out = append(out, dim)
		}
	}
	return out
}

// DimensionForTag resolves a tag to its owning dimension. An enumerated
// value wins only when its dimension covers the category; otherwise each
// numeric dimension whose unit suffixes the tag and whose applies_to covers
// the category is considered. The second return is the parsed numeric value
// for range dimensions (zero otherwise).
func (s *Schema) DimensionForTag(tag, category string) (Dimension, float64, bool) {
	if name, ok := s.valueIndex[tag]; ok {
		if dim := s.dimensions[name]; dim.AppliesToCategory(category) {
			return dim, 0, true
		}
	}
	for _, name := range s.order {
		dim := s.dimensions[name]
		if dim.Range == nil {
			continue
		}
		value, ok := ParseNumericTag(tag, dim.Range.Unit)
		if !ok {
			continue
		}
		if !dim.AppliesToCategory(category) {
			continue
		}
		return dim, value, true
	}
	return Dimension{}, 0, false
}

// HasTag reports whether a tag belongs to the vocabulary for the category.
func (s *Schema) HasTag(tag, category string) bool {
	_, _, ok := s.DimensionForTag(tag, category)
	return ok
}

// KnownTag reports whether a tag matches any dimension regardless of
// category applicability. Used when no category has been detected yet.
func (s *Schema) KnownTag(tag string) bool {
	if _, ok := s.valueIndex[tag]; ok {
		return true
	}
	for _, name := range s.order {
		dim := s.dimensions[name]
		if dim.Range == nil {
			continue
		}
		if _, ok := ParseNumericTag(tag, dim.Range.Unit); ok {
			return true
		}
	}
	return false
}

// ParseNumericTag splits a tag of the form "<number><unit>" and returns the
// numeric component. The match is case-insensitive on the unit.
func ParseNumericTag(tag, unit string) (float64, bool) {
	tag = strings.TrimSpace(tag)
	unit = strings.TrimSpace(unit)
	if tag == "" || unit == "" {
		return 0, false
	}
	lower := strings.ToLower(tag)
	if !strings.HasSuffix(lower, strings.ToLower(unit)) {
		return 0, false
	}
	number := strings.TrimSpace(tag[:len(tag)-len(unit)])
	if number == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// CreateSample writes the embedded sample schema to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create schema directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleSchema), 0o644); err != nil {
		return fmt.Errorf("write sample schema: %w", err)
	}
	return nil
}

// Sample returns the embedded sample schema contents.
func Sample() string {
	return sampleSchema
}
