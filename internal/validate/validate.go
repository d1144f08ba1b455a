package validate

import (
	"fmt"
	"slices"
	"strconv"

	"tagforge/internal/schema"
)

// CategoryCBD is the category with mandatory-dimension requirements and an
// exemption from the nicotine strength ceiling.
const CategoryCBD = "CBD"

// LegalNicotineMaxMg is the regulatory ceiling for nicotine strength tags.
// It holds regardless of what the schema file says.
const LegalNicotineMaxMg = 20

// cbdMandatoryDimensions must each contribute at least one tag to a valid
// CBD product.
var cbdMandatoryDimensions = []string{"cbd_strength", "cbd_form", "cbd_spectrum"}

// Report is the validation outcome for one tag set.
type Report struct {
	Valid    bool
	Failures []string
}

// MandatoryDimensions returns the dimensions a category must cover, or nil
// when it has no such requirement.
func MandatoryDimensions(category string) []string {
	if category == CategoryCBD {
		return slices.Clone(cbdMandatoryDimensions)
	}
	return nil
}

// Check validates tags for the given category against the schema. It returns
// one failure reason per problem found; an empty failure list means valid.
func Check(tags []string, category string, s *schema.Schema) Report {
	var failures []string

	for _, tag := range tags {
		if reason := checkTag(tag, category, s); reason != "" {
			failures = append(failures, reason)
		}
	}

	if category == CategoryCBD {
		failures = append(failures, checkCBDMandatory(tags, s)...)
	}

	return Report{Valid: len(failures) == 0, Failures: failures}
}

// checkTag resolves one tag to its owning dimension and reports the first
// problem found, or "" when the tag is acceptable.
func checkTag(tag, category string, s *schema.Schema) string {
	var inapplicable []string

	for _, dim := range s.Dimensions() {
		if dim.Enumerated() {
			if !slices.Contains(dim.Values, tag) {
				continue
			}
			if !dim.AppliesToCategory(category) {
				inapplicable = append(inapplicable, dim.Name)
				continue
			}
			return ""
		}
		value, ok := schema.ParseNumericTag(tag, dim.Range.Unit)
		if !ok {
			continue
		}
		if !dim.AppliesToCategory(category) {
			inapplicable = append(inapplicable, dim.Name)
			continue
		}
		if value < dim.Range.Min || value > dim.Range.Max {
			return fmt.Sprintf("tag %q value %s outside range %s-%s%s (dimension %q)",
				tag, formatValue(value), formatValue(dim.Range.Min), formatValue(dim.Range.Max), dim.Range.Unit, dim.Name)
		}
		if reason := checkLegalStrength(tag, value, dim.Range.Unit, category); reason != "" {
			return reason
		}
		return ""
	}

	if len(inapplicable) > 0 {
		return fmt.Sprintf("tag %q belongs to dimension %q which does not apply to category %q",
			tag, inapplicable[0], category)
	}

	// The tag matched nothing in the schema. Apply the legal ceiling before
	// reporting it unknown so a stripped-down schema cannot mask an illegal
	// strength.
	if value, ok := schema.ParseNumericTag(tag, "mg"); ok {
		if reason := checkLegalStrength(tag, value, "mg", category); reason != "" {
			return reason
		}
	}
	return fmt.Sprintf("unknown tag %q", tag)
}

// checkLegalStrength enforces the nicotine ceiling on mg tags for every
// category except CBD.
func checkLegalStrength(tag string, value float64, unit, category string) string {
	if unit != "mg" || category == CategoryCBD {
		return ""
	}
	if value > LegalNicotineMaxMg {
		return fmt.Sprintf("nicotine strength %q exceeds legal maximum %dmg", tag, LegalNicotineMaxMg)
	}
	return ""
}

// checkCBDMandatory records one distinct failure per mandatory CBD dimension
// that has no tag present.
func checkCBDMandatory(tags []string, s *schema.Schema) []string {
	var failures []string
	for _, name := range cbdMandatoryDimensions {
		if !hasDimensionTag(tags, name, s) {
			failures = append(failures, fmt.Sprintf("category %q requires at least one %q tag", CategoryCBD, name))
		}
	}
	return failures
}

func hasDimensionTag(tags []string, dimension string, s *schema.Schema) bool {
	dim, ok := s.Dimension(dimension)
	if !ok {
		return false
	}
	for _, tag := range tags {
		if dim.Enumerated() {
			if slices.Contains(dim.Values, tag) {
				return true
			}
			continue
		}
		if _, ok := schema.ParseNumericTag(tag, dim.Range.Unit); ok {
			return true
		}
	}
	return false
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
