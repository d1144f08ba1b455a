package validate

import (
	"strings"
	"testing"

	"tagforge/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(schema.Sample()))
	if err != nil {
		t.Fatalf("parse sample schema: %v", err)
	}
	return s
}

func containsReason(failures []string, fragment string) bool {
	for _, failure := range failures {
		if strings.Contains(failure, fragment) {
			return true
		}
	}
	return false
}

func TestCheckValidELiquidTags(t *testing.T) {
	s := testSchema(t)
	report := Check([]string{"3mg", "nic_salt", "fruity", "ice", "10ml", "70/30"}, "e-liquid", s)
	if !report.Valid {
		t.Fatalf("expected valid, got failures %v", report.Failures)
	}
}

func TestCheckUnknownTag(t *testing.T) {
	s := testSchema(t)
	report := Check([]string{"sparkly"}, "e-liquid", s)
	if report.Valid {
		t.Fatal("expected invalid")
	}
	if !containsReason(report.Failures, `unknown tag "sparkly"`) {
		t.Fatalf("expected unknown-tag reason, got %v", report.Failures)
	}
}

func TestCheckAppliesToMismatch(t *testing.T) {
	s := testSchema(t)
	// flavor_family does not apply to accessory.
	report := Check([]string{"fruity"}, "accessory", s)
	if report.Valid {
		t.Fatal("expected invalid")
	}
	if !containsReason(report.Failures, "does not apply to category") {
		t.Fatalf("expected applies_to reason, got %v", report.Failures)
	}
}

func TestCheckNumericOutOfRange(t *testing.T) {
	s := testSchema(t)
	report := Check([]string{"25mg"}, "e-liquid", s)
	if report.Valid {
		t.Fatal("expected invalid")
	}
	if !containsReason(report.Failures, "outside range") {
		t.Fatalf("expected range reason, got %v", report.Failures)
	}
}

func TestCheckLegalCeilingIndependentOfSchema(t *testing.T) {
	// Schema misconfigured with a 50mg ceiling; the legal rule must still
	// reject 25mg.
	broken := `
[dimensions.category]
values = ["e-liquid"]

[dimensions.nicotine_strength]
range = { min = 0.0, max = 50.0, unit = "mg" }
applies_to = ["e-liquid"]
`
	s, err := schema.Parse([]byte(broken))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	report := Check([]string{"25mg"}, "e-liquid", s)
	if report.Valid {
		t.Fatal("expected invalid despite permissive schema")
	}
	if !containsReason(report.Failures, "exceeds legal maximum 20mg") {
		t.Fatalf("expected legal ceiling reason, got %v", report.Failures)
	}
}

func TestCheckCBDHighStrengthAllowed(t *testing.T) {
	s := testSchema(t)
	report := Check([]string{"1000mg", "oil", "full_spectrum"}, "CBD", s)
	if !report.Valid {
		t.Fatalf("expected valid CBD set, got %v", report.Failures)
	}
}

func TestCheckCBDMandatoryDimensions(t *testing.T) {
	s := testSchema(t)
	report := Check(nil, "CBD", s)
	if report.Valid {
		t.Fatal("expected invalid")
	}
	if len(report.Failures) != 3 {
		t.Fatalf("expected three distinct failures, got %v", report.Failures)
	}
	for _, name := range []string{"cbd_strength", "cbd_form", "cbd_spectrum"} {
		if !containsReason(report.Failures, name) {
			t.Fatalf("expected failure naming %q, got %v", name, report.Failures)
		}
	}
}

func TestCheckCBDSingleMissingDimension(t *testing.T) {
	s := testSchema(t)
	report := Check([]string{"1000mg", "oil"}, "CBD", s)
	if report.Valid {
		t.Fatal("expected invalid")
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0], "cbd_spectrum") {
		t.Fatalf("expected single cbd_spectrum failure, got %v", report.Failures)
	}
}

func TestCheckEmptyTagsNonCBDValid(t *testing.T) {
	s := testSchema(t)
	report := Check(nil, "device", s)
	if !report.Valid {
		t.Fatalf("empty tag set must validate for non-CBD, got %v", report.Failures)
	}
}
