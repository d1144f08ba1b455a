package cascade

import (
	"strconv"
	"strings"

	"tagforge/internal/products"
	"tagforge/internal/schema"
)

// SystemPrompt instructs the model on the response contract shared by the
// cascade and the recovery pass.
const SystemPrompt = `You are a product tagging assistant for a vaping and CBD e-commerce catalog.
Assign tags strictly from the allowed vocabulary you are given. Never invent tags.
Respond with a single JSON object: {"tags": ["..."], "confidence": 0.0, "reasoning": "..."}.
Confidence is your own estimate between 0 and 1 of how certain you are that every tag is correct.`

// BuildUserPrompt renders the tagging request for one product. Only the
// dimensions applicable to the category are included to bound prompt size;
// with no category the full vocabulary is sent.
func BuildUserPrompt(record products.Record, category string, s *schema.Schema) string {
	var b strings.Builder
	b.WriteString("Product handle: ")
	b.WriteString(record.Handle)
	b.WriteString("\nTitle: ")
	b.WriteString(record.Title)
	if desc := strings.TrimSpace(record.Description); desc != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(desc)
	}
	for _, opt := range record.Options {
		b.WriteString("\nOption ")
		b.WriteString(opt.Name)
		b.WriteString(": ")
		b.WriteString(opt.Value)
	}
	if len(record.VariantValues) > 0 {
		b.WriteString("\nVariants: ")
		b.WriteString(strings.Join(record.VariantValues, ", "))
	}
	if category != "" {
		b.WriteString("\n\nCategory: ")
		b.WriteString(category)
	} else {
		b.WriteString("\n\nCategory: unknown. Valid categories: ")
		b.WriteString(strings.Join(s.Categories(), ", "))
	}
	b.WriteString("\n\nAllowed vocabulary:\n")
	b.WriteString(VocabularyBlock(s, category))
	b.WriteString("\nReturn only tags from the allowed vocabulary.")
	return b.String()
}

// VocabularyBlock renders the schema dimensions applicable to category as a
// prompt fragment, one dimension per line.
func VocabularyBlock(s *schema.Schema, category string) string {
	var dims []schema.Dimension
	if category != "" {
		dims = s.DimensionsFor(category)
	} else {
		for _, dim := range s.Dimensions() {
			if dim.Name != schema.CategoryDimension {
				dims = append(dims, dim)
			}
		}
	}
	var b strings.Builder
	for _, dim := range dims {
		b.WriteString("- ")
		b.WriteString(dim.Name)
		b.WriteString(": ")
		if dim.Enumerated() {
			b.WriteString(strings.Join(dim.Values, ", "))
		} else {
			b.WriteString("numeric ")
			b.WriteString(formatRange(dim.Range.Min))
			b.WriteString("-")
			b.WriteString(formatRange(dim.Range.Max))
			b.WriteString(dim.Range.Unit)
			b.WriteString(" (tag format: <value>")
			b.WriteString(dim.Range.Unit)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRange(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
