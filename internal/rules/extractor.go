package rules

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tagforge/internal/logging"
	"tagforge/internal/products"
	"tagforge/internal/schema"
	"tagforge/internal/textutil"
)

// Legal bounds for extracted strength values. Out-of-range matches are
// dropped, never clamped.
const (
	nicotineStrengthMaxMg = 20
	cbdStrengthMaxMg      = 50000
)

var (
	strengthPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mg\b`)
	capacityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ml\b`)
	puffPattern     = regexp.MustCompile(`(\d+)\s*puffs?\b`)
	ohmPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ohms?\b`)
	vgPgPattern     = regexp.MustCompile(`(\d{1,3})\s*%?\s*vg\s*/?\s*(\d{1,3})\s*%?\s*pg`)
	ratioPattern    = regexp.MustCompile(`(\d{1,3})\s*/\s*(\d{1,3})`)
)

// Extraction is the rule extractor output: schema-filtered tags and an
// optional category the rules are confident enough to force.
type Extraction struct {
	Tags     []string
	Category string
}

// Extractor derives tags from product text without any model call.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor constructs an Extractor. A nil logger disables logging.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logging.WithComponent(logger, "rules")}
}

// Extract tags a product against the supplied schema snapshot. It is a pure
// function of its inputs aside from logging dropped out-of-range values.
func (e *Extractor) Extract(record products.Record, s *schema.Schema) Extraction {
	titleText := searchable(record.TitleText())
	fullText := searchable(record.CombinedText())

	category := detectCategory(titleText)
	if category == "" {
		category = detectCategory(fullText)
	}
	if category != "" && !s.HasCategory(category) {
		category = ""
	}

	candidates := make(map[string]struct{})
	e.extractStrengths(record.Handle, fullText, category, candidates)
	extractMatches(capacityPattern, fullText, "ml", candidates)
	extractMatches(puffPattern, fullText, "puffs", candidates)
	extractMatches(ohmPattern, fullText, "ohm", candidates)
	extractRatios(fullText, candidates)
	extractKeywordTags(fullText, candidates)

	tags := make([]string, 0, len(candidates))
	for tag := range candidates {
		if category != "" {
			if s.HasTag(tag, category) {
				tags = append(tags, tag)
			}
			continue
		}
		if s.KnownTag(tag) {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)

	return Extraction{Tags: tags, Category: category}
}

// detectCategory returns the first signal whose keywords appear in text.
// Signal order encodes specificity, so the first hit wins.
func detectCategory(text string) string {
	for _, signal := range categorySignals {
		for _, keyword := range signal.keywords {
			if containsPhrase(text, keyword) {
				return signal.category
			}
		}
	}
	return ""
}

func (e *Extractor) extractStrengths(handle, text, category string, out map[string]struct{}) {
	maxMg := float64(nicotineStrengthMaxMg)
	if category == "CBD" {
		maxMg = cbdStrengthMaxMg
	}
	for _, match := range strengthPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		if value < 0 || value > maxMg {
			e.logger.Warn("strength outside legal range dropped",
				logging.String(logging.FieldHandle, handle),
				logging.Float64("value_mg", value),
				logging.Float64("max_mg", maxMg),
				logging.String(logging.FieldEventType, "strength_dropped"),
			)
			continue
		}
		out[formatNumber(value)+"mg"] = struct{}{}
	}
}

func extractMatches(pattern *regexp.Regexp, text, unit string, out map[string]struct{}) {
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		out[formatNumber(value)+unit] = struct{}{}
	}
}

// extractRatios finds VG/PG declarations and normalizes them so the larger
// component comes first. Pairs that do not sum to 100 are skipped.
func extractRatios(text string, out map[string]struct{}) {
	addRatio := func(a, b string) {
		first, err1 := strconv.Atoi(a)
		second, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil {
			return
		}
		if first+second != 100 {
			return
		}
		if second > first {
			first, second = second, first
		}
		out[strconv.Itoa(first)+"/"+strconv.Itoa(second)] = struct{}{}
	}
	for _, match := range vgPgPattern.FindAllStringSubmatch(text, -1) {
		addRatio(match[1], match[2])
	}
	for _, match := range ratioPattern.FindAllStringSubmatch(text, -1) {
		addRatio(match[1], match[2])
	}
}

func extractKeywordTags(text string, out map[string]struct{}) {
	for _, signals := range []map[string][]string{flavorSignals, cbdFormSignals, cbdSpectrumSignals} {
		for tag, keywords := range signals {
			for _, keyword := range keywords {
				if containsPhrase(text, keyword) {
					out[tag] = struct{}{}
					break
				}
			}
		}
	}
	for _, signal := range nicotineTypeSignals {
		for _, keyword := range signal.keywords {
			if containsPhrase(text, keyword) {
				out[signal.tag] = struct{}{}
				break
			}
		}
	}
}

// searchable lowercases text and replaces punctuation with spaces, keeping
// digits, '/', '.', and '%' so numeric patterns survive.
func searchable(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/' || r == '.' || r == '%':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return textutil.Normalize(b.String())
}

// containsPhrase matches a phrase on word boundaries within searchable text.
func containsPhrase(text, phrase string) bool {
	if text == "" || phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
