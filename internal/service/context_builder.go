package service

import (
	"strings"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// Context assembly defaults.
const (
	DefaultContextMaxChars  = 1200
	DefaultContextMaxFields = 24
	ContextSeparator        = " | "
)

// ContextConfig bounds an assembled context.
type ContextConfig struct {
	MaxChars  int
	MaxFields int
}

// DefaultContextConfig returns the standard bounds.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		MaxChars:  DefaultContextMaxChars,
		MaxFields: DefaultContextMaxFields,
	}
}

// contextStep emits one known payload field.
type contextStep struct {
	field   string
	extract func(p domain.Payload, field string) string
}

func fieldText(p domain.Payload, field string) string {
	return strings.TrimSpace(p.String(field))
}

func steps(extract func(domain.Payload, string) string, fields ...string) []contextStep {
	out := make([]contextStep, len(fields))
	for i, f := range fields {
		out[i] = contextStep{field: f, extract: extract}
	}
	return out
}

// contextPriority is the only place that decides the order known fields are
// emitted in.
var contextPriority = concatSteps(
	steps(fieldText, "Description", "description", "Article Description", "article_description"),
	steps(fieldText, "article", "heading", "text"),
	steps(fieldText, "HTS Number", "hts_number", "hts10", "HTS10", "Heading/Subheading", "heading_subheading", "Stat Suffix", "stat_suffix", "code"),
	steps(fieldText, "Unit of Quantity", "unit_of_quantity", "uoq"),
	steps(fieldText, "General Rate of Duty", "general_rate_of_duty", "rate_general"),
	steps(fieldText, "Special Rate of Duty", "special_rate_of_duty", "rate_special"),
	steps(fieldText, "Column 2 Rate of Duty", "column_2_rate_of_duty", "rate_col2"),
	steps(fieldText, "Additional Duties", "additional_duties"),
	steps(fieldText, "Quota Quantity", "quota_quantity"),
	steps(fieldText, "citation"),
)

func concatSteps(groups ...[]contextStep) []contextStep {
	var out []contextStep
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// provenanceKeys never appear in a context.
var provenanceKeys = map[string]bool{
	domain.PayloadSnapshotID: true,
	domain.PayloadRowIndex:   true,
	domain.PayloadSourceCSV:  true,
}

// ContextBuilder renders a hit payload as "field: value | field: value" text
// for answer extraction.
type ContextBuilder struct {
	cfg ContextConfig
}

// NewContextBuilder creates a ContextBuilder. Zero bounds take the defaults.
func NewContextBuilder(cfg ContextConfig) *ContextBuilder {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultContextMaxChars
	}
	if cfg.MaxFields <= 0 {
		cfg.MaxFields = DefaultContextMaxFields
	}
	return &ContextBuilder{cfg: cfg}
}

// Build emits the known fields in priority order, then every other field in
// payload order, skipping empty values and fields already emitted under
// another spelling. It stops after MaxFields segments and cuts the text to
// MaxChars at a word boundary. An empty result means "nothing to extract
// from".
func (b *ContextBuilder) Build(payload domain.Payload) string {
	segments := make([]string, 0, b.cfg.MaxFields)
	visited := make(map[string]bool)
	emitted := make(map[string]bool)

	emit := func(field, value string) bool {
		if len(segments) >= b.cfg.MaxFields {
			return false
		}
		visited[field] = true
		key := normalizeFieldName(field)
		if value == "" || emitted[key] {
			return true
		}
		emitted[key] = true
		segments = append(segments, field+": "+value)
		return true
	}

	for _, step := range contextPriority {
		if _, ok := payload.Get(step.field); !ok {
			continue
		}
		if !emit(step.field, step.extract(payload, step.field)) {
			break
		}
	}

	for _, f := range payload.Fields() {
		if visited[f.Key] || provenanceKeys[f.Key] {
			continue
		}
		if !emit(f.Key, strings.TrimSpace(domain.StringValue(f.Value))) {
			break
		}
	}

	text, _ := truncateWords(strings.Join(segments, ContextSeparator), b.cfg.MaxChars)
	return text
}

// normalizeFieldName folds case and separators so "General Rate of Duty" and
// "general_rate_of_duty" count as one field.
func normalizeFieldName(field string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '/', '.':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, field)
}
