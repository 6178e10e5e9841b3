package formmap

import (
	"sort"
	"strings"
)

// FieldType is the DOM fill strategy for one mapped field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
)

// FieldMapping maps one user-data path to a selector and fill strategy.
// Selector may be a comma-separated fallback list tried in order.
type FieldMapping struct {
	Selector string    `json:"selector"`
	Type     FieldType `json:"type"`
}

// Analysis is the validated output of a form-mapping run.
type Analysis struct {
	FieldMappings  map[string]FieldMapping `json:"fieldMappings"`
	FormSelector   string                  `json:"formSelector"`
	SubmitSelector string                  `json:"submitSelector,omitempty"`
	ParsedData     map[string]string       `json:"parsedData,omitempty"`
}

// FillStep is one field-fill instruction for the content script. Steps are
// skippable: a selector chain that resolves to nothing is a warning, never
// a fatal error.
type FillStep struct {
	DataPath  string    `json:"dataPath"`
	Selectors []string  `json:"selectors"`
	Type      FieldType `json:"type"`
	Value     string    `json:"value"`
	DelayMs   int       `json:"delayMs"`
}

// fillDelayMs is the artificial pause after each field fill, emulating
// human pacing before the next field is touched.
const fillDelayMs = 250

// SplitSelectors splits a possibly comma-separated fallback selector list,
// dropping blanks. The content script tries each in order until one
// resolves to an existing element.
func SplitSelectors(selector string) []string {
	parts := strings.Split(selector, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuildFillPlan turns an analysis into ordered fill steps. Data paths with
// no parsed value are omitted; order is deterministic by data path.
func BuildFillPlan(a *Analysis) []FillStep {
	steps := make([]FillStep, 0, len(a.FieldMappings))
	for path, mapping := range a.FieldMappings {
		value, ok := a.ParsedData[path]
		if !ok || value == "" {
			continue
		}
		selectors := SplitSelectors(mapping.Selector)
		if len(selectors) == 0 {
			continue
		}
		steps = append(steps, FillStep{
			DataPath:  path,
			Selectors: selectors,
			Type:      mapping.Type,
			Value:     value,
			DelayMs:   fillDelayMs,
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].DataPath < steps[j].DataPath })
	return steps
}
