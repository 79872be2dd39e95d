package runtime

import (
	"strings"

	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

// ValidateSubmission checks required fields against submitted values and
// returns per-field messages, empty when the submission is acceptable.
// Fields force-hidden by the current rule decisions are exempt: a visitor
// cannot be blocked on input they were never shown. Layout nodes never
// validate.
func ValidateSubmission(snap *Snapshot, values map[string]string) map[string]string {
	decision := Evaluate(snap, values)

	errs := map[string]string{}
	for _, f := range snap.Fields {
		if f.Type.IsLayout() || !f.Required {
			continue
		}
		if decision.Hidden[f.ID] {
			continue
		}
		if strings.TrimSpace(values[f.ID]) == "" {
			errs[f.ID] = requiredMessage(f)
		}
	}
	return errs
}

func requiredMessage(f store.Field) string {
	label := f.Label
	if label == "" {
		label = f.Name
	}
	if label == "" {
		return "Campo obrigatório"
	}
	return label + " é obrigatório"
}

// NormalizeValues runs masked field types through their formatters and
// applies the rules' pending forced assignments. Forced assignments land
// after user input resolution, never before.
func NormalizeValues(snap *Snapshot, values map[string]string) map[string]string {
	byID := make(map[string]store.Field, len(snap.Fields))
	for _, f := range snap.Fields {
		byID[f.ID] = f
	}

	out := make(map[string]string, len(values))
	for id, v := range values {
		if f, ok := byID[id]; ok {
			out[id] = forms.MaskValue(f.Type, v)
			continue
		}
		// Values for unknown field ids are dropped rather than stored.
	}

	decision := Evaluate(snap, out)
	for id, v := range decision.SetValues {
		if _, ok := byID[id]; ok {
			out[id] = v
		}
	}
	return out
}
