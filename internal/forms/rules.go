package forms

import (
	"sort"
	"strconv"
	"strings"

	"github.com/formloom/formloom/internal/store"
)

// Decision is the immutable outcome of one rule evaluation pass.
//
// Hidden and Shown are disjoint: a later rule targeting the same field
// replaces the earlier outcome. SetValues are pending forced assignments;
// the caller applies them after user input resolution so a rule cannot be
// overwritten by the keystroke that triggered it. SkipToStep and
// RedirectURL are flow-control outcomes for the step navigator and the
// submit handler.
type Decision struct {
	Hidden      map[string]bool   `json:"hidden,omitempty"`
	Shown       map[string]bool   `json:"shown,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	SkipToStep  *int              `json:"skip_to_step,omitempty"`
	SetValues   map[string]string `json:"set_values,omitempty"`
}

// EvaluateRules folds the active rules, in ascending order, over the
// current field values. knownFields is the id set of the resolved tree;
// rules referencing a field outside it are inert, not an error.
func EvaluateRules(rules []store.Rule, values map[string]string, knownFields map[string]bool) Decision {
	decision := Decision{
		Hidden:    map[string]bool{},
		Shown:     map[string]bool{},
		SetValues: map[string]string{},
	}

	ordered := make([]store.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})

	for _, rule := range ordered {
		if !rule.Active {
			continue
		}
		if !ruleMatches(rule, values, knownFields) {
			continue
		}
		applyAction(&decision, rule)
	}

	return decision
}

func ruleMatches(rule store.Rule, values map[string]string, knownFields map[string]bool) bool {
	if len(rule.Conditions) == 0 {
		return false
	}

	for _, cond := range rule.Conditions {
		ok := conditionTrue(cond, values, knownFields)
		if rule.Logic == store.LogicOr {
			if ok {
				return true
			}
			continue
		}
		// AND (the default) requires every condition.
		if !ok {
			return false
		}
	}
	return rule.Logic != store.LogicOr
}

func conditionTrue(cond store.Condition, values map[string]string, knownFields map[string]bool) bool {
	if knownFields != nil && !knownFields[cond.FieldID] {
		return false
	}

	current := strings.TrimSpace(values[cond.FieldID])
	expected := strings.TrimSpace(cond.Value)

	switch cond.Operator {
	case store.OpEquals:
		return current == expected
	case store.OpNotEquals:
		return current != expected
	case store.OpContains:
		return expected != "" && strings.Contains(current, expected)
	case store.OpNotContains:
		return !strings.Contains(current, expected)
	case store.OpGreater:
		a, b, ok := parsePair(current, expected)
		return ok && a > b
	case store.OpLess:
		a, b, ok := parsePair(current, expected)
		return ok && a < b
	case store.OpEmpty:
		// Comparison value ignored.
		return current == ""
	case store.OpNotEmpty:
		return current != ""
	}
	return false
}

// parsePair parses both sides as numbers; a failed parse on either side
// makes the comparison false.
func parsePair(a, b string) (float64, float64, bool) {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return x, y, true
}

func applyAction(d *Decision, rule store.Rule) {
	switch rule.Action {
	case store.ActionShow:
		delete(d.Hidden, rule.TargetFieldID)
		d.Shown[rule.TargetFieldID] = true
	case store.ActionHide:
		delete(d.Shown, rule.TargetFieldID)
		d.Hidden[rule.TargetFieldID] = true
	case store.ActionSkipStep:
		step := rule.TargetStep
		d.SkipToStep = &step
	case store.ActionRedirect:
		d.RedirectURL = rule.TargetURL
	case store.ActionSetValue:
		d.SetValues[rule.TargetFieldID] = rule.TargetValue
	}
}
