package forms

import (
	"fmt"
	"sort"
	"strings"
)

// Breakpoint bands. Desktop values are applied inline by the renderer;
// media queries exist only for tablet/mobile overrides, which inline
// styles cannot express.
const (
	mediaTablet = "@media (min-width: 768px) and (max-width: 1023px)"
	mediaMobile = "@media (max-width: 767px)"
)

// CSSInput carries the per-element style maps (breakpoint-suffixed keys
// included) and the decoded layout of each columns container.
type CSSInput struct {
	FormID    string
	Container map[string]string
	Fields    map[string]string
	Button    map[string]string
	Columns   []ColumnBlock
	RawCSS    string
}

// ColumnBlock is one columns container to scope rules to.
type ColumnBlock struct {
	FieldID string
	Layout  ContainerLayout
}

// cssProperty maps the closed style key set to CSS property names. Keys
// outside the set are not emitted.
var cssProperty = map[string]string{
	"background_color": "background-color",
	"text_color":       "color",
	"border_color":     "border-color",
	"border_radius":    "border-radius",
	"padding_top":      "padding-top",
	"padding_right":    "padding-right",
	"padding_bottom":   "padding-bottom",
	"padding_left":     "padding-left",
	"font_family":      "font-family",
	"font_size":        "font-size",
	"shadow":           "box-shadow",
}

var shadowTiers = map[string]string{
	"none": "none",
	"sm":   "0 1px 2px rgba(0,0,0,0.08)",
	"md":   "0 4px 10px rgba(0,0,0,0.12)",
	"lg":   "0 10px 30px rgba(0,0,0,0.18)",
}

// GenerateCSS emits the breakpoint-scoped stylesheet for one form. Rules
// are emitted only for properties with an explicit override at that
// breakpoint, with one exception: columns without an explicit mobile width
// stack at 100% so they never overflow a narrow viewport. Every selector
// is scoped by the form's data attribute so multiple embeds on one host
// page cannot collide.
func GenerateCSS(in CSSInput) string {
	var b strings.Builder

	scope := fmt.Sprintf(`[data-fl-form="%s"]`, in.FormID)

	writeBand(&b, mediaTablet, in, scope, ViewportTablet)
	writeBand(&b, mediaMobile, in, scope, ViewportMobile)

	if in.RawCSS != "" {
		b.WriteString(strings.TrimSpace(in.RawCSS))
		b.WriteString("\n")
	}

	return b.String()
}

func writeBand(b *strings.Builder, media string, in CSSInput, scope string, vp Viewport) {
	var rules []string

	rules = appendElementRules(rules, scope, BreakpointOverrides(in.Container, vp))
	rules = appendElementRules(rules, scope+" .fl-field", BreakpointOverrides(in.Fields, vp))
	rules = appendElementRules(rules, scope+" .fl-submit", BreakpointOverrides(in.Button, vp))

	for _, col := range in.Columns {
		rules = append(rules, columnRules(scope, col, vp)...)
	}

	if len(rules) == 0 {
		return
	}

	b.WriteString(media)
	b.WriteString(" {\n")
	for _, rule := range rules {
		b.WriteString("  ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
}

func appendElementRules(rules []string, selector string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return rules
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if _, ok := cssProperty[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return rules
	}
	sort.Strings(keys)

	var decls []string
	for _, k := range keys {
		decls = append(decls, fmt.Sprintf("%s: %s !important;", cssProperty[k], cssValue(k, overrides[k])))
	}
	return append(rules, fmt.Sprintf("%s { %s }", selector, strings.Join(decls, " ")))
}

// cssValue normalizes stored values: padding is stored as raw pixel
// integers, shadow as a tier name.
func cssValue(key, value string) string {
	switch key {
	case "padding_top", "padding_right", "padding_bottom", "padding_left":
		if !strings.HasSuffix(value, "px") && !strings.HasSuffix(value, "%") {
			return value + "px"
		}
	case "shadow":
		if v, ok := shadowTiers[value]; ok {
			return v
		}
	}
	return value
}

// InlineStyle renders a resolved style map as an inline style attribute
// value, desktop values only. Keys outside the closed property set are
// skipped.
func InlineStyle(style map[string]string) string {
	base := ForViewport(style, ViewportDesktop)

	keys := make([]string, 0, len(base))
	for k := range base {
		if _, ok := cssProperty[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var decls []string
	for _, k := range keys {
		decls = append(decls, cssProperty[k]+": "+cssValue(k, base[k]))
	}
	return strings.Join(decls, "; ")
}

func columnRules(scope string, col ColumnBlock, vp Viewport) []string {
	sel := fmt.Sprintf(`%s [data-fl-col="%s"]`, scope, col.FieldID)

	var widths []string
	switch vp {
	case ViewportTablet:
		widths = col.Layout.WidthsTablet
	case ViewportMobile:
		widths = col.Layout.WidthsMobile
	}

	if widths == nil {
		if vp != ViewportMobile {
			// No tablet override: natural fallthrough to desktop widths.
			return nil
		}
		// The one synthesized default: stack at 100% on mobile so columns
		// cannot silently overflow a narrow viewport.
		return []string{
			fmt.Sprintf("%s { flex-wrap: wrap !important; }", sel),
			fmt.Sprintf("%s > .fl-column { width: 100%% !important; }", sel),
		}
	}

	rules := make([]string, 0, len(widths))
	for i, w := range widths {
		rules = append(rules, fmt.Sprintf(
			"%s > .fl-column:nth-child(%d) { width: %s !important; }", sel, i+1, w))
	}
	return rules
}
