package forms

import (
	"encoding/json"
	"strings"

	"github.com/formloom/formloom/internal/store"
)

// Viewport selects a breakpoint band during style resolution.
type Viewport string

const (
	ViewportDesktop Viewport = "desktop"
	ViewportTablet  Viewport = "tablet"
	ViewportMobile  Viewport = "mobile"
)

// Breakpoint suffixes on style keys. A key without a suffix is the desktop
// (base) value.
const (
	suffixTablet = "_tablet"
	suffixMobile = "_mobile"
)

// Global defaults, the bottom layer of every cascade.
var (
	DefaultContainerStyle = map[string]string{
		"background_color": "#ffffff",
		"border_radius":    "8px",
		"padding_top":      "24",
		"padding_right":    "24",
		"padding_bottom":   "24",
		"padding_left":     "24",
		"shadow":           "sm",
	}

	DefaultHeaderStyle = map[string]string{
		"text_color": "#111111",
		"font_size":  "24px",
	}

	DefaultFieldStyle = map[string]string{
		"background_color": "#ffffff",
		"text_color":       "#333333",
		"border_color":     "#d0d0d0",
		"border_radius":    "6px",
		"padding_top":      "10",
		"padding_right":    "12",
		"padding_bottom":   "10",
		"padding_left":     "12",
		"font_size":        "15px",
	}

	DefaultButtonStyle = map[string]string{
		"background_color": "#2563eb",
		"text_color":       "#ffffff",
		"border_radius":    "6px",
		"padding_top":      "12",
		"padding_right":    "20",
		"padding_bottom":   "12",
		"padding_left":     "20",
		"font_size":        "16px",
	}
)

// MergeLayers folds an ordered list of style layers into one map. Later
// layers win per key; empty values carry no opinion and never clear an
// earlier layer's value. Adding a layer is a call-site change only.
func MergeLayers(layers ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			if v == "" {
				continue
			}
			merged[k] = v
		}
	}
	return merged
}

// ForViewport resolves breakpoint-suffixed keys for one viewport. Every
// property falls back to its base value independently, so a style may
// override only its mobile font size while inheriting desktop padding.
// The result contains base keys only.
func ForViewport(style map[string]string, vp Viewport) map[string]string {
	suffix := ""
	switch vp {
	case ViewportTablet:
		suffix = suffixTablet
	case ViewportMobile:
		suffix = suffixMobile
	}

	out := map[string]string{}
	for k, v := range style {
		if strings.HasSuffix(k, suffixTablet) || strings.HasSuffix(k, suffixMobile) {
			continue
		}
		out[k] = v
	}
	if suffix == "" {
		return out
	}
	for k, v := range style {
		if v == "" || !strings.HasSuffix(k, suffix) {
			continue
		}
		out[strings.TrimSuffix(k, suffix)] = v
	}
	return out
}

// BreakpointOverrides extracts only the keys overridden for one breakpoint,
// mapped back to their base names. Used by the CSS generator, which emits
// rules solely for explicit overrides.
func BreakpointOverrides(style map[string]string, vp Viewport) map[string]string {
	suffix := ""
	switch vp {
	case ViewportTablet:
		suffix = suffixTablet
	case ViewportMobile:
		suffix = suffixMobile
	default:
		return nil
	}

	out := map[string]string{}
	for k, v := range style {
		if v == "" || !strings.HasSuffix(k, suffix) {
			continue
		}
		out[strings.TrimSuffix(k, suffix)] = v
	}
	return out
}

// FieldStyleOverride extracts the per-field style override from a field's
// validations bag: the field_style JSON blob plus the spacing_* pixel
// values mapped onto padding keys. Returns nil when the field carries no
// opinion.
func FieldStyleOverride(f *store.Field) map[string]string {
	if len(f.Validations) == 0 {
		return nil
	}

	out := map[string]string{}
	if raw, ok := f.Validations["field_style"]; ok && raw != "" {
		var override map[string]string
		// Malformed override blobs count as no opinion.
		if err := json.Unmarshal([]byte(raw), &override); err == nil {
			for k, v := range override {
				if v != "" {
					out[k] = v
				}
			}
		}
	}

	spacing := map[string]string{
		"spacing_top":    "padding_top",
		"spacing_right":  "padding_right",
		"spacing_bottom": "padding_bottom",
		"spacing_left":   "padding_left",
	}
	for src, dst := range spacing {
		if v, ok := f.Validations[src]; ok && v != "" {
			out[dst] = v
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// EffectiveFieldStyle runs the full cascade for one field at one viewport:
// global defaults, the form's saved field style, the per-field override,
// then breakpoint resolution.
func EffectiveFieldStyle(saved map[string]string, f *store.Field, vp Viewport) map[string]string {
	merged := MergeLayers(DefaultFieldStyle, saved, FieldStyleOverride(f))
	return ForViewport(merged, vp)
}
