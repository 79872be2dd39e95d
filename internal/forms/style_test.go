package forms_test

import (
	"reflect"
	"testing"

	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

func TestMergeLayers_LaterLayerWins(t *testing.T) {
	merged := forms.MergeLayers(
		map[string]string{"a": "1", "b": "2"},
		map[string]string{"a": "9"},
	)

	want := map[string]string{"a": "9", "b": "2"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("expected %v, got %v", want, merged)
	}
}

func TestMergeLayers_EmptyValueCarriesNoOpinion(t *testing.T) {
	merged := forms.MergeLayers(
		map[string]string{"a": "1"},
		map[string]string{"a": ""},
	)

	if merged["a"] != "1" {
		t.Errorf("empty value should not clear the earlier layer, got %q", merged["a"])
	}
}

func TestMergeLayers_Idempotent(t *testing.T) {
	layer := map[string]string{"background_color": "#fff", "font_size": "15px"}

	once := forms.MergeLayers(forms.DefaultFieldStyle, layer)
	twice := forms.MergeLayers(once, layer)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merging the same layer twice changed the result: %v vs %v", once, twice)
	}
}

func TestForViewport_PerPropertyFallback(t *testing.T) {
	style := map[string]string{
		"font_size":         "16px",
		"padding_top":       "24",
		"font_size_mobile":  "14px",
		"text_color_tablet": "#222222",
	}

	mobile := forms.ForViewport(style, forms.ViewportMobile)
	if mobile["font_size"] != "14px" {
		t.Errorf("mobile font size override lost: %v", mobile)
	}
	if mobile["padding_top"] != "24" {
		t.Errorf("unoverridden property should inherit base: %v", mobile)
	}
	if _, ok := mobile["font_size_mobile"]; ok {
		t.Errorf("suffixed keys should not leak into resolved style: %v", mobile)
	}

	tablet := forms.ForViewport(style, forms.ViewportTablet)
	if tablet["text_color"] != "#222222" {
		t.Errorf("tablet override lost: %v", tablet)
	}
	if tablet["font_size"] != "16px" {
		t.Errorf("tablet should not see the mobile override: %v", tablet)
	}
}

func TestForViewport_DesktopStripsSuffixes(t *testing.T) {
	style := map[string]string{"a": "1", "a_mobile": "2", "a_tablet": "3"}

	desktop := forms.ForViewport(style, forms.ViewportDesktop)

	if len(desktop) != 1 || desktop["a"] != "1" {
		t.Errorf("desktop resolution should keep base keys only, got %v", desktop)
	}
}

func TestBreakpointOverrides(t *testing.T) {
	style := map[string]string{
		"font_size":        "16px",
		"font_size_mobile": "14px",
	}

	overrides := forms.BreakpointOverrides(style, forms.ViewportMobile)
	if len(overrides) != 1 || overrides["font_size"] != "14px" {
		t.Errorf("expected only the explicit mobile override, got %v", overrides)
	}

	if got := forms.BreakpointOverrides(style, forms.ViewportTablet); len(got) != 0 {
		t.Errorf("tablet has no overrides, got %v", got)
	}
}

func TestFieldStyleOverride_SpacingMapsToPadding(t *testing.T) {
	f := &store.Field{
		Validations: map[string]string{
			"field_style": `{"background_color":"#f5f5f5"}`,
			"spacing_top": "20",
		},
	}

	override := forms.FieldStyleOverride(f)

	if override["background_color"] != "#f5f5f5" {
		t.Errorf("field_style blob not decoded: %v", override)
	}
	if override["padding_top"] != "20" {
		t.Errorf("spacing_top should map to padding_top: %v", override)
	}
}

func TestFieldStyleOverride_MalformedBlobIsNoOpinion(t *testing.T) {
	f := &store.Field{Validations: map[string]string{"field_style": "{broken"}}

	if got := forms.FieldStyleOverride(f); got != nil {
		t.Errorf("malformed blob should decode to nil, got %v", got)
	}
}

func TestEffectiveFieldStyle_FullCascade(t *testing.T) {
	saved := map[string]string{"background_color": "#eeeeee", "font_size": "15px"}
	f := &store.Field{
		Validations: map[string]string{
			"field_style": `{"font_size":"18px","font_size_mobile":"13px"}`,
		},
	}

	desktop := forms.EffectiveFieldStyle(saved, f, forms.ViewportDesktop)
	if desktop["font_size"] != "18px" {
		t.Errorf("per-field override should beat the saved style: %v", desktop)
	}
	if desktop["background_color"] != "#eeeeee" {
		t.Errorf("saved style should beat the default: %v", desktop)
	}

	mobile := forms.EffectiveFieldStyle(saved, f, forms.ViewportMobile)
	if mobile["font_size"] != "13px" {
		t.Errorf("mobile suffix should win on mobile: %v", mobile)
	}
}
