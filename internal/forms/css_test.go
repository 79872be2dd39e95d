package forms_test

import (
	"strings"
	"testing"

	"github.com/formloom/formloom/internal/forms"
)

func TestGenerateCSS_NoOverridesNoBands(t *testing.T) {
	css := forms.GenerateCSS(forms.CSSInput{
		FormID:    "f1",
		Container: map[string]string{"background_color": "#ffffff"},
		Fields:    map[string]string{"font_size": "15px"},
		Button:    map[string]string{"background_color": "#2563eb"},
	})

	if strings.Contains(css, "@media") {
		t.Errorf("styles without breakpoint overrides should emit no media queries:\n%s", css)
	}
}

func TestGenerateCSS_ExplicitOverridesOnly(t *testing.T) {
	css := forms.GenerateCSS(forms.CSSInput{
		FormID: "f1",
		Container: map[string]string{
			"background_color":        "#ffffff",
			"background_color_mobile": "#000000",
		},
	})

	if !strings.Contains(css, "@media (max-width: 767px)") {
		t.Fatalf("expected a mobile band:\n%s", css)
	}
	if strings.Contains(css, "@media (min-width: 768px)") {
		t.Errorf("no tablet override, no tablet band:\n%s", css)
	}
	if !strings.Contains(css, `[data-fl-form="f1"] { background-color: #000000 !important; }`) {
		t.Errorf("mobile override rule missing or wrong:\n%s", css)
	}
	if strings.Contains(css, "#ffffff") {
		t.Errorf("base desktop value must not appear in breakpoint bands:\n%s", css)
	}
}

func TestGenerateCSS_ColumnsMobileStacking(t *testing.T) {
	css := forms.GenerateCSS(forms.CSSInput{
		FormID: "f1",
		Columns: []forms.ColumnBlock{{
			FieldID: "cols",
			Layout: forms.ContainerLayout{
				Columns: 2,
				Widths:  []string{"60%", "40%"},
				GapPx:   16,
			},
		}},
	})

	// No tablet widths: no tablet rules at all.
	if strings.Contains(css, "min-width: 768px") {
		t.Errorf("columns without tablet widths should emit no tablet band:\n%s", css)
	}

	// No mobile widths: the one synthesized default stacks columns at 100%.
	if !strings.Contains(css, "flex-wrap: wrap !important") {
		t.Errorf("mobile stacking should set flex-wrap:\n%s", css)
	}
	if !strings.Contains(css, `[data-fl-form="f1"] [data-fl-col="cols"] > .fl-column { width: 100% !important; }`) {
		t.Errorf("mobile stacking should force 100%% columns:\n%s", css)
	}
}

func TestGenerateCSS_ColumnsExplicitBreakpointWidths(t *testing.T) {
	css := forms.GenerateCSS(forms.CSSInput{
		FormID: "f1",
		Columns: []forms.ColumnBlock{{
			FieldID: "cols",
			Layout: forms.ContainerLayout{
				Columns:      2,
				Widths:       []string{"60%", "40%"},
				WidthsTablet: []string{"50%", "50%"},
				WidthsMobile: []string{"100%", "100%"},
			},
		}},
	})

	if !strings.Contains(css, ".fl-column:nth-child(1) { width: 50% !important; }") {
		t.Errorf("tablet width rules missing:\n%s", css)
	}
	if !strings.Contains(css, ".fl-column:nth-child(2) { width: 100% !important; }") {
		t.Errorf("explicit mobile width rules missing:\n%s", css)
	}
	if strings.Contains(css, "flex-wrap") {
		t.Errorf("explicit mobile widths replace the synthesized stacking:\n%s", css)
	}
}

func TestGenerateCSS_RawCSSAppended(t *testing.T) {
	raw := ".custom { color: red; }"
	css := forms.GenerateCSS(forms.CSSInput{FormID: "f1", RawCSS: raw})

	if !strings.Contains(css, raw) {
		t.Errorf("raw CSS escape hatch should pass through:\n%s", css)
	}
}

func TestGenerateCSS_UnknownKeysSkipped(t *testing.T) {
	css := forms.GenerateCSS(forms.CSSInput{
		FormID:    "f1",
		Container: map[string]string{"bogus_mobile": "nope"},
	})

	if strings.Contains(css, "bogus") || strings.Contains(css, "nope") {
		t.Errorf("keys outside the property set must not be emitted:\n%s", css)
	}
}

func TestInlineStyle(t *testing.T) {
	style := map[string]string{
		"background_color": "#2563eb",
		"padding_top":      "12",
		"shadow":           "sm",
		"font_size_mobile": "13px",
		"unknown":          "x",
	}

	inline := forms.InlineStyle(style)

	if !strings.Contains(inline, "background-color: #2563eb") {
		t.Errorf("missing background declaration: %s", inline)
	}
	if !strings.Contains(inline, "padding-top: 12px") {
		t.Errorf("padding should gain a px suffix: %s", inline)
	}
	if !strings.Contains(inline, "box-shadow: 0 1px 2px") {
		t.Errorf("shadow tier should expand: %s", inline)
	}
	if strings.Contains(inline, "13px") || strings.Contains(inline, "unknown") {
		t.Errorf("mobile overrides and unknown keys must not appear inline: %s", inline)
	}
}
