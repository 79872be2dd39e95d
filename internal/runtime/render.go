package runtime

import (
	"fmt"
	"html"
	"strings"

	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

// widthPercent maps the width fraction enum to a desktop percentage.
var widthPercent = map[store.FieldWidth]string{
	store.WidthFull:      "100%",
	store.WidthHalf:      "50%",
	store.WidthThird:     "33.333%",
	store.WidthTwoThirds: "66.666%",
}

// RenderHTML emits the embeddable markup for a resolved form: container,
// header, field tree, submit button and the scoped stylesheet. Desktop
// styles are inline; breakpoint overrides live in the stylesheet.
func RenderHTML(rf *ResolvedForm, mode string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `<div class="fl-container" data-fl-form="%s" data-fl-mode="%s" style="%s">`+"\n",
		html.EscapeString(rf.FormID), html.EscapeString(mode), forms.InlineStyle(rf.Container))

	b.WriteString(`<div class="fl-header">` + "\n")
	fmt.Fprintf(&b, `<h2 class="fl-title" style="%s">%s</h2>`+"\n",
		forms.InlineStyle(rf.Header.Style), html.EscapeString(rf.Header.Title))
	if rf.Header.Description != "" {
		fmt.Fprintf(&b, `<p class="fl-description">%s</p>`+"\n", html.EscapeString(rf.Header.Description))
	}
	b.WriteString("</div>\n")

	fmt.Fprintf(&b, `<form class="fl-form" data-fl-slug="%s" data-fl-steps="%d" novalidate>`+"\n",
		html.EscapeString(rf.Slug), rf.Steps)
	for _, node := range rf.Tree {
		renderNode(&b, rf, node)
	}
	fmt.Fprintf(&b, `<button type="submit" class="fl-submit" style="%s">%s</button>`+"\n",
		forms.InlineStyle(rf.Button.Style), html.EscapeString(rf.Button.Label))
	b.WriteString("</form>\n")

	if rf.CSS != "" {
		b.WriteString("<style>\n")
		b.WriteString(rf.CSS)
		b.WriteString("</style>\n")
	}
	b.WriteString("</div>\n")

	return b.String()
}

func renderNode(b *strings.Builder, rf *ResolvedForm, node forms.Node) {
	f := node.Field
	switch f.Type {
	case store.FieldColumns:
		renderColumns(b, rf, node)
	case store.FieldHeading:
		layout := forms.DecodeTextLayout(f.DefaultValue)
		fmt.Fprintf(b, `<h3 class="fl-heading" style="text-align: %s; color: %s; font-size: %s">%s</h3>`+"\n",
			html.EscapeString(layout.Align), html.EscapeString(layout.Color),
			html.EscapeString(layout.Size), html.EscapeString(f.Label))
	case store.FieldParagraph:
		layout := forms.DecodeTextLayout(f.DefaultValue)
		fmt.Fprintf(b, `<p class="fl-paragraph" style="text-align: %s; color: %s; font-size: %s">%s</p>`+"\n",
			html.EscapeString(layout.Align), html.EscapeString(layout.Color),
			html.EscapeString(layout.Size), html.EscapeString(f.Label))
	case store.FieldDivider:
		layout := forms.DecodeDividerLayout(f.DefaultValue)
		fmt.Fprintf(b, `<hr class="fl-divider" style="border: none; border-top: %s %s %s">`+"\n",
			html.EscapeString(layout.Thickness), html.EscapeString(layout.Style), html.EscapeString(layout.Color))
	case store.FieldSpacer:
		layout := forms.DecodeSpacerLayout(f.DefaultValue)
		fmt.Fprintf(b, `<div class="fl-spacer" style="height: %s"></div>`+"\n", html.EscapeString(layout.Height))
	case store.FieldRawHTML:
		// The raw markup node is the one place user-authored HTML passes
		// through unescaped.
		b.WriteString(`<div class="fl-raw">` + f.DefaultValue + "</div>\n")
	case store.FieldImageLink:
		fmt.Fprintf(b, `<img class="fl-image" src="%s" alt="%s">`+"\n",
			html.EscapeString(f.DefaultValue), html.EscapeString(f.Label))
	default:
		renderInput(b, rf, f)
	}
}

func renderColumns(b *strings.Builder, rf *ResolvedForm, node forms.Node) {
	layout := node.Layout
	fmt.Fprintf(b, `<div class="fl-columns" data-fl-col="%s" style="display: flex; gap: %dpx">`+"\n",
		html.EscapeString(node.Field.ID), layout.GapPx)

	for col, children := range node.Columns {
		fmt.Fprintf(b, `<div class="fl-column" style="width: %s">`+"\n",
			columnWidth(layout, col))
		for _, child := range children {
			renderNode(b, rf, child)
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")
}

// columnWidth compensates the declared percentage for the flex gap so the
// columns fit the row exactly: each column gives up its share of the total
// gap space.
func columnWidth(layout forms.ContainerLayout, col int) string {
	width := "100%"
	if col < len(layout.Widths) {
		width = layout.Widths[col]
	}
	if layout.GapPx == 0 || layout.Columns <= 1 {
		return width
	}
	share := float64(layout.GapPx) * float64(layout.Columns-1) / float64(layout.Columns)
	return fmt.Sprintf("calc(%s - %.1fpx)", width, share)
}

func renderInput(b *strings.Builder, rf *ResolvedForm, f store.Field) {
	style := forms.InlineStyle(forms.EffectiveFieldStyle(rf.FieldBase, &f, forms.ViewportDesktop))
	width := widthPercent[f.Width]
	if width == "" {
		width = "100%"
	}

	fmt.Fprintf(b, `<div class="fl-field-wrap" data-fl-field="%s" data-fl-step="%d" style="width: %s">`+"\n",
		html.EscapeString(f.ID), f.StepIndex, width)

	if f.Label != "" {
		required := ""
		if f.Required {
			required = ` <span class="fl-required">*</span>`
		}
		fmt.Fprintf(b, `<label class="fl-label" for="fl-%s">%s%s</label>`+"\n",
			html.EscapeString(f.ID), html.EscapeString(f.Label), required)
	}

	writeControl(b, f, style)

	if f.HelpText != "" {
		fmt.Fprintf(b, `<span class="fl-help">%s</span>`+"\n", html.EscapeString(f.HelpText))
	}
	fmt.Fprintf(b, `<span class="fl-error" data-fl-error="%s"></span>`+"\n", html.EscapeString(f.ID))
	b.WriteString("</div>\n")
}

func writeControl(b *strings.Builder, f store.Field, style string) {
	id := html.EscapeString(f.ID)
	name := html.EscapeString(f.Name)
	common := fmt.Sprintf(`id="fl-%s" name="%s" class="fl-field" data-fl-id="%s" style="%s"%s`,
		id, name, id, style, requiredAttr(f))

	switch f.Type {
	case store.FieldTextarea:
		fmt.Fprintf(b, `<textarea %s placeholder="%s">%s</textarea>`+"\n",
			common, html.EscapeString(f.Placeholder), html.EscapeString(f.DefaultValue))
	case store.FieldSelect:
		fmt.Fprintf(b, `<select %s>`+"\n", common)
		fmt.Fprintf(b, `<option value="">%s</option>`+"\n", html.EscapeString(f.Placeholder))
		for _, opt := range f.Options {
			selected := ""
			if opt == f.DefaultValue {
				selected = " selected"
			}
			fmt.Fprintf(b, `<option value="%s"%s>%s</option>`+"\n",
				html.EscapeString(opt), selected, html.EscapeString(opt))
		}
		b.WriteString("</select>\n")
	case store.FieldRadio, store.FieldCheckbox:
		kind := "radio"
		if f.Type == store.FieldCheckbox {
			kind = "checkbox"
		}
		for i, opt := range f.Options {
			fmt.Fprintf(b, `<label class="fl-choice"><input type="%s" name="%s" value="%s" data-fl-id="%s" id="fl-%s-%d"> %s</label>`+"\n",
				kind, name, html.EscapeString(opt), id, id, i, html.EscapeString(opt))
		}
	case store.FieldRanking:
		fmt.Fprintf(b, `<ol class="fl-ranking" data-fl-id="%s">`+"\n", id)
		for _, opt := range f.Options {
			fmt.Fprintf(b, `<li draggable="true">%s</li>`+"\n", html.EscapeString(opt))
		}
		b.WriteString("</ol>\n")
		fmt.Fprintf(b, `<input type="hidden" name="%s" data-fl-id="%s">`+"\n", name, id)
	case store.FieldRating:
		fmt.Fprintf(b, `<div class="fl-rating" data-fl-id="%s">`+"\n", id)
		for i := 1; i <= 5; i++ {
			fmt.Fprintf(b, `<label class="fl-star"><input type="radio" name="%s" value="%d" data-fl-id="%s">★</label>`+"\n", name, i, id)
		}
		b.WriteString("</div>\n")
	case store.FieldSlider:
		fmt.Fprintf(b, `<input type="range" %s min="0" max="100" value="%s">`+"\n",
			common, html.EscapeString(defaultOr(f.DefaultValue, "50")))
	case store.FieldColor:
		fmt.Fprintf(b, `<input type="color" %s value="%s">`+"\n",
			common, html.EscapeString(defaultOr(f.DefaultValue, "#000000")))
	case store.FieldUpload, store.FieldImage:
		fmt.Fprintf(b, `<input type="file" %s>`+"\n", common)
	case store.FieldSignature:
		fmt.Fprintf(b, `<canvas class="fl-signature" data-fl-id="%s" width="400" height="120" style="%s"></canvas>`+"\n", id, style)
		fmt.Fprintf(b, `<input type="hidden" name="%s" data-fl-id="%s">`+"\n", name, id)
	case store.FieldHidden:
		fmt.Fprintf(b, `<input type="hidden" name="%s" data-fl-id="%s" value="%s">`+"\n",
			name, id, html.EscapeString(f.DefaultValue))
	default:
		fmt.Fprintf(b, `<input type="%s" %s placeholder="%s" value="%s"%s>`+"\n",
			inputType(f.Type), common, html.EscapeString(f.Placeholder),
			html.EscapeString(f.DefaultValue), maskAttr(f.Type))
	}
}

func requiredAttr(f store.Field) string {
	if f.Required {
		return " required"
	}
	return ""
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func inputType(t store.FieldType) string {
	switch t {
	case store.FieldEmail:
		return "email"
	case store.FieldNumber:
		return "number"
	case store.FieldDate:
		return "date"
	case store.FieldTime:
		return "time"
	case store.FieldPhone:
		return "tel"
	}
	return "text"
}

// maskAttr tags masked types so the embed script formats per keystroke.
func maskAttr(t store.FieldType) string {
	switch t {
	case store.FieldCPF, store.FieldCNPJ, store.FieldCEP, store.FieldPhone, store.FieldCurrency:
		return fmt.Sprintf(` data-fl-mask="%s"`, t)
	}
	return ""
}
