package runtime

import (
	"github.com/formloom/formloom/internal/abtest"
	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

// ResolvedForm is one renderable, styled form instance. The editor's live
// preview and the public embed both consume exactly this shape.
type ResolvedForm struct {
	FormID     string
	Slug       string
	Kind       store.FormKind
	Header     Header
	Container  map[string]string
	FieldBase  map[string]string
	Button     Button
	Tree       []forms.Node
	Steps      int
	CSS        string
	PostSubmit store.PostSubmitConfig
	VariantID  string
}

type Header struct {
	Title       string
	Description string
	Style       map[string]string
}

type Button struct {
	Label string
	Style map[string]string
}

// Resolve runs the full pipeline over a snapshot for one visitor:
// field tree, style cascade, responsive CSS, then the variant overlay.
// Pure and synchronous; the snapshot is never mutated.
func Resolve(snap *Snapshot, visitorID string) *ResolvedForm {
	tree := forms.ResolveTree(snap.Fields)

	var saved store.FormStyle
	if snap.Style != nil {
		saved = *snap.Style
	}

	container := forms.MergeLayers(forms.DefaultContainerStyle, saved.Container)
	header := forms.MergeLayers(forms.DefaultHeaderStyle, saved.Header)
	fieldBase := forms.MergeLayers(forms.DefaultFieldStyle, saved.Fields)
	button := forms.MergeLayers(forms.DefaultButtonStyle, saved.Button)

	rf := &ResolvedForm{
		FormID: snap.Form.ID,
		Slug:   snap.Form.Slug,
		Kind:   snap.Form.Kind,
		Header: Header{
			Title:       snap.Form.Name,
			Description: snap.Form.Description,
			Style:       header,
		},
		Container:  container,
		FieldBase:  fieldBase,
		Button:     Button{Label: submitLabel(snap.Form), Style: button},
		Tree:       tree,
		Steps:      stepCount(snap),
		PostSubmit: snap.Form.PostSubmit,
	}

	applyVariant(rf, snap, visitorID)

	rf.CSS = forms.GenerateCSS(forms.CSSInput{
		FormID:    snap.Form.ID,
		Container: rf.Container,
		Fields:    fieldBase,
		Button:    rf.Button.Style,
		Columns:   columnBlocks(tree),
		RawCSS:    saved.RawCSS,
	})

	return rf
}

func submitLabel(form store.Form) string {
	if form.Buttons.Submit.Label != "" {
		return form.Buttons.Submit.Label
	}
	return "Enviar"
}

func stepCount(snap *Snapshot) int {
	if snap.Form.Kind != store.KindMultiStep {
		return 1
	}
	max := 0
	for _, f := range snap.Fields {
		if f.StepIndex > max {
			max = f.StepIndex
		}
	}
	return max + 1
}

// applyVariant overlays the bucketed variant's alteration patch. Each
// present namespace replaces its target wholesale; absent namespaces fall
// through to the base form untouched.
func applyVariant(rf *ResolvedForm, snap *Snapshot, visitorID string) {
	if snap.Test == nil {
		return
	}
	if snap.Test.Status != store.TestRunning && snap.Test.Status != store.TestConcluded {
		return
	}

	variant := abtest.AssignVariant(snap.Test, snap.Variants, visitorID)
	if variant == nil {
		return
	}
	rf.VariantID = variant.ID

	patch := abtest.DecodeAlterations(variant.Alterations)

	// A present namespace replaces its target wholesale, not deep-merged:
	// all of the namespace's keys take the patch's values.
	if patch.Button != nil {
		style := copyMap(rf.Button.Style)
		style["background_color"] = patch.Button.Background
		style["text_color"] = patch.Button.TextColor
		rf.Button = Button{Label: patch.Button.Label, Style: style}
	}
	if patch.Header != nil {
		rf.Header.Title = patch.Header.Title
		rf.Header.Description = patch.Header.Description
	}
	if patch.Container != nil {
		style := copyMap(rf.Container)
		style["background_color"] = patch.Container.Background
		rf.Container = style
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func columnBlocks(tree []forms.Node) []forms.ColumnBlock {
	var blocks []forms.ColumnBlock
	var walk func([]forms.Node)
	walk = func(nodes []forms.Node) {
		for _, n := range nodes {
			if n.Field.Type == store.FieldColumns {
				blocks = append(blocks, forms.ColumnBlock{FieldID: n.Field.ID, Layout: n.Layout})
			}
			for _, col := range n.Columns {
				walk(col)
			}
		}
	}
	walk(tree)
	return blocks
}

// Evaluate runs the conditional rules for this snapshot against current
// field values.
func Evaluate(snap *Snapshot, values map[string]string) forms.Decision {
	tree := forms.ResolveTree(snap.Fields)
	return forms.EvaluateRules(snap.Rules, values, forms.FieldIDs(tree))
}
