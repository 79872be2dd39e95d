package forms_test

import (
	"testing"

	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

func field(id string, typ store.FieldType, order int) store.Field {
	return store.Field{ID: id, Type: typ, SortOrder: order}
}

func TestResolveTree_TopLevelOrder(t *testing.T) {
	fields := []store.Field{
		field("c", store.FieldText, 3),
		field("a", store.FieldText, 1),
		field("b", store.FieldEmail, 2),
	}

	nodes := forms.ResolveTree(fields)

	if len(nodes) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(nodes))
	}
	for i, want := range []string{"a", "b", "c"} {
		if nodes[i].Field.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, nodes[i].Field.ID)
		}
	}
}

func TestResolveTree_TiesBreakByID(t *testing.T) {
	fields := []store.Field{
		field("b", store.FieldText, 1),
		field("a", store.FieldText, 1),
	}

	nodes := forms.ResolveTree(fields)

	if nodes[0].Field.ID != "a" || nodes[1].Field.ID != "b" {
		t.Errorf("equal sort orders should break by id: got %s, %s",
			nodes[0].Field.ID, nodes[1].Field.ID)
	}
}

func TestResolveTree_ColumnsGroupChildren(t *testing.T) {
	container := store.Field{
		ID: "cols", Type: store.FieldColumns, SortOrder: 1,
		DefaultValue: `{"colunas":2,"larguras":"60%,40%","gap":"16"}`,
	}
	left := store.Field{ID: "left", Type: store.FieldText, ParentID: "cols", ColumnIndex: 0}
	right := store.Field{ID: "right", Type: store.FieldText, ParentID: "cols", ColumnIndex: 1}

	nodes := forms.ResolveTree([]store.Field{right, container, left})

	if len(nodes) != 1 {
		t.Fatalf("expected 1 top-level node, got %d", len(nodes))
	}
	node := nodes[0]
	if len(node.Columns) != 2 {
		t.Fatalf("expected 2 column slots, got %d", len(node.Columns))
	}
	if len(node.Columns[0]) != 1 || node.Columns[0][0].Field.ID != "left" {
		t.Errorf("column 0 should hold 'left'")
	}
	if len(node.Columns[1]) != 1 || node.Columns[1][0].Field.ID != "right" {
		t.Errorf("column 1 should hold 'right'")
	}
	if node.Layout.Widths[0] != "60%" || node.Layout.Widths[1] != "40%" {
		t.Errorf("unexpected widths: %v", node.Layout.Widths)
	}
}

func TestResolveTree_OrphanMissingParent(t *testing.T) {
	orphan := store.Field{ID: "lost", Type: store.FieldText, ParentID: "gone", SortOrder: 5}

	nodes := forms.ResolveTree([]store.Field{orphan})

	if len(nodes) != 1 || nodes[0].Field.ID != "lost" {
		t.Fatalf("child of a missing parent should surface at top level, got %+v", nodes)
	}
}

func TestResolveTree_OrphanNonContainerParent(t *testing.T) {
	parent := field("plain", store.FieldText, 1)
	child := store.Field{ID: "kid", Type: store.FieldText, ParentID: "plain", SortOrder: 2}

	nodes := forms.ResolveTree([]store.Field{parent, child})

	if len(nodes) != 2 {
		t.Fatalf("child of a non-container parent should surface at top level, got %d nodes", len(nodes))
	}
}

func TestResolveTree_OrphanColumnOutOfRange(t *testing.T) {
	container := store.Field{
		ID: "cols", Type: store.FieldColumns,
		DefaultValue: `{"colunas":2,"larguras":"50%,50%","gap":"16"}`,
	}
	child := store.Field{ID: "kid", Type: store.FieldText, ParentID: "cols", ColumnIndex: 7}

	nodes := forms.ResolveTree([]store.Field{container, child})

	if len(nodes) != 2 {
		t.Fatalf("out-of-range column child should surface at top level, got %d nodes", len(nodes))
	}
}

func TestResolveTree_NoFieldLost(t *testing.T) {
	container := store.Field{
		ID: "cols", Type: store.FieldColumns,
		DefaultValue: `{"colunas":2,"larguras":"50%,50%","gap":"8"}`,
	}
	fields := []store.Field{
		container,
		{ID: "in0", Type: store.FieldText, ParentID: "cols", ColumnIndex: 0},
		{ID: "in1", Type: store.FieldEmail, ParentID: "cols", ColumnIndex: 1},
		{ID: "loose", Type: store.FieldText},
		{ID: "dangling", Type: store.FieldText, ParentID: "nope"},
	}

	ids := forms.FieldIDs(forms.ResolveTree(fields))

	if len(ids) != len(fields) {
		t.Fatalf("expected %d ids in tree, got %d", len(fields), len(ids))
	}
	for _, f := range fields {
		if !ids[f.ID] {
			t.Errorf("field %s missing from resolved tree", f.ID)
		}
	}
}

func TestResolveTree_ParentCycleSurvives(t *testing.T) {
	layout := `{"colunas":2,"larguras":"50%,50%","gap":"8"}`
	fields := []store.Field{
		{ID: "a", Type: store.FieldColumns, ParentID: "b", DefaultValue: layout},
		{ID: "b", Type: store.FieldColumns, ParentID: "a", DefaultValue: layout},
		{ID: "kid", Type: store.FieldText, ParentID: "a", ColumnIndex: 0},
		{ID: "loose", Type: store.FieldText},
	}

	nodes := forms.ResolveTree(fields)

	ids := forms.FieldIDs(nodes)
	if len(ids) != len(fields) {
		t.Fatalf("expected %d ids in tree, got %d", len(fields), len(ids))
	}
	for _, f := range fields {
		if !ids[f.ID] {
			t.Errorf("field %s missing from resolved tree", f.ID)
		}
	}
}

func TestDecodeContainerLayout_Defaults(t *testing.T) {
	cases := []string{"", "not json", `{"colunas":0}`}
	for _, raw := range cases {
		layout := forms.DecodeContainerLayout(raw)
		if layout.Columns != 2 || layout.GapPx != 16 {
			t.Errorf("DecodeContainerLayout(%q) should fall back to defaults, got %+v", raw, layout)
		}
	}
}

func TestDecodeContainerLayout_WidthCountMismatch(t *testing.T) {
	layout := forms.DecodeContainerLayout(`{"colunas":3,"larguras":"60%,40%","gap":"12"}`)

	if layout.Columns != 3 {
		t.Fatalf("expected 3 columns, got %d", layout.Columns)
	}
	for _, w := range layout.Widths {
		if w != layout.Widths[0] {
			t.Errorf("mismatched width list should fall back to equal widths, got %v", layout.Widths)
		}
	}
}

func TestDecodeContainerLayout_ClampsColumns(t *testing.T) {
	layout := forms.DecodeContainerLayout(`{"colunas":9}`)
	if layout.Columns != 4 {
		t.Errorf("expected clamp to 4 columns, got %d", layout.Columns)
	}
}
