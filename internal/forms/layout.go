// Package forms implements the form definition resolution pipeline: layout
// decoding, field tree resolution, style cascade, responsive CSS generation,
// conditional rule evaluation and input masks. Everything here is pure and
// operates on immutable snapshots.
package forms

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/formloom/formloom/internal/store"
)

// ContainerLayout is the decoded layout of a columns container.
type ContainerLayout struct {
	Columns      int
	Widths       []string
	WidthsTablet []string
	WidthsMobile []string
	GapPx        int
}

// TextLayout is the decoded config of heading/paragraph nodes.
type TextLayout struct {
	Align string
	Color string
	Size  string
}

// DividerLayout is the decoded config of divider nodes.
type DividerLayout struct {
	Color     string
	Thickness string
	Style     string
}

// SpacerLayout is the decoded config of spacer nodes.
type SpacerLayout struct {
	Height string
}

// Fixed defaults per layout variant. Unparseable or missing config decodes
// to these, never to an error.
func DefaultContainerLayout() ContainerLayout {
	return ContainerLayout{Columns: 2, Widths: []string{"50%", "50%"}, GapPx: 16}
}

func DefaultTextLayout() TextLayout {
	return TextLayout{Align: "left", Color: "#333333", Size: "16px"}
}

func DefaultDividerLayout() DividerLayout {
	return DividerLayout{Color: "#e0e0e0", Thickness: "1px", Style: "solid"}
}

func DefaultSpacerLayout() SpacerLayout {
	return SpacerLayout{Height: "24px"}
}

type containerWire struct {
	Colunas        int    `json:"colunas"`
	Larguras       string `json:"larguras"`
	LargurasTablet string `json:"larguras_tablet"`
	LargurasMobile string `json:"larguras_mobile"`
	Gap            string `json:"gap"`
}

// DecodeContainerLayout decodes a container's default_value blob. The wire
// format is {colunas, larguras:"P%,P%", larguras_tablet?, larguras_mobile?,
// gap:"16"}.
func DecodeContainerLayout(raw string) ContainerLayout {
	var wire containerWire
	if raw == "" || json.Unmarshal([]byte(raw), &wire) != nil {
		return DefaultContainerLayout()
	}

	layout := ContainerLayout{Columns: wire.Colunas}
	if layout.Columns < 1 {
		return DefaultContainerLayout()
	}
	if layout.Columns > 4 {
		layout.Columns = 4
	}

	layout.Widths = splitWidths(wire.Larguras, layout.Columns)
	if layout.Widths == nil {
		layout.Widths = equalWidths(layout.Columns)
	}
	layout.WidthsTablet = splitWidths(wire.LargurasTablet, layout.Columns)
	layout.WidthsMobile = splitWidths(wire.LargurasMobile, layout.Columns)

	layout.GapPx = parsePx(wire.Gap)
	if layout.GapPx < 0 {
		layout.GapPx = DefaultContainerLayout().GapPx
	}

	return layout
}

// splitWidths parses "60%,40%" into per-column widths. Returns nil when the
// list is absent or does not match the column count.
func splitWidths(s string, columns int) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != columns {
		return nil
	}
	widths := make([]string, len(parts))
	for i, p := range parts {
		w := strings.TrimSpace(p)
		if w == "" {
			return nil
		}
		widths[i] = w
	}
	return widths
}

func equalWidths(columns int) []string {
	width := strconv.FormatFloat(100.0/float64(columns), 'f', -1, 64) + "%"
	widths := make([]string, columns)
	for i := range widths {
		widths[i] = width
	}
	return widths
}

// parsePx reads the leading integer of a pixel value ("16", "16px").
// Returns -1 when no digits are present.
func parsePx(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return -1
	}
	return n
}

type textWire struct {
	Alinhamento string `json:"alinhamento"`
	Cor         string `json:"cor"`
	Tamanho     string `json:"tamanho"`
}

// DecodeTextLayout decodes heading/paragraph config.
func DecodeTextLayout(raw string) TextLayout {
	var wire textWire
	if raw == "" || json.Unmarshal([]byte(raw), &wire) != nil {
		return DefaultTextLayout()
	}
	layout := DefaultTextLayout()
	if wire.Alinhamento != "" {
		layout.Align = wire.Alinhamento
	}
	if wire.Cor != "" {
		layout.Color = wire.Cor
	}
	if wire.Tamanho != "" {
		layout.Size = wire.Tamanho
	}
	return layout
}

type dividerWire struct {
	Cor       string `json:"cor"`
	Espessura string `json:"espessura"`
	Estilo    string `json:"estilo"`
}

// DecodeDividerLayout decodes divider config.
func DecodeDividerLayout(raw string) DividerLayout {
	var wire dividerWire
	if raw == "" || json.Unmarshal([]byte(raw), &wire) != nil {
		return DefaultDividerLayout()
	}
	layout := DefaultDividerLayout()
	if wire.Cor != "" {
		layout.Color = wire.Cor
	}
	if wire.Espessura != "" {
		layout.Thickness = wire.Espessura
	}
	if wire.Estilo != "" {
		layout.Style = wire.Estilo
	}
	return layout
}

type spacerWire struct {
	Altura string `json:"altura"`
}

// DecodeSpacerLayout decodes spacer config.
func DecodeSpacerLayout(raw string) SpacerLayout {
	var wire spacerWire
	if raw == "" || json.Unmarshal([]byte(raw), &wire) != nil {
		return DefaultSpacerLayout()
	}
	layout := DefaultSpacerLayout()
	if wire.Altura != "" {
		layout.Height = wire.Altura
	}
	return layout
}

// ColumnCount returns the decoded column count for a columns container and
// 0 for any other field type.
func ColumnCount(f *store.Field) int {
	if f.Type != store.FieldColumns {
		return 0
	}
	return DecodeContainerLayout(f.DefaultValue).Columns
}
