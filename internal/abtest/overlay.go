package abtest

import "encoding/json"

// Alterations is a variant's presentation patch. The top-level key space
// is closed to the three namespaces below; unknown keys in the stored blob
// are ignored, not rejected. An absent namespace leaves the base form
// untouched; a present namespace replaces its target wholesale.
type Alterations struct {
	Button    *ButtonAlteration    `json:"botao,omitempty"`
	Header    *HeaderAlteration    `json:"cabecalho,omitempty"`
	Container *ContainerAlteration `json:"container,omitempty"`
}

type ButtonAlteration struct {
	Background string `json:"cor_fundo,omitempty"`
	TextColor  string `json:"cor_texto,omitempty"`
	Label      string `json:"texto,omitempty"`
}

type HeaderAlteration struct {
	Title       string `json:"titulo,omitempty"`
	Description string `json:"descricao,omitempty"`
}

type ContainerAlteration struct {
	Background string `json:"cor_fundo,omitempty"`
}

// DecodeAlterations parses a variant's stored patch. A malformed blob
// decodes to the empty patch (no namespaces), never to an error.
func DecodeAlterations(raw string) Alterations {
	var a Alterations
	if raw == "" {
		return a
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Alterations{}
	}
	return a
}

// Empty reports whether the patch alters nothing.
func (a Alterations) Empty() bool {
	return a.Button == nil && a.Header == nil && a.Container == nil
}
