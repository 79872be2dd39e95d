package store

import "time"

// FormKind is the closed set of form delivery types.
type FormKind string

const (
	KindEmbedded   FormKind = "embedded"
	KindPopup      FormKind = "popup"
	KindNewsletter FormKind = "newsletter"
	KindMultiStep  FormKind = "multi_step"
)

// FormStatus is the form lifecycle: draft -> published -> archived.
type FormStatus string

const (
	StatusDraft     FormStatus = "draft"
	StatusPublished FormStatus = "published"
	StatusArchived  FormStatus = "archived"
)

// FieldType is the closed set of field types. Layout nodes (heading,
// paragraph, divider, spacer, raw markup, image link, column container)
// render but never collect input.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldTextarea  FieldType = "textarea"
	FieldEmail     FieldType = "email"
	FieldNumber    FieldType = "number"
	FieldSelect    FieldType = "select"
	FieldRadio     FieldType = "radio"
	FieldCheckbox  FieldType = "checkbox"
	FieldDate      FieldType = "date"
	FieldTime      FieldType = "time"
	FieldCPF       FieldType = "cpf"
	FieldCNPJ      FieldType = "cnpj"
	FieldCEP       FieldType = "cep"
	FieldPhone     FieldType = "phone"
	FieldCurrency  FieldType = "currency"
	FieldUpload    FieldType = "upload"
	FieldImage     FieldType = "image_upload"
	FieldRating    FieldType = "rating"
	FieldSlider    FieldType = "slider"
	FieldSignature FieldType = "signature"
	FieldColor     FieldType = "color"
	FieldRanking   FieldType = "ranking"
	FieldHidden    FieldType = "hidden"

	FieldHeading   FieldType = "heading"
	FieldParagraph FieldType = "paragraph"
	FieldDivider   FieldType = "divider"
	FieldSpacer    FieldType = "spacer"
	FieldRawHTML   FieldType = "raw_html"
	FieldImageLink FieldType = "image_link"
	FieldColumns   FieldType = "columns"
)

// IsLayout reports whether t is a non-input layout node.
func (t FieldType) IsLayout() bool {
	switch t {
	case FieldHeading, FieldParagraph, FieldDivider, FieldSpacer, FieldRawHTML, FieldImageLink, FieldColumns:
		return true
	}
	return false
}

// FieldWidth is the width fraction a field occupies in its row.
type FieldWidth string

const (
	WidthFull      FieldWidth = "full"
	WidthHalf      FieldWidth = "half"
	WidthThird     FieldWidth = "third"
	WidthTwoThirds FieldWidth = "two_thirds"
)

// Form is one form owned by an organization (tenant). Soft-deleted via
// DeletedAt.
type Form struct {
	ID          string           `json:"id"`
	OrgID       string           `json:"org_id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Kind        FormKind         `json:"kind"`
	Status      FormStatus       `json:"status"`
	Description string           `json:"description,omitempty"`
	PostSubmit  PostSubmitConfig `json:"post_submit"`
	Buttons     ButtonsConfig    `json:"buttons"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

// PostSubmitConfig controls what happens after a successful submission.
type PostSubmitConfig struct {
	Mode        string `json:"mode"` // "message" or "redirect"
	Message     string `json:"message,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	FailureText string `json:"failure_text,omitempty"`
}

// ButtonsConfig holds the submit button and the optional messaging-channel
// button, each with its own automation toggle.
type ButtonsConfig struct {
	Submit    ButtonConfig `json:"submit"`
	Messaging ButtonConfig `json:"messaging"`
}

type ButtonConfig struct {
	Enabled    bool   `json:"enabled"`
	Label      string `json:"label,omitempty"`
	Automation bool   `json:"automation,omitempty"`
}

// Field is one node in a form's layout. ParentID is non-empty only for
// children of a columns container; ColumnIndex selects the slot.
type Field struct {
	ID           string            `json:"id"`
	FormID       string            `json:"form_id"`
	Type         FieldType         `json:"type"`
	Label        string            `json:"label"`
	Name         string            `json:"name"`
	Placeholder  string            `json:"placeholder,omitempty"`
	HelpText     string            `json:"help_text,omitempty"`
	Required     bool              `json:"required"`
	Width        FieldWidth        `json:"width"`
	SortOrder    int               `json:"sort_order"`
	ParentID     string            `json:"parent_id,omitempty"`
	ColumnIndex  int               `json:"column_index"`
	StepIndex    int               `json:"step_index"`
	DefaultValue string            `json:"default_value,omitempty"`
	Options      []string          `json:"options,omitempty"`
	Validations  map[string]string `json:"validations,omitempty"`
}

// FormStyle is the saved style for a form: four flat groups plus a raw CSS
// escape hatch. Absent groups fall back to package forms defaults.
type FormStyle struct {
	FormID    string            `json:"form_id"`
	Container map[string]string `json:"container,omitempty"`
	Header    map[string]string `json:"header,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Button    map[string]string `json:"button,omitempty"`
	RawCSS    string            `json:"raw_css,omitempty"`
}

// LogicMode joins a rule's conditions.
type LogicMode string

const (
	LogicAnd LogicMode = "and"
	LogicOr  LogicMode = "or"
)

// Operator is the closed condition operator set. Wire values keep the
// stored pt-BR vocabulary.
type Operator string

const (
	OpEquals      Operator = "igual"
	OpNotEquals   Operator = "diferente"
	OpContains    Operator = "contem"
	OpNotContains Operator = "nao_contem"
	OpGreater     Operator = "maior"
	OpLess        Operator = "menor"
	OpEmpty       Operator = "vazio"
	OpNotEmpty    Operator = "nao_vazio"
)

// ActionKind is the closed rule action set.
type ActionKind string

const (
	ActionShow     ActionKind = "mostrar"
	ActionHide     ActionKind = "ocultar"
	ActionSkipStep ActionKind = "pular_etapa"
	ActionRedirect ActionKind = "redirecionar"
	ActionSetValue ActionKind = "definir_valor"
)

// Condition compares one field's current value. Value is required for every
// operator except vazio/nao_vazio.
type Condition struct {
	FieldID  string   `json:"field_id"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// Rule is one conditional rule. Exactly one of the Target* parameters is
// populated, selected by Action.
type Rule struct {
	ID            string      `json:"id"`
	FormID        string      `json:"form_id"`
	Name          string      `json:"name"`
	Active        bool        `json:"active"`
	SortOrder     int         `json:"sort_order"`
	Logic         LogicMode   `json:"logic"`
	Conditions    []Condition `json:"conditions"`
	Action        ActionKind  `json:"action"`
	TargetFieldID string      `json:"target_field_id,omitempty"`
	TargetStep    int         `json:"target_step,omitempty"`
	TargetURL     string      `json:"target_url,omitempty"`
	TargetValue   string      `json:"target_value,omitempty"`
}

// TestStatus is the A/B test progression:
// draft -> running -> (paused <-> running) -> concluded.
type TestStatus string

const (
	TestDraft     TestStatus = "draft"
	TestRunning   TestStatus = "running"
	TestPaused    TestStatus = "paused"
	TestConcluded TestStatus = "concluded"
)

// ABTest is one A/B test over a form.
type ABTest struct {
	ID          string     `json:"id"`
	FormID      string     `json:"form_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Objective   string     `json:"objective,omitempty"`
	MinSample   int        `json:"min_sample"`
	Status      TestStatus `json:"status"`
	WinnerID    *string    `json:"winner_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Variant is one alternate presentation under a test. Letter is unique
// within the test; at most one variant carries the control flag.
type Variant struct {
	ID          string  `json:"id"`
	TestID      string  `json:"test_id"`
	Letter      string  `json:"letter"`
	Name        string  `json:"name"`
	Control     bool    `json:"control"`
	TrafficPct  float64 `json:"traffic_pct"`
	Impressions int     `json:"impressions"`
	Conversions int     `json:"conversions"`
	Alterations string  `json:"alterations,omitempty"` // JSON patch, namespaces botao/cabecalho/container
}

// Rate is the derived conversion rate.
func (v *Variant) Rate() float64 {
	if v.Impressions == 0 {
		return 0
	}
	return float64(v.Conversions) / float64(v.Impressions)
}

// Submission is one accepted form submission.
type Submission struct {
	ID        string            `json:"id"`
	FormID    string            `json:"form_id"`
	VariantID string            `json:"variant_id,omitempty"`
	Data      map[string]string `json:"data"`
	VisitorID string            `json:"visitor_id"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// EventType is the funnel event vocabulary.
type EventType string

const (
	EventView    EventType = "view"
	EventStart   EventType = "start"
	EventSubmit  EventType = "submit"
	EventConvert EventType = "convert"
)

// Event is one funnel event, deduplicated per (form, visitor, type,
// variant) by a unique index.
type Event struct {
	ID        int64     `json:"id"`
	FormID    string    `json:"form_id"`
	VariantID string    `json:"variant_id,omitempty"`
	Type      EventType `json:"type"`
	VisitorID string    `json:"visitor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FunnelStats aggregates distinct-visitor funnel counts for a form.
type FunnelStats struct {
	Views       int `json:"views"`
	Starts      int `json:"starts"`
	Submissions int `json:"submissions"`
}
