package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrTestRunning       = errors.New("test is running")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store defines persistence for forms, their satellite records, A/B tests
// and the public runtime's funnel data.
type Store interface {
	// Form operations
	CreateForm(ctx context.Context, form *Form) error
	GetForm(ctx context.Context, id string) (*Form, error)
	GetFormBySlug(ctx context.Context, slug string) (*Form, error)
	ListForms(ctx context.Context, orgID string) ([]*Form, error)
	UpdateForm(ctx context.Context, form *Form) error
	SetFormStatus(ctx context.Context, id string, status FormStatus) error
	DeleteForm(ctx context.Context, id string) error

	// Field operations
	CreateField(ctx context.Context, field *Field) error
	GetField(ctx context.Context, id string) (*Field, error)
	UpdateField(ctx context.Context, field *Field) error
	DeleteField(ctx context.Context, id string) error
	ListFields(ctx context.Context, formID string) ([]Field, error)

	// Style operations
	SaveStyle(ctx context.Context, style *FormStyle) error
	GetStyle(ctx context.Context, formID string) (*FormStyle, error)

	// Rule operations
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id string) (*Rule, error)
	UpdateRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context, formID string) ([]Rule, error)

	// A/B test operations
	CreateTest(ctx context.Context, test *ABTest) error
	GetTest(ctx context.Context, id string) (*ABTest, error)
	ListTests(ctx context.Context, formID string) ([]*ABTest, error)
	// ActiveTest returns the running or concluded test the public runtime
	// should overlay, or ErrNotFound.
	ActiveTest(ctx context.Context, formID string) (*ABTest, error)
	UpdateTestStatus(ctx context.Context, id string, status TestStatus, winnerID *string) error

	// Variant operations. Create, update and delete are rejected with
	// ErrTestRunning while the owning test runs.
	CreateVariant(ctx context.Context, v *Variant) error
	UpdateVariant(ctx context.Context, v *Variant) error
	DeleteVariant(ctx context.Context, id string) error
	ListVariants(ctx context.Context, testID string) ([]Variant, error)
	AddVariantCounts(ctx context.Context, variantID string, impressions, conversions int) error

	// Submission and funnel operations
	CreateSubmission(ctx context.Context, sub *Submission) error
	ListSubmissions(ctx context.Context, formID string, limit, offset int) ([]Submission, error)
	// RecordEvent inserts one funnel event and reports whether it was new.
	// Repeats of the same (form, visitor, type, variant) are absorbed.
	RecordEvent(ctx context.Context, formID, variantID string, typ EventType, visitorID string) (bool, error)
	FunnelStats(ctx context.Context, formID string) (*FunnelStats, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}
