package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore speaks both sqlite (default) and postgres through database/sql.
// Queries are written with ? placeholders and rebound for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS forms (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    description TEXT NOT NULL DEFAULT '',
    post_submit TEXT NOT NULL DEFAULT '{}',
    buttons TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    deleted_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_forms_org ON forms(org_id);
CREATE INDEX IF NOT EXISTS idx_forms_slug ON forms(slug);

CREATE TABLE IF NOT EXISTS fields (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL,
    type TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    placeholder TEXT NOT NULL DEFAULT '',
    help_text TEXT NOT NULL DEFAULT '',
    required INTEGER NOT NULL DEFAULT 0,
    width TEXT NOT NULL DEFAULT 'full',
    sort_order INTEGER NOT NULL DEFAULT 0,
    parent_id TEXT NOT NULL DEFAULT '',
    column_index INTEGER NOT NULL DEFAULT 0,
    step_index INTEGER NOT NULL DEFAULT 0,
    default_value TEXT NOT NULL DEFAULT '',
    options TEXT NOT NULL DEFAULT '[]',
    validations TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_fields_form ON fields(form_id);

CREATE TABLE IF NOT EXISTS form_styles (
    form_id TEXT PRIMARY KEY,
    container TEXT NOT NULL DEFAULT '{}',
    header TEXT NOT NULL DEFAULT '{}',
    fields TEXT NOT NULL DEFAULT '{}',
    button TEXT NOT NULL DEFAULT '{}',
    raw_css TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    sort_order INTEGER NOT NULL DEFAULT 0,
    logic TEXT NOT NULL DEFAULT 'and',
    conditions TEXT NOT NULL DEFAULT '[]',
    action TEXT NOT NULL,
    target_field_id TEXT NOT NULL DEFAULT '',
    target_step INTEGER NOT NULL DEFAULT 0,
    target_url TEXT NOT NULL DEFAULT '',
    target_value TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_rules_form ON rules(form_id);

CREATE TABLE IF NOT EXISTS ab_tests (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    objective TEXT NOT NULL DEFAULT '',
    min_sample INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'draft',
    winner_id TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ab_tests_form ON ab_tests(form_id);

CREATE TABLE IF NOT EXISTS ab_variants (
    id TEXT PRIMARY KEY,
    test_id TEXT NOT NULL,
    letter TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    control INTEGER NOT NULL DEFAULT 0,
    traffic_pct REAL NOT NULL DEFAULT 0,
    impressions INTEGER NOT NULL DEFAULT 0,
    conversions INTEGER NOT NULL DEFAULT 0,
    alterations TEXT NOT NULL DEFAULT '{}',
    UNIQUE(test_id, letter)
);

CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL,
    variant_id TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}',
    visitor_id TEXT NOT NULL DEFAULT '',
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_id, created_at);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    form_id TEXT NOT NULL,
    variant_id TEXT NOT NULL DEFAULT '',
    event_type TEXT NOT NULL,
    visitor_id TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_form ON events(form_id, event_type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup ON events(form_id, visitor_id, event_type, variant_id);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Open opens the store. driver is "sqlite" or "postgres"; dsn is a file
// path for sqlite and a connection string for postgres.
func Open(driver, dsn string) (*SQLStore, error) {
	name := driver
	if name == "" {
		name = "sqlite"
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if name == "sqlite" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s := &SQLStore{db: db, driver: name}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// NewWithDB wraps an already-open connection. The caller owns schema
// migration and the connection's lifecycle.
func NewWithDB(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) applySchema() error {
	schema := schemaSQLite
	if s.driver == "postgres" {
		schema = strings.ReplaceAll(schema, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
		schema = strings.ReplaceAll(schema, "REAL", "DOUBLE PRECISION")
	}
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for health checks.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// q rewrites ? placeholders to $1..$n for postgres.
func (s *SQLStore) q(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func marshalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// --- Forms ---

func (s *SQLStore) CreateForm(ctx context.Context, form *Form) error {
	taken, err := s.slugTaken(ctx, form.Slug, "")
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, s.q(
		`INSERT INTO forms (id, org_id, name, slug, kind, status, description, post_submit, buttons, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		form.ID, form.OrgID, form.Name, form.Slug, string(form.Kind), string(form.Status),
		form.Description, marshalJSON(form.PostSubmit), marshalJSON(form.Buttons), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert form: %w", err)
	}
	form.CreatedAt = time.Unix(now, 0)
	form.UpdatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLStore) slugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT id FROM forms WHERE slug = ? AND deleted_at IS NULL`), slug).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return id != excludeID, nil
}

const formColumns = `id, org_id, name, slug, kind, status, description, post_submit, buttons, created_at, updated_at, deleted_at`

func (s *SQLStore) scanForm(row interface{ Scan(...interface{}) error }) (*Form, error) {
	var form Form
	var kind, status, postSubmit, buttons string
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64

	err := row.Scan(&form.ID, &form.OrgID, &form.Name, &form.Slug, &kind, &status,
		&form.Description, &postSubmit, &buttons, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan form: %w", err)
	}

	form.Kind = FormKind(kind)
	form.Status = FormStatus(status)
	// Config blobs recover to zero values when malformed.
	_ = json.Unmarshal([]byte(postSubmit), &form.PostSubmit)
	_ = json.Unmarshal([]byte(buttons), &form.Buttons)
	form.CreatedAt = time.Unix(createdAt, 0)
	form.UpdatedAt = time.Unix(updatedAt, 0)
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0)
		form.DeletedAt = &t
	}
	return &form, nil
}

func (s *SQLStore) GetForm(ctx context.Context, id string) (*Form, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+formColumns+` FROM forms WHERE id = ? AND deleted_at IS NULL`), id)
	return s.scanForm(row)
}

func (s *SQLStore) GetFormBySlug(ctx context.Context, slug string) (*Form, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+formColumns+` FROM forms WHERE slug = ? AND deleted_at IS NULL`), slug)
	return s.scanForm(row)
}

func (s *SQLStore) ListForms(ctx context.Context, orgID string) ([]*Form, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+formColumns+` FROM forms WHERE org_id = ? AND deleted_at IS NULL ORDER BY created_at DESC`), orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	var forms []*Form
	for rows.Next() {
		form, err := s.scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

func (s *SQLStore) UpdateForm(ctx context.Context, form *Form) error {
	taken, err := s.slugTaken(ctx, form.Slug, form.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE forms SET name = ?, slug = ?, kind = ?, description = ?, post_submit = ?, buttons = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`),
		form.Name, form.Slug, string(form.Kind), form.Description,
		marshalJSON(form.PostSubmit), marshalJSON(form.Buttons), now, form.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update form: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) SetFormStatus(ctx context.Context, id string, status FormStatus) error {
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE forms SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`),
		string(status), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set form status: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) DeleteForm(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE forms SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`),
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Fields ---

const fieldColumns = `id, form_id, type, label, name, placeholder, help_text, required, width, sort_order, parent_id, column_index, step_index, default_value, options, validations`

func (s *SQLStore) CreateField(ctx context.Context, field *Field) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO fields (`+fieldColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		field.ID, field.FormID, string(field.Type), field.Label, field.Name,
		field.Placeholder, field.HelpText, boolToInt(field.Required), string(field.Width),
		field.SortOrder, field.ParentID, field.ColumnIndex, field.StepIndex,
		field.DefaultValue, marshalJSON(field.Options), marshalJSON(field.Validations),
	)
	if err != nil {
		return fmt.Errorf("failed to insert field: %w", err)
	}
	return nil
}

func (s *SQLStore) GetField(ctx context.Context, id string) (*Field, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+fieldColumns+` FROM fields WHERE id = ?`), id)

	var f Field
	var typ, width, options, validations string
	var required int
	err := row.Scan(&f.ID, &f.FormID, &typ, &f.Label, &f.Name, &f.Placeholder,
		&f.HelpText, &required, &width, &f.SortOrder, &f.ParentID, &f.ColumnIndex,
		&f.StepIndex, &f.DefaultValue, &options, &validations)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	f.Type = FieldType(typ)
	f.Width = FieldWidth(width)
	f.Required = required != 0
	_ = json.Unmarshal([]byte(options), &f.Options)
	_ = json.Unmarshal([]byte(validations), &f.Validations)
	return &f, nil
}

func (s *SQLStore) UpdateField(ctx context.Context, field *Field) error {
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE fields SET type = ?, label = ?, name = ?, placeholder = ?, help_text = ?, required = ?,
		 width = ?, sort_order = ?, parent_id = ?, column_index = ?, step_index = ?, default_value = ?,
		 options = ?, validations = ? WHERE id = ?`),
		string(field.Type), field.Label, field.Name, field.Placeholder, field.HelpText,
		boolToInt(field.Required), string(field.Width), field.SortOrder, field.ParentID,
		field.ColumnIndex, field.StepIndex, field.DefaultValue,
		marshalJSON(field.Options), marshalJSON(field.Validations), field.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update field: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) DeleteField(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM fields WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) ListFields(ctx context.Context, formID string) ([]Field, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+fieldColumns+` FROM fields WHERE form_id = ? ORDER BY sort_order`), formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		var typ, width, options, validations string
		var required int
		err := rows.Scan(&f.ID, &f.FormID, &typ, &f.Label, &f.Name, &f.Placeholder,
			&f.HelpText, &required, &width, &f.SortOrder, &f.ParentID, &f.ColumnIndex,
			&f.StepIndex, &f.DefaultValue, &options, &validations)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		f.Type = FieldType(typ)
		f.Width = FieldWidth(width)
		f.Required = required != 0
		_ = json.Unmarshal([]byte(options), &f.Options)
		_ = json.Unmarshal([]byte(validations), &f.Validations)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Styles ---

func (s *SQLStore) SaveStyle(ctx context.Context, style *FormStyle) error {
	query := `INSERT INTO form_styles (form_id, container, header, fields, button, raw_css)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(form_id) DO UPDATE SET container = excluded.container, header = excluded.header,
		 fields = excluded.fields, button = excluded.button, raw_css = excluded.raw_css`
	_, err := s.db.ExecContext(ctx, s.q(query),
		style.FormID, marshalJSON(style.Container), marshalJSON(style.Header),
		marshalJSON(style.Fields), marshalJSON(style.Button), style.RawCSS,
	)
	if err != nil {
		return fmt.Errorf("failed to save style: %w", err)
	}
	return nil
}

func (s *SQLStore) GetStyle(ctx context.Context, formID string) (*FormStyle, error) {
	var style FormStyle
	var container, header, fields, button string
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT form_id, container, header, fields, button, raw_css FROM form_styles WHERE form_id = ?`), formID,
	).Scan(&style.FormID, &container, &header, &fields, &button, &style.RawCSS)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get style: %w", err)
	}
	_ = json.Unmarshal([]byte(container), &style.Container)
	_ = json.Unmarshal([]byte(header), &style.Header)
	_ = json.Unmarshal([]byte(fields), &style.Fields)
	_ = json.Unmarshal([]byte(button), &style.Button)
	return &style, nil
}

// --- Rules ---

const ruleColumns = `id, form_id, name, active, sort_order, logic, conditions, action, target_field_id, target_step, target_url, target_value`

func (s *SQLStore) CreateRule(ctx context.Context, rule *Rule) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rule.ID, rule.FormID, rule.Name, boolToInt(rule.Active), rule.SortOrder,
		string(rule.Logic), marshalJSON(rule.Conditions), string(rule.Action),
		rule.TargetFieldID, rule.TargetStep, rule.TargetURL, rule.TargetValue,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

func (s *SQLStore) GetRule(ctx context.Context, id string) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+ruleColumns+` FROM rules WHERE id = ?`), id)

	var r Rule
	var active int
	var logic, conditions, action string
	err := row.Scan(&r.ID, &r.FormID, &r.Name, &active, &r.SortOrder, &logic,
		&conditions, &action, &r.TargetFieldID, &r.TargetStep, &r.TargetURL, &r.TargetValue)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	r.Active = active != 0
	r.Logic = LogicMode(logic)
	r.Action = ActionKind(action)
	_ = json.Unmarshal([]byte(conditions), &r.Conditions)
	return &r, nil
}

func (s *SQLStore) UpdateRule(ctx context.Context, rule *Rule) error {
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE rules SET name = ?, active = ?, sort_order = ?, logic = ?, conditions = ?, action = ?,
		 target_field_id = ?, target_step = ?, target_url = ?, target_value = ? WHERE id = ?`),
		rule.Name, boolToInt(rule.Active), rule.SortOrder, string(rule.Logic),
		marshalJSON(rule.Conditions), string(rule.Action), rule.TargetFieldID,
		rule.TargetStep, rule.TargetURL, rule.TargetValue, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) DeleteRule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM rules WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) ListRules(ctx context.Context, formID string) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+ruleColumns+` FROM rules WHERE form_id = ? ORDER BY sort_order`), formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		var active int
		var logic, conditions, action string
		err := rows.Scan(&r.ID, &r.FormID, &r.Name, &active, &r.SortOrder, &logic,
			&conditions, &action, &r.TargetFieldID, &r.TargetStep, &r.TargetURL, &r.TargetValue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Active = active != 0
		r.Logic = LogicMode(logic)
		r.Action = ActionKind(action)
		_ = json.Unmarshal([]byte(conditions), &r.Conditions)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// --- A/B tests ---

const testColumns = `id, form_id, name, description, objective, min_sample, status, winner_id, created_at, updated_at`

func (s *SQLStore) CreateTest(ctx context.Context, test *ABTest) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO ab_tests (`+testColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		test.ID, test.FormID, test.Name, test.Description, test.Objective,
		test.MinSample, string(test.Status), nil, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}
	test.CreatedAt = time.Unix(now, 0)
	test.UpdatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLStore) scanTest(row interface{ Scan(...interface{}) error }) (*ABTest, error) {
	var test ABTest
	var status string
	var winner sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&test.ID, &test.FormID, &test.Name, &test.Description, &test.Objective,
		&test.MinSample, &status, &winner, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan test: %w", err)
	}
	test.Status = TestStatus(status)
	if winner.Valid {
		w := winner.String
		test.WinnerID = &w
	}
	test.CreatedAt = time.Unix(createdAt, 0)
	test.UpdatedAt = time.Unix(updatedAt, 0)
	return &test, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (*ABTest, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+testColumns+` FROM ab_tests WHERE id = ?`), id)
	return s.scanTest(row)
}

func (s *SQLStore) ListTests(ctx context.Context, formID string) ([]*ABTest, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+testColumns+` FROM ab_tests WHERE form_id = ? ORDER BY created_at DESC`), formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*ABTest
	for rows.Next() {
		test, err := s.scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

func (s *SQLStore) ActiveTest(ctx context.Context, formID string) (*ABTest, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+testColumns+` FROM ab_tests
		 WHERE form_id = ? AND status IN ('running', 'concluded')
		 ORDER BY updated_at DESC LIMIT 1`), formID)
	return s.scanTest(row)
}

func (s *SQLStore) UpdateTestStatus(ctx context.Context, id string, status TestStatus, winnerID *string) error {
	now := time.Now().Unix()
	var result sql.Result
	var err error
	if winnerID != nil {
		result, err = s.db.ExecContext(ctx, s.q(
			`UPDATE ab_tests SET status = ?, winner_id = ?, updated_at = ? WHERE id = ?`),
			string(status), *winnerID, now, id)
	} else {
		result, err = s.db.ExecContext(ctx, s.q(
			`UPDATE ab_tests SET status = ?, updated_at = ? WHERE id = ?`),
			string(status), now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update test status: %w", err)
	}
	return requireAffected(result)
}

// --- Variants ---

// variantTestRunning guards variant mutations at the data layer, not only
// in the editor UI, so concurrent editors cannot mutate a live test.
func (s *SQLStore) variantTestRunning(ctx context.Context, testID string) error {
	test, err := s.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if test.Status == TestRunning {
		return ErrTestRunning
	}
	return nil
}

const variantColumns = `id, test_id, letter, name, control, traffic_pct, impressions, conversions, alterations`

func (s *SQLStore) CreateVariant(ctx context.Context, v *Variant) error {
	if err := s.variantTestRunning(ctx, v.TestID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO ab_variants (`+variantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.TestID, v.Letter, v.Name, boolToInt(v.Control), v.TrafficPct,
		v.Impressions, v.Conversions, v.Alterations,
	)
	if err != nil {
		return fmt.Errorf("failed to insert variant: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateVariant(ctx context.Context, v *Variant) error {
	if err := s.variantTestRunning(ctx, v.TestID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE ab_variants SET letter = ?, name = ?, control = ?, traffic_pct = ?, alterations = ? WHERE id = ?`),
		v.Letter, v.Name, boolToInt(v.Control), v.TrafficPct, v.Alterations, v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) DeleteVariant(ctx context.Context, id string) error {
	var testID string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT test_id FROM ab_variants WHERE id = ?`), id).Scan(&testID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up variant: %w", err)
	}
	if err := s.variantTestRunning(ctx, testID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM ab_variants WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLStore) ListVariants(ctx context.Context, testID string) ([]Variant, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+variantColumns+` FROM ab_variants WHERE test_id = ? ORDER BY letter`), testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		var control int
		err := rows.Scan(&v.ID, &v.TestID, &v.Letter, &v.Name, &control, &v.TrafficPct,
			&v.Impressions, &v.Conversions, &v.Alterations)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		v.Control = control != 0
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (s *SQLStore) AddVariantCounts(ctx context.Context, variantID string, impressions, conversions int) error {
	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE ab_variants SET impressions = impressions + ?, conversions = conversions + ? WHERE id = ?`),
		impressions, conversions, variantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update variant counters: %w", err)
	}
	return requireAffected(result)
}

// --- Submissions and events ---

func (s *SQLStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO submissions (id, form_id, variant_id, data, visitor_id, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		sub.ID, sub.FormID, sub.VariantID, marshalJSON(sub.Data),
		sub.VisitorID, sub.IPAddress, sub.UserAgent, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	sub.CreatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLStore) ListSubmissions(ctx context.Context, formID string, limit, offset int) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, form_id, variant_id, data, visitor_id, ip_address, user_agent, created_at
		 FROM submissions WHERE form_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`),
		formID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		var data string
		var createdAt int64
		err := rows.Scan(&sub.ID, &sub.FormID, &sub.VariantID, &data,
			&sub.VisitorID, &sub.IPAddress, &sub.UserAgent, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		_ = json.Unmarshal([]byte(data), &sub.Data)
		sub.CreatedAt = time.Unix(createdAt, 0)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLStore) RecordEvent(ctx context.Context, formID, variantID string, typ EventType, visitorID string) (bool, error) {
	query := `INSERT OR IGNORE INTO events (form_id, variant_id, event_type, visitor_id, created_at) VALUES (?, ?, ?, ?, ?)`
	if s.driver == "postgres" {
		query = `INSERT INTO events (form_id, variant_id, event_type, visitor_id, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`
	}
	result, err := s.db.ExecContext(ctx, s.q(query),
		formID, variantID, string(typ), visitorID, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLStore) FunnelStats(ctx context.Context, formID string) (*FunnelStats, error) {
	var stats FunnelStats
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT
			COUNT(DISTINCT CASE WHEN event_type = 'view' THEN visitor_id END),
			COUNT(DISTINCT CASE WHEN event_type = 'start' THEN visitor_id END),
			COUNT(DISTINCT CASE WHEN event_type = 'submit' THEN visitor_id END)
		FROM events WHERE form_id = ?`), formID,
	).Scan(&stats.Views, &stats.Starts, &stats.Submissions)
	if err != nil {
		return nil, fmt.Errorf("failed to get funnel stats: %w", err)
	}
	return &stats, nil
}

// --- Settings ---

func (s *SQLStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

func (s *SQLStore) SetSetting(ctx context.Context, key, value string) error {
	query := `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.ExecContext(ctx, s.q(query), key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}
