package forms

import (
	"time"

	"fleetworks/depot/pkg/storage"
)

// FieldType is the input type of a form field.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeCheckbox    FieldType = "checkbox"
	TypeRadio       FieldType = "radio"
	TypeEmail       FieldType = "email"
	TypePhone       FieldType = "phone"
	TypeSignature   FieldType = "signature"
	TypePhoto       FieldType = "photo"
)

var fieldTypes = map[FieldType]bool{
	TypeText: true, TypeTextarea: true, TypeNumber: true, TypeDate: true,
	TypeSelect: true, TypeMultiselect: true, TypeCheckbox: true, TypeRadio: true,
	TypeEmail: true, TypePhone: true, TypeSignature: true, TypePhoto: true,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return fieldTypes[t]
}

// HasOptions reports whether values of t are picked from Field.Options.
func (t FieldType) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiselect || t == TypeRadio
}

// Operator compares a field value with a condition value.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
)

var operators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true, OpContains: true, OpNotContains: true,
	OpStartsWith: true, OpEndsWith: true, OpGreaterThan: true, OpLessThan: true,
	OpGreaterThanOrEqual: true, OpLessThanOrEqual: true, OpIsEmpty: true,
	OpIsNotEmpty: true, OpIn: true, OpNotIn: true,
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	return operators[op]
}

// NeedsValue reports whether op compares against a condition value.
func (op Operator) NeedsValue() bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// Combinator joins conditions or groups.
type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

// Valid reports whether c is and, or, or empty (which means and).
func (c Combinator) Valid() bool {
	return c == "" || c == And || c == Or
}

// Action is what conditional logic does to its field.
type Action string

const (
	ActionShow    Action = "show"
	ActionHide    Action = "hide"
	ActionRequire Action = "require"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionShow || a == ActionHide || a == ActionRequire
}

// Condition tests the value of another field.
type Condition struct {
	FieldID  string   `json:"field_id" yaml:"field_id"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// Group reduces its conditions with Operator.
type Group struct {
	Operator   Combinator  `json:"operator" yaml:"operator"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// Logic is the conditional logic attached to a field. Groups are reduced
// with Operator.
type Logic struct {
	Enabled  bool       `json:"enabled" yaml:"enabled"`
	Action   Action     `json:"action" yaml:"action"`
	Operator Combinator `json:"operator" yaml:"operator"`
	Groups   []Group    `json:"groups" yaml:"groups"`
}

// Field is one input on a form.
type Field struct {
	ID          string    `json:"id" yaml:"id"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText    string    `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	Logic       *Logic    `json:"conditional_logic,omitempty" yaml:"conditional_logic,omitempty"`
}

// FieldState is the evaluated visibility of a field.
type FieldState struct {
	Visible  bool `json:"visible"`
	Required bool `json:"required"`
}

// Status is the lifecycle state of a form.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Form is an editable form definition. Fields holds the draft; published
// definitions live in Version.
type Form struct {
	ID             string                `db:"id" json:"id"`
	Name           string                `db:"name" json:"name"`
	Description    string                `db:"description" json:"description"`
	Status         Status                `db:"status" json:"status"`
	Revision       int                   `db:"revision" json:"revision"`
	CurrentVersion int                   `db:"current_version" json:"current_version"`
	Fields         storage.JSON[[]Field] `db:"fields" json:"fields"`
	CreatedBy      string                `db:"created_by" json:"created_by"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

// Version is an immutable published form definition.
type Version struct {
	ID          string                `db:"id" json:"id"`
	FormID      string                `db:"form_id" json:"form_id"`
	Version     int                   `db:"version" json:"version"`
	Fields      storage.JSON[[]Field] `db:"fields" json:"fields"`
	Checksum    string                `db:"checksum" json:"checksum"`
	PublishedBy string                `db:"published_by" json:"published_by"`
	PublishedAt time.Time             `db:"published_at" json:"published_at"`
}

// Submission is a set of answers pinned to one form version.
type Submission struct {
	ID          string                       `db:"id" json:"id"`
	FormID      string                       `db:"form_id" json:"form_id"`
	FormVersion int                          `db:"form_version" json:"form_version"`
	AssetID     string                       `db:"asset_id" json:"asset_id,omitempty"`
	Answers     storage.JSON[map[string]any] `db:"answers" json:"answers"`
	SubmittedBy string                       `db:"submitted_by" json:"submitted_by"`
	SubmittedAt time.Time                    `db:"submitted_at" json:"submitted_at"`
}

// SubmissionView is a submission with the fields of its version and the
// field states its answers produce.
type SubmissionView struct {
	Submission
	Fields []Field               `json:"fields"`
	States map[string]FieldState `json:"states"`
}

// Definition is a form as written in a YAML or JSON file.
type Definition struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// CreateInput holds a new draft form.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=4000"`
	Fields      []Field `json:"fields"`
}

// UpdateInput edits a draft. ExpectedRevision must match the form's
// current revision when set.
type UpdateInput struct {
	Name             *string  `json:"name" validate:"omitempty,max=200"`
	Description      *string  `json:"description" validate:"omitempty,max=4000"`
	Fields           *[]Field `json:"fields"`
	ExpectedRevision int      `json:"expected_revision" validate:"gte=0"`
}

// SubmitInput holds answers. Version 0 means the latest published version.
type SubmitInput struct {
	Version int            `json:"version" validate:"gte=0"`
	AssetID string         `json:"asset_id"`
	Values  map[string]any `json:"values" validate:"required"`
}

// Filter selects forms for listing.
type Filter struct {
	Status Status
	Search string
	Page   storage.Page
}

// SubmissionFilter selects submissions of one form.
type SubmissionFilter struct {
	FormID  string
	Version int
	AssetID string
	Page    storage.Page
}
