package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fleetworks/depot/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the format of date field values.
const DateLayout = "2006-01-02"

var (
	fieldIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9 ().-]{5,32}$`)
	validate       = validator.New()
)

// Limits bounds the size of a form definition. Zero means unlimited.
type Limits struct {
	MaxFields             int
	MaxConditionsPerField int
}

// ValidateDefinition checks a form definition: unique well-formed field
// ids, known types and operators, options for choice fields, conditions
// that reference other existing fields and no dependency cycles. The
// returned error is a *apperr.ValidationError keyed by field path.
func ValidateDefinition(fields []Field, limits Limits) error {
	verr := apperr.NewValidationError()
	if limits.MaxFields > 0 && len(fields) > limits.MaxFields {
		verr.Add("fields", fmt.Sprintf("must have at most %d fields", limits.MaxFields))
	}

	ids := make(map[string]bool, len(fields))
	for i, f := range fields {
		path := fmt.Sprintf("fields[%d]", i)
		switch {
		case f.ID == "":
			verr.Add(path+".id", "is required")
		case !fieldIDPattern.MatchString(f.ID):
			verr.Add(path+".id", "must start with a letter or digit and contain only letters, digits, '_', '-' or '.'")
		case ids[f.ID]:
			verr.Add(path+".id", fmt.Sprintf("duplicate field id %q", f.ID))
		}
		ids[f.ID] = true

		if strings.TrimSpace(f.Label) == "" {
			verr.Add(path+".label", "is required")
		}
		if !f.Type.Valid() {
			verr.Add(path+".type", fmt.Sprintf("unknown field type %q", f.Type))
		}
		validateOptions(verr, path, f)
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			verr.Add(path+".min", "must not exceed max")
		}
	}

	for i, f := range fields {
		if f.Logic != nil {
			validateLogic(verr, fmt.Sprintf("fields[%d].conditional_logic", i), f, ids, limits)
		}
	}

	if verr.Empty() {
		if _, err := resolutionOrder(fields); err != nil {
			var cycle *CycleError
			if errors.As(err, &cycle) {
				verr.Add("fields", err.Error())
			} else {
				return err
			}
		}
	}
	return verr.OrNil()
}

func validateOptions(verr *apperr.ValidationError, path string, f Field) {
	if !f.Type.HasOptions() {
		if len(f.Options) > 0 {
			verr.Add(path+".options", fmt.Sprintf("are not allowed for %s fields", f.Type))
		}
		return
	}
	if len(f.Options) == 0 {
		verr.Add(path+".options", fmt.Sprintf("are required for %s fields", f.Type))
		return
	}
	seen := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" {
			verr.Add(path+".options", "must not be empty")
			continue
		}
		if seen[key] {
			verr.Add(path+".options", fmt.Sprintf("duplicate option %q", o))
		}
		seen[key] = true
	}
}

func validateLogic(verr *apperr.ValidationError, path string, f Field, ids map[string]bool, limits Limits) {
	l := f.Logic
	if !l.Enabled {
		return
	}
	if !l.Action.Valid() {
		verr.Add(path+".action", "must be one of show, hide, require")
	}
	if !l.Operator.Valid() {
		verr.Add(path+".operator", "must be and or or")
	}

	total := 0
	for gi, g := range l.Groups {
		gpath := fmt.Sprintf("%s.groups[%d]", path, gi)
		if !g.Operator.Valid() {
			verr.Add(gpath+".operator", "must be and or or")
		}
		for ci, c := range g.Conditions {
			total++
			cpath := fmt.Sprintf("%s.conditions[%d]", gpath, ci)
			switch {
			case c.FieldID == "":
				verr.Add(cpath+".field_id", "is required")
			case c.FieldID == f.ID:
				verr.Add(cpath+".field_id", "must reference another field")
			case !ids[c.FieldID]:
				verr.Add(cpath+".field_id", fmt.Sprintf("unknown field %q", c.FieldID))
			}
			if !c.Operator.Valid() {
				verr.Add(cpath+".operator", fmt.Sprintf("unknown operator %q", c.Operator))
				continue
			}
			if c.Operator.NeedsValue() && isEmpty(c.Value) && !isFalse(c.Value) {
				verr.Add(cpath+".value", fmt.Sprintf("is required for %s", c.Operator))
			}
			if !c.Operator.NeedsValue() && c.Value != nil {
				verr.Add(cpath+".value", fmt.Sprintf("is not used by %s", c.Operator))
			}
		}
	}
	if limits.MaxConditionsPerField > 0 && total > limits.MaxConditionsPerField {
		verr.Add(path, fmt.Sprintf("must have at most %d conditions", limits.MaxConditionsPerField))
	}
}

func isFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}

// ValidateSubmission evaluates the form for values and checks every
// visible field: required fields must have a value and values must match
// their field type. It returns the answers to store, normalized to their
// field types, without hidden fields or unknown keys, along with the
// field states.
func ValidateSubmission(fields []Field, values map[string]any) (map[string]any, map[string]FieldState, error) {
	states, err := Evaluate(fields, values)
	if err != nil {
		return nil, nil, err
	}

	verr := apperr.NewValidationError()
	answers := make(map[string]any, len(values))
	for _, f := range fields {
		st := states[f.ID]
		if !st.Visible {
			continue
		}
		v, present := values[f.ID]
		if !present || isEmpty(v) {
			if st.Required {
				verr.Add(f.ID, "is required")
			}
			continue
		}
		clean, msg := normalize(f, v)
		if msg != "" {
			verr.Add(f.ID, msg)
			continue
		}
		answers[f.ID] = clean
	}
	if err := verr.OrNil(); err != nil {
		return nil, states, err
	}
	return answers, states, nil
}

// normalize converts a non-empty value to its field type's stored form,
// or returns a message describing why it does not fit.
func normalize(f Field, v any) (any, string) {
	switch f.Type {
	case TypeNumber:
		n, ok := toNumber(v)
		if !ok {
			return nil, "must be a number"
		}
		if f.Min != nil && n < *f.Min {
			return nil, fmt.Sprintf("must be at least %v", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return nil, fmt.Sprintf("must be at most %v", *f.Max)
		}
		return n, ""

	case TypeCheckbox:
		b, ok := toBool(v)
		if !ok {
			return nil, "must be true or false"
		}
		return b, ""

	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a date in YYYY-MM-DD format"
		}
		s = strings.TrimSpace(s)
		if _, err := time.Parse(DateLayout, s); err != nil {
			return nil, "must be a date in YYYY-MM-DD format"
		}
		return s, ""

	case TypeEmail:
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		if !ok || validate.Var(s, "email") != nil {
			return nil, "must be a valid email address"
		}
		return s, ""

	case TypePhone:
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		if !ok || !phonePattern.MatchString(s) {
			return nil, "must be a valid phone number"
		}
		return s, ""

	case TypeSelect, TypeRadio:
		s, ok := v.(string)
		if !ok {
			return nil, "must be one of the options"
		}
		opt, ok := option(f.Options, s)
		if !ok {
			return nil, fmt.Sprintf("%q is not one of the options", s)
		}
		return opt, ""

	case TypeMultiselect:
		list, ok := toList(v)
		if !ok {
			if s, isString := v.(string); isString {
				list, ok = expectedList(s), true
			}
		}
		if !ok {
			return nil, "must be a list of options"
		}
		out := make([]any, 0, len(list))
		seen := map[string]bool{}
		for _, item := range list {
			s, isString := item.(string)
			opt, found := option(f.Options, s)
			if !isString || !found {
				return nil, fmt.Sprintf("%v is not one of the options", item)
			}
			if !seen[opt] {
				seen[opt] = true
				out = append(out, opt)
			}
		}
		return out, ""

	default:
		s, ok := v.(string)
		if !ok {
			return nil, "must be text"
		}
		if f.Type != TypeTextarea && f.Type != TypeSignature && f.Type != TypePhoto {
			s = strings.TrimSpace(s)
		}
		return s, ""
	}
}

// option returns the canonical spelling of s among options.
func option(options []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), s) {
			return o, true
		}
	}
	return "", false
}
