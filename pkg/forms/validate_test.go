package forms

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"fleetworks/depot/pkg/apperr"

	"github.com/google/go-cmp/cmp"
)

func fieldKeys(t *testing.T, err error) []string {
	t.Helper()
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *apperr.ValidationError", err)
	}
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestValidateDefinition(t *testing.T) {
	if err := ValidateDefinition(inspectionFields(), Limits{MaxFields: 10, MaxConditionsPerField: 5}); err != nil {
		t.Fatalf("ValidateDefinition(valid) = %v", err)
	}

	one := func(f Field) []Field {
		return []Field{{ID: "base", Label: "Base", Type: TypeText}, f}
	}
	tests := []struct {
		name     string
		fields   []Field
		limits   Limits
		wantKeys []string
	}{
		{"missing id", one(Field{Label: "X", Type: TypeText}), Limits{}, []string{"fields[1].id"}},
		{"bad id", one(Field{ID: "has space", Label: "X", Type: TypeText}), Limits{}, []string{"fields[1].id"}},
		{"duplicate id", one(Field{ID: "base", Label: "X", Type: TypeText}), Limits{}, []string{"fields[1].id"}},
		{"missing label", one(Field{ID: "x", Type: TypeText}), Limits{}, []string{"fields[1].label"}},
		{"unknown type", one(Field{ID: "x", Label: "X", Type: "slider"}), Limits{}, []string{"fields[1].type"}},
		{"select without options", one(Field{ID: "x", Label: "X", Type: TypeSelect}), Limits{}, []string{"fields[1].options"}},
		{"duplicate options", one(Field{ID: "x", Label: "X", Type: TypeRadio, Options: []string{"Yes", "yes"}}), Limits{}, []string{"fields[1].options"}},
		{"options on text", one(Field{ID: "x", Label: "X", Type: TypeText, Options: []string{"a"}}), Limits{}, []string{"fields[1].options"}},
		{"min above max", one(Field{ID: "x", Label: "X", Type: TypeNumber, Min: ptr(10), Max: ptr(1)}), Limits{}, []string{"fields[1].min"}},
		{"unknown action", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: &Logic{Enabled: true, Action: "toggle"}}), Limits{}, []string{"fields[1].conditional_logic.action"}},
		{"bad top operator", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: &Logic{Enabled: true, Action: ActionShow, Operator: "xor"}}), Limits{}, []string{"fields[1].conditional_logic.operator"}},
		{"self reference", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("x", OpIsEmpty, nil)))}), Limits{}, []string{"fields[1].conditional_logic.groups[0].conditions[0].field_id"}},
		{"unknown reference", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("ghost", OpIsEmpty, nil)))}), Limits{}, []string{"fields[1].conditional_logic.groups[0].conditions[0].field_id"}},
		{"unknown operator", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("base", "matches", "a")))}), Limits{}, []string{"fields[1].conditional_logic.groups[0].conditions[0].operator"}},
		{"missing value", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("base", OpEquals, "")))}), Limits{}, []string{"fields[1].conditional_logic.groups[0].conditions[0].value"}},
		{"unused value", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("base", OpIsEmpty, "a")))}), Limits{}, []string{"fields[1].conditional_logic.groups[0].conditions[0].value"}},
		{"too many fields", one(Field{ID: "x", Label: "X", Type: TypeText}), Limits{MaxFields: 1}, []string{"fields"}},
		{"too many conditions", one(Field{ID: "x", Label: "X", Type: TypeText, Logic: logic(ActionShow, Or,
			group(Or, cond("base", OpIsEmpty, nil), cond("base", OpEquals, "a")))}), Limits{MaxConditionsPerField: 1}, []string{"fields[1].conditional_logic"}},
		{"cycle", []Field{
			{ID: "a", Label: "A", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("b", OpIsNotEmpty, nil)))},
			{ID: "b", Label: "B", Type: TypeText, Logic: logic(ActionShow, And, group(And, cond("a", OpIsNotEmpty, nil)))},
		}, Limits{}, []string{"fields"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(tt.fields, tt.limits)
			if !errors.Is(err, apperr.ErrInvalid) {
				t.Fatalf("ValidateDefinition() error = %v, want ErrInvalid", err)
			}
			if diff := cmp.Diff(tt.wantKeys, fieldKeys(t, err)); diff != "" {
				t.Errorf("error keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateDefinition_DisabledLogicIsNotChecked(t *testing.T) {
	fields := []Field{{ID: "x", Label: "X", Type: TypeText, Logic: &Logic{Enabled: false, Action: "whatever"}}}
	if err := ValidateDefinition(fields, Limits{}); err != nil {
		t.Errorf("ValidateDefinition() = %v", err)
	}
}

func ptr(f float64) *float64 { return &f }

func submissionFields() []Field {
	return []Field{
		{ID: "driver", Label: "Driver", Type: TypeText, Required: true},
		{ID: "email", Label: "Email", Type: TypeEmail},
		{ID: "phone", Label: "Phone", Type: TypePhone},
		{ID: "date", Label: "Date", Type: TypeDate},
		{ID: "fuel", Label: "Fuel level", Type: TypeNumber, Min: ptr(0), Max: ptr(100)},
		{ID: "damage", Label: "Damage", Type: TypeCheckbox},
		{ID: "areas", Label: "Areas", Type: TypeMultiselect, Options: []string{"Front", "Rear", "Left", "Right"},
			Logic: logic(ActionShow, And, group(And, cond("damage", OpEquals, true)))},
		{ID: "tire", Label: "Tire condition", Type: TypeRadio, Options: []string{"Good", "Worn"}},
		{ID: "signature", Label: "Signature", Type: TypeSignature,
			Logic: logic(ActionRequire, And, group(And, cond("damage", OpEquals, true)))},
	}
}

func TestValidateSubmission(t *testing.T) {
	answers, states, err := ValidateSubmission(submissionFields(), map[string]any{
		"driver":    "  Dana  ",
		"email":     "dana@example.com",
		"phone":     "+1 (555) 010-2000",
		"date":      "2026-04-01",
		"fuel":      "75",
		"damage":    true,
		"areas":     []any{"front", "REAR", "front"},
		"tire":      "worn",
		"signature": "data:image/png;base64,AAAA",
		"unknown":   "dropped",
	})
	if err != nil {
		t.Fatalf("ValidateSubmission() failed: %v", err)
	}
	want := map[string]any{
		"driver":    "Dana",
		"email":     "dana@example.com",
		"phone":     "+1 (555) 010-2000",
		"date":      "2026-04-01",
		"fuel":      75.0,
		"damage":    true,
		"areas":     []any{"Front", "Rear"},
		"tire":      "Worn",
		"signature": "data:image/png;base64,AAAA",
	}
	if diff := cmp.Diff(want, answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
	if !states["signature"].Required || !states["areas"].Visible {
		t.Errorf("states = %+v", states)
	}
}

func TestValidateSubmission_DropsHiddenValues(t *testing.T) {
	answers, states, err := ValidateSubmission(submissionFields(), map[string]any{
		"driver": "Dana",
		"damage": false,
		"areas":  []any{"not an option"},
	})
	if err != nil {
		t.Fatalf("ValidateSubmission() failed: %v", err)
	}
	if _, ok := answers["areas"]; ok {
		t.Error("hidden field value was kept")
	}
	if states["areas"].Visible || states["signature"].Required {
		t.Errorf("states = %+v", states)
	}
}

func TestValidateSubmission_Errors(t *testing.T) {
	_, _, err := ValidateSubmission(submissionFields(), map[string]any{
		"email":  "not-an-email",
		"phone":  "call me",
		"date":   "04/01/2026",
		"fuel":   120,
		"damage": "yes please",
		"tire":   "Flat",
	})
	got := fieldKeys(t, err)
	want := []string{"damage", "date", "driver", "email", "fuel", "phone", "tire"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("error keys mismatch (-want +got):\n%s", diff)
	}

	var verr *apperr.ValidationError
	errors.As(err, &verr)
	if msg := strings.Join(verr.Fields["fuel"], ""); !strings.Contains(msg, "at most 100") {
		t.Errorf("fuel message = %q", msg)
	}

	_, _, err = ValidateSubmission(submissionFields(), map[string]any{"driver": "Dana", "damage": true})
	if diff := cmp.Diff([]string{"signature"}, fieldKeys(t, err)); diff != "" {
		t.Errorf("conditionally required mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefinition(t *testing.T) {
	src := `
name: Pre-trip
fields:
  - id: defects
    label: Defects found
    type: checkbox
  - id: notes
    label: Notes
    type: textarea
    conditional_logic:
      enabled: true
      action: show
      operator: and
      groups:
        - operator: or
          conditions:
            - field_id: defects
              operator: equals
              value: true
  - id: fuel
    label: Fuel
    type: number
    min: 0
    max: 100
`
	d, err := LoadDefinition(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadDefinition() failed: %v", err)
	}
	if err := ValidateDefinition(d.Fields, Limits{}); err != nil {
		t.Fatalf("loaded definition invalid: %v", err)
	}
	if d.Name != "Pre-trip" || len(d.Fields) != 3 || *d.Fields[2].Max != 100 {
		t.Errorf("LoadDefinition() = %+v", d)
	}

	states, _ := Evaluate(d.Fields, map[string]any{"defects": true})
	if !states["notes"].Visible {
		t.Error("notes should be visible when defects is checked")
	}

	if _, err := LoadDefinition(strings.NewReader("name: x\nfeilds: []\n")); err == nil {
		t.Error("LoadDefinition() accepted an unknown key")
	}
	if _, err := LoadDefinition(strings.NewReader("")); err == nil {
		t.Error("LoadDefinition() accepted an empty document")
	}
}
