package main

import (
	"strings"
	"testing"
)

const preTripForm = `
name: Pre-trip
fields:
  - id: defects
    label: Defects found
    type: checkbox
  - id: notes
    label: Describe the defects
    type: textarea
    conditional_logic:
      enabled: true
      action: show
      groups:
        - conditions:
            - field_id: defects
              operator: equals
              value: true
  - id: odometer
    label: Odometer
    type: number
    required: true
    min: 0
`

func TestFormValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "pre-trip.yaml", preTripForm)
	bad := writeFile(t, dir, "bad.yaml", `
name: Broken
fields:
  - id: notes
    label: Notes
    type: textarea
    conditional_logic:
      enabled: true
      action: show
      groups:
        - conditions:
            - field_id: missing
              operator: equals
              value: true
`)

	out, _, err := execute(t, "form", "validate", good)
	if err != nil {
		t.Fatalf("validate good form: %v", err)
	}
	if !strings.Contains(out, "3 fields valid") {
		t.Errorf("output = %q", out)
	}

	_, stderr, err := execute(t, "form", "validate", bad)
	if err != errInvalidForm {
		t.Fatalf("err = %v, want errInvalidForm", err)
	}
	if !strings.Contains(stderr, "fields[0]") {
		t.Errorf("problems not listed by field path:\n%s", stderr)
	}

	if _, _, err := execute(t, "form", "validate", writeFile(t, dir, "typo.yaml", "name: x\nfeilds: []\n")); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestFormEval(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "pre-trip.yaml", preTripForm)
	withDefects := writeFile(t, dir, "defects.json", `{"defects": true, "odometer": 1200}`)
	noOdometer := writeFile(t, dir, "missing.yaml", "defects: false\n")

	out, _, err := execute(t, "form", "eval", def, withDefects)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("want header and 3 rows, got:\n%s", out)
	}
	if f := strings.Fields(lines[2]); f[0] != "notes" || f[2] != "true" {
		t.Errorf("notes row = %q, want visible", lines[2])
	}

	out, _, err = execute(t, "form", "eval", def, noOdometer)
	if err != nil {
		t.Fatalf("eval without --check should not validate values: %v", err)
	}
	if f := strings.Fields(strings.Split(out, "\n")[2]); f[2] != "false" {
		t.Errorf("notes should be hidden:\n%s", out)
	}

	_, stderr, err := execute(t, "form", "eval", def, noOdometer, "--check")
	if err == nil {
		t.Fatal("--check should report the missing required odometer")
	}
	if !strings.Contains(stderr, "odometer") {
		t.Errorf("stderr missing odometer:\n%s", stderr)
	}
}
