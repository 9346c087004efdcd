package logging

import (
	"log/slog"
	"testing"
)

func TestRedactor_IsSensitive(t *testing.T) {
	r := NewRedactor("vin_secret")

	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"Password_Hash", true},
		{"api-key", true},
		{"AUTHORIZATION", true},
		{"vin_secret", true},
		{"email", false},
		{"asset_id", false},
	}
	for _, tt := range tests {
		if got := r.IsSensitive(tt.key); got != tt.want {
			t.Errorf("IsSensitive(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bearer", "header Bearer eyJhbGciOi.x.y", "header Bearer [REDACTED]"},
		{"password assignment", "dsn password=s3cret host=db", "dsn password=[REDACTED] host=db"},
		{"plain", "asset moved to bay 4", "asset moved to bay 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.in); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactor_ReplaceAttr(t *testing.T) {
	r := NewRedactor()

	got := r.ReplaceAttr(nil, slog.Int("token", 12345))
	if got.Value.String() != RedactedValue {
		t.Errorf("non-string sensitive value should be redacted, got %v", got.Value)
	}

	got = r.ReplaceAttr(nil, slog.Int("count", 3))
	if got.Value.Int64() != 3 {
		t.Errorf("plain attr changed: %v", got.Value)
	}
}

func TestRedactor_RedactMap(t *testing.T) {
	r := NewRedactor()

	in := map[string]any{
		"email":    "a@b.c",
		"password": "pw",
		"nested":   map[string]any{"secret": "x", "name": "n"},
	}
	out := r.RedactMap(in)

	if out["password"] != RedactedValue {
		t.Errorf("password not redacted: %v", out["password"])
	}
	nested := out["nested"].(map[string]any)
	if nested["secret"] != RedactedValue || nested["name"] != "n" {
		t.Errorf("nested map not redacted correctly: %v", nested)
	}
	if in["password"] != "pw" {
		t.Error("RedactMap must not modify its input")
	}
	if r.RedactMap(nil) != nil {
		t.Error("RedactMap(nil) should be nil")
	}
}
