package cli

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	locked := errors.New("database is locked")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config field", NewConfigError("server.listen_address", "missing required field"), "config error in server.listen_address: missing required field"},
		{"command", NewCommandError("migrate", locked), "command migrate failed: database is locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	locked := errors.New("database is locked")
	err := NewCommandError("migrate", locked)

	if err.Command != "migrate" {
		t.Errorf("Command = %q, want migrate", err.Command)
	}
	if !errors.Is(err, locked) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestConfigErrorWithoutField(t *testing.T) {
	err := NewConfigError("", "file not found")
	if got, want := err.Error(), "config error: file not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("auth.token_secret", "too short"), ExitConfig},
		{"wrapped config", NewCommandError("run", NewConfigError("", "bad")), ExitConfig},
		{"command", NewCommandError("migrate", errors.New("locked")), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
