package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"database": DatabaseCheck(fakePinger{}),
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"database":  DatabaseCheck(fakePinger{err: errors.New("connection refused")}),
				"documents": DirectoryCheck(os.TempDir()),
			},
			wantStatus: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q (%+v)", status.Status, tt.wantStatus, status.Checks)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check result = %+v, want timeout", result)
	}
}

func TestDirectoryCheck(t *testing.T) {
	dir := t.TempDir()
	if err := DirectoryCheck(dir)(context.Background()); err != nil {
		t.Errorf("existing dir: %v", err)
	}

	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := DirectoryCheck(file)(context.Background()); err == nil {
		t.Error("expected error for regular file")
	}
	if err := DirectoryCheck(filepath.Join(dir, "missing"))(context.Background()); err == nil {
		t.Error("expected error for missing dir")
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("database", DatabaseCheck(fakePinger{err: errors.New("down")}))

	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("readiness degraded", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
		var body HealthStatus
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Checks["database"].Message == "" {
			t.Error("expected failure message for database check")
		}
	})

	t.Run("version", func(t *testing.T) {
		rec := httptest.NewRecorder()
		VersionHandler("1.2.3", "abc", "today")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
		var info VersionInfo
		if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
			t.Fatal(err)
		}
		if info.Version != "1.2.3" || info.GoVersion == "" {
			t.Errorf("version info = %+v", info)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}
