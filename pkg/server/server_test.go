package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/telemetry/health"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
)

func newTestServer(t *testing.T, ready error) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Server.ShutdownTimeout = 2 * time.Second

	checker := health.New(time.Second)
	checker.RegisterCheck("database", func(context.Context) error { return ready })

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	collector.RecordWorkOrderCreated("manual")

	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	})

	return New(cfg, api, checker, collector, BuildInfo{Version: "1.2.3", Commit: "abc123", BuildTime: "2026-01-01"})
}

func TestHandlerRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	tests := []struct {
		name     string
		path     string
		wantCode int
		contains string
	}{
		{"liveness", "/health", http.StatusOK, `"status"`},
		{"readiness", "/ready", http.StatusOK, `"ready"`},
		{"version", "/version", http.StatusOK, `"1.2.3"`},
		{"metrics", "/metrics", http.StatusOK, "depot_work_orders_created_total"},
		{"api", "/api/v1/assets", http.StatusOK, `"/api/v1/assets"`},
		{"unknown", "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("GET %s body %q does not contain %q", tt.path, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestReadinessFailing(t *testing.T) {
	srv := newTestServer(t, errors.New("connection refused"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready = %d, want 503", rec.Code)
	}

	var status health.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status == health.StatusReady {
		t.Errorf("status = %q, want not ready", status.Status)
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.metricsConfig.Enabled = false

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", rec.Code)
	}
}

func TestServeAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}
	if srv.Addr().String() != ln.Addr().String() {
		t.Errorf("Addr() = %s, want %s", srv.Addr(), ln.Addr())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
