package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/pharmausage/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func TestDBDeps_StopBackgroundRunsInReverse(t *testing.T) {
	deps := NewDBDeps(nil, nil)
	var calls []string
	deps.OnStop(func() { calls = append(calls, "publisher") })
	deps.OnStop(func() { calls = append(calls, "worker") })

	// Hooks receive DBDeps by value; copies share the stop list.
	copied := deps
	copied.OnStop(func() { calls = append(calls, "limiter") })

	if err := Shutdown(context.Background(), &config.CoreConfig{}, AppConfig{}, deps, zap.NewNop()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := strings.Join(calls, ","); got != "limiter,worker,publisher" {
		t.Errorf("stop order = %s", got)
	}

	deps.StopBackground()
	if len(calls) != 3 {
		t.Errorf("stops ran twice: %v", calls)
	}
}

func TestDBDeps_ZeroValueIgnoresStops(t *testing.T) {
	var deps DBDeps
	deps.OnStop(func() { t.Fatal("zero DBDeps must not record stops") })
	deps.StopBackground()
}

func TestStartup_MQTTDisabled(t *testing.T) {
	deps := NewDBDeps(nil, nil)
	if err := Startup(context.Background(), &config.CoreConfig{}, testAppConfig(nil), deps, zap.NewNop()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if n := len(deps.stops.fns); n != 0 {
		t.Errorf("registered %d stops with MQTT disabled", n)
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testAppConfig(nil)
	deps := NewDBDeps(db.Client(), db)
	defer deps.StopBackground()

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	if n := len(deps.stops.fns); n != 2 {
		t.Errorf("registered %d limiter stops, want 2", n)
	}

	tests := []struct {
		method, path string
		want         int
		contains     string
	}{
		{http.MethodGet, "/health", http.StatusOK, `"database":"connected"`},
		{http.MethodGet, "/metrics", http.StatusOK, "pharmausage_http_requests_total"},
		{http.MethodGet, "/session", http.StatusOK, `"state":"unauthenticated"`},
		{http.MethodGet, "/dashboard", http.StatusUnauthorized, ""},
		{http.MethodPost, "/logout", http.StatusUnauthorized, ""},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d; body=%s", rec.Code, tc.want, rec.Body.String())
			}
			if tc.contains != "" && !strings.Contains(rec.Body.String(), tc.contains) {
				t.Errorf("body missing %q: %s", tc.contains, rec.Body.String())
			}
		})
	}
}
