package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/config"
)

func TestParseFlags(t *testing.T) {
	got := parseFlags([]string{"--config", "x.yaml", "--deployment=server", "--addr", ":9000", "--unknown"})
	assert.Equal(t, cliFlags{ConfigPath: "x.yaml", Deployment: "server", Addr: ":9000"}, got)

	assert.Equal(t, cliFlags{}, parseFlags([]string{"--config"}))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("WINGMAN_CONFIG", "")
	assert.Equal(t, "relay.yaml", configPath(cliFlags{}))

	t.Setenv("WINGMAN_CONFIG", "/etc/wingman.yaml")
	assert.Equal(t, "/etc/wingman.yaml", configPath(cliFlags{}))
	assert.Equal(t, "flag.yaml", configPath(cliFlags{ConfigPath: "flag.yaml"}))
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	cfg, err := loadConfig(cliFlags{ConfigPath: missing, Deployment: "SERVER", Addr: "127.0.0.1:9999"})
	require.NoError(t, err)
	assert.Equal(t, config.DeploymentServer, cfg.Deployment)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)

	_, err = loadConfig(cliFlags{ConfigPath: missing, Addr: "not-an-addr"})
	assert.Error(t, err)

	_, err = loadConfig(cliFlags{ConfigPath: missing, Deployment: "mobile"})
	assert.Error(t, err)
}

func TestBuildAppForEachDeployment(t *testing.T) {
	for _, deployment := range []string{config.DeploymentServer, config.DeploymentEdge} {
		t.Run(deployment, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Deployment = deployment

			a, err := buildApp(cfg, newDiscardLogger())
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "no API key provided")

			rec = httptest.NewRecorder()
			a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
			assert.Contains(t, rec.Body.String(), `"name":"`+deployment+`"`)
			assert.Contains(t, rec.Body.String(), `"breaker":"disabled"`)
		})
	}
}

func TestBuildAppChatModePerDeployment(t *testing.T) {
	cfg := config.Defaults()
	cfg.Deployment = config.DeploymentServer
	a, err := buildApp(cfg, newDiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.ModePlain, a.Catalog.ChatMode)

	// Plain mode wants prompt and model.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hi","apiKey":"sk-x"}`))
	a.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Prompt and model are required")

	cfg.Deployment = config.DeploymentEdge
	a, err = buildApp(cfg, newDiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCoach, a.Catalog.ChatMode)
}

func TestInitUpstreamBreakerToggle(t *testing.T) {
	cfg := config.Defaults().Upstream

	up, breaker := initUpstream(cfg, newDiscardLogger())
	assert.Nil(t, breaker, "breaker is opt-in")
	assert.Equal(t, "openrouter", up.Name())

	cfg.CircuitBreaker.Enabled = true
	up, breaker = initUpstream(cfg, newDiscardLogger())
	assert.NotNil(t, breaker)
	assert.Equal(t, "openrouter", up.Name())
}

func TestBuildProfilesCarriesTuning(t *testing.T) {
	cat, err := config.LoadCatalog(config.DeploymentEdge, "")
	require.NoError(t, err)

	profiles, err := buildProfiles(cat)
	require.NoError(t, err)
	assert.Len(t, profiles, len(cat.Modes))
	reply := profiles[domain.ModeReply]
	assert.Equal(t, 200, reply.MaxTokens)
	assert.InDelta(t, 0.8, reply.Temperature, 1e-9)
	assert.True(t, reply.TrimText)
	assert.Equal(t, "Her", reply.PeerLabel)

	opts := catalogOptions(cat)
	assert.True(t, opts.Curate)
	assert.True(t, opts.AnnotateNames)
	assert.Len(t, opts.Fallback, len(cat.DefaultModels)+len(cat.PaidModels))
}

func TestRunCheck(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	assert.NoError(t, runCheck([]string{"--config", missing, "--deployment", "server"}))
	assert.Error(t, runCheck([]string{"--config", missing, "--deployment", "nope"}))
}

func TestEdgeCuratedListingFallsBack(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-live", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"some/unlisted-model","pricing":{"prompt":"0.001","completion":"0.002"}}]}`))
	}))
	defer upstream.Close()

	cfg := config.Defaults()
	cfg.Deployment = config.DeploymentEdge
	cfg.Upstream.BaseURL = upstream.URL

	a, err := buildApp(cfg, newDiscardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models?apiKey=sk-live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models  []domain.ModelDescriptor `json:"models"`
		Message string                   `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No top models found, using default models", body.Message)
	assert.Len(t, body.Models, len(a.Catalog.DefaultModels)+len(a.Catalog.PaidModels))
}

func TestDefaultConfigForwardsEveryUpstreamFailure(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"provider overloaded"}}`))
	}))
	defer upstream.Close()

	cfg := config.Defaults()
	cfg.Upstream.BaseURL = upstream.URL

	a, err := buildApp(cfg, newDiscardLogger())
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hey","personality":"long-term","apiKey":"sk-b"}`))
		a.Handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, "request %d", i+1)
		assert.JSONEq(t, `{"error":"provider overloaded"}`, rec.Body.String(), "request %d", i+1)
	}
	assert.Equal(t, 7, calls)
}

func newDiscardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
