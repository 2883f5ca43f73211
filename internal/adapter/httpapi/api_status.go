package httpapi

import (
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"wingman-relay/internal/domain"
)

// StatusResponse is the JSON body returned by GET /api/status.
type StatusResponse struct {
	Deployment  DeploymentStatus `json:"deployment"`
	Upstream    UpstreamStatus   `json:"upstream"`
	Completions CompletionStatus `json:"completions"`
	Models      ModelStatus      `json:"models"`
}

// DeploymentStatus holds deployment overview info.
type DeploymentStatus struct {
	Name          string      `json:"name"`
	ChatMode      domain.Mode `json:"chat_mode"`
	UptimeSeconds int64       `json:"uptime_seconds"`
}

// UpstreamStatus holds the provider name and breaker state.
type UpstreamStatus struct {
	Name    string `json:"name"`
	Breaker string `json:"breaker"`
}

// CompletionStatus holds completion counters.
type CompletionStatus struct {
	Total     int64            `json:"total"`
	Succeeded int64            `json:"succeeded"`
	Failed    map[string]int64 `json:"failed"`
}

// ModelStatus holds model listing counters.
type ModelStatus struct {
	Listings int64 `json:"listings"`
}

var failureCategories = []domain.Category{
	domain.CategoryValidation,
	domain.CategoryUpstreamAuth,
	domain.CategoryUpstreamRateLimit,
	domain.CategoryUpstreamRequest,
	domain.CategoryUpstreamOther,
	domain.CategoryTransport,
	domain.CategoryInternal,
}

// Metrics tracks counters for the status API and Prometheus metrics.
// The maps are filled at construction and never written afterwards.
type Metrics struct {
	CompletionsTotal     atomic.Int64
	CompletionsSucceeded atomic.Int64
	ModelListings        atomic.Int64
	byMode               map[domain.Mode]*atomic.Int64
	failures             map[domain.Category]*atomic.Int64
}

// NewMetrics creates zeroed counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		byMode:   make(map[domain.Mode]*atomic.Int64),
		failures: make(map[domain.Category]*atomic.Int64, len(failureCategories)),
	}
	for _, mode := range []domain.Mode{domain.ModePlain, domain.ModeCoach, domain.ModeReply} {
		m.byMode[mode] = new(atomic.Int64)
	}
	for _, c := range failureCategories {
		m.failures[c] = new(atomic.Int64)
	}
	return m
}

func (m *Metrics) completionStarted(mode domain.Mode) {
	m.CompletionsTotal.Add(1)
	if c, ok := m.byMode[mode]; ok {
		c.Add(1)
	}
}

func (m *Metrics) completionSucceeded() { m.CompletionsSucceeded.Add(1) }

func (m *Metrics) completionFailed(cat domain.Category) {
	if c, ok := m.failures[cat]; ok {
		c.Add(1)
		return
	}
	m.failures[domain.CategoryInternal].Add(1)
}

// Failures returns the failure count of one category.
func (m *Metrics) Failures(cat domain.Category) int64 {
	if c, ok := m.failures[cat]; ok {
		return c.Load()
	}
	return 0
}

// ModeCount returns how many completions were started in mode.
func (m *Metrics) ModeCount(mode domain.Mode) int64 {
	if c, ok := m.byMode[mode]; ok {
		return c.Load()
	}
	return 0
}

func (m *Metrics) failureSnapshot() map[string]int64 {
	out := make(map[string]int64, len(m.failures))
	for cat, c := range m.failures {
		out[string(cat)] = c.Load()
	}
	return out
}

func sortedModes(m map[domain.Mode]*atomic.Int64) []domain.Mode {
	modes := make([]domain.Mode, 0, len(m))
	for mode := range m {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

func breakerName(b BreakerState) string {
	if b == nil {
		return "disabled"
	}
	return b.State().String()
}

// statusHandler returns an HTTP handler for GET /api/status.
func statusHandler(deps Deps, startTime time.Time, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Deployment: DeploymentStatus{
				Name:          deps.Deployment,
				ChatMode:      deps.ChatMode,
				UptimeSeconds: int64(time.Since(startTime).Seconds()),
			},
			Upstream: UpstreamStatus{
				Name:    deps.Upstream,
				Breaker: breakerName(deps.Breaker),
			},
			Completions: CompletionStatus{
				Total:     metrics.CompletionsTotal.Load(),
				Succeeded: metrics.CompletionsSucceeded.Load(),
				Failed:    metrics.failureSnapshot(),
			},
			Models: ModelStatus{
				Listings: metrics.ModelListings.Load(),
			},
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
