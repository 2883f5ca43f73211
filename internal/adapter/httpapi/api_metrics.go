package httpapi

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/sony/gobreaker/v2"
)

// metricsHandler returns an HTTP handler for GET /metrics in Prometheus text format.
func metricsHandler(deps Deps, startTime time.Time, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		fmt.Fprintf(w, "# HELP wingman_completions_total Completion requests received, by mode.\n")
		fmt.Fprintf(w, "# TYPE wingman_completions_total counter\n")
		for _, mode := range sortedModes(metrics.byMode) {
			fmt.Fprintf(w, "wingman_completions_total{mode=%q} %d\n", mode, metrics.byMode[mode].Load())
		}

		fmt.Fprintf(w, "# HELP wingman_completions_succeeded_total Completions answered with upstream text.\n")
		fmt.Fprintf(w, "# TYPE wingman_completions_succeeded_total counter\n")
		fmt.Fprintf(w, "wingman_completions_succeeded_total %d\n", metrics.CompletionsSucceeded.Load())

		fmt.Fprintf(w, "# HELP wingman_completion_failures_total Failed completions, by error category.\n")
		fmt.Fprintf(w, "# TYPE wingman_completion_failures_total counter\n")
		for _, cat := range failureCategories {
			fmt.Fprintf(w, "wingman_completion_failures_total{category=%q} %d\n", cat, metrics.Failures(cat))
		}

		fmt.Fprintf(w, "# HELP wingman_model_listings_total Model catalog requests served.\n")
		fmt.Fprintf(w, "# TYPE wingman_model_listings_total counter\n")
		fmt.Fprintf(w, "wingman_model_listings_total %d\n", metrics.ModelListings.Load())

		// 0 closed, 1 half-open, 2 open; absent when the breaker is disabled.
		if deps.Breaker != nil {
			open := 0
			switch deps.Breaker.State() {
			case gobreaker.StateHalfOpen:
				open = 1
			case gobreaker.StateOpen:
				open = 2
			}
			fmt.Fprintf(w, "# HELP wingman_upstream_breaker_state Upstream circuit breaker state.\n")
			fmt.Fprintf(w, "# TYPE wingman_upstream_breaker_state gauge\n")
			fmt.Fprintf(w, "wingman_upstream_breaker_state %d\n", open)
		}

		fmt.Fprintf(w, "# HELP wingman_uptime_seconds Seconds since the relay started.\n")
		fmt.Fprintf(w, "# TYPE wingman_uptime_seconds gauge\n")
		fmt.Fprintf(w, "wingman_uptime_seconds %.0f\n", time.Since(startTime).Seconds())

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		fmt.Fprintf(w, "# HELP go_goroutines Number of goroutines.\n")
		fmt.Fprintf(w, "# TYPE go_goroutines gauge\n")
		fmt.Fprintf(w, "go_goroutines %d\n", runtime.NumGoroutine())

		fmt.Fprintf(w, "# HELP go_memstats_alloc_bytes Bytes of allocated heap objects.\n")
		fmt.Fprintf(w, "# TYPE go_memstats_alloc_bytes gauge\n")
		fmt.Fprintf(w, "go_memstats_alloc_bytes %d\n", mem.Alloc)
	}
}
