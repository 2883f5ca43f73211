package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/middleware"
)

// TimestampFormat is ISO-8601 UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

func (s *Server) handleCompletion(mode domain.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Relay.Supports(mode) {
			notFound(w, r)
			return
		}
		s.metrics.completionStarted(mode)

		body, err := s.decodeCompletion(w, r)
		if err != nil {
			var be *bodyError
			if errors.As(err, &be) {
				s.metrics.completionFailed(domain.CategoryValidation)
				s.deps.Logger.Debug("rejected request body",
					"request_id", middleware.RequestIDFrom(r.Context()),
					"mode", string(mode),
					"error", be.cause,
				)
				writeError(w, be.status, be.message)
				return
			}
			s.metrics.completionFailed(domain.CategoryInternal)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		res, err := s.deps.Relay.Complete(r.Context(), mode, body.toRequest(mode))
		if err != nil {
			var out *domain.ErrorOutcome
			if !errors.As(err, &out) {
				out = &domain.ErrorOutcome{Category: domain.CategoryInternal, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError, Cause: err}
			}
			s.metrics.completionFailed(out.Category)
			if out.Category == domain.CategoryInternal {
				s.deps.Logger.Error("completion failed",
					"request_id", middleware.RequestIDFrom(r.Context()),
					"mode", string(mode),
					"error", out.Cause,
				)
			}
			writeError(w, out.HTTPStatus, out.Message)
			return
		}

		s.metrics.completionSucceeded()
		writeJSON(w, http.StatusOK, completionResponse(mode, res))
	}
}

// completionResponse renders a result; reply mode names its text "reply".
func completionResponse(mode domain.Mode, res *domain.CompletionResult) map[string]string {
	textKey := "response"
	if mode == domain.ModeReply {
		textKey = "reply"
	}
	return map[string]string{
		"id":        res.ID,
		textKey:     res.Text,
		"model":     res.Model,
		"timestamp": res.CreatedAt.UTC().Format(TimestampFormat),
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	catalog := s.deps.Catalog.Resolve(r.Context(), r.URL.Query().Get("apiKey"))
	s.metrics.ModelListings.Add(1)
	writeJSON(w, http.StatusOK, catalog)
}

type personalitiesResponse struct {
	Personalities []domain.Personality `json:"personalities"`
}

func (s *Server) handlePersonalities(w http.ResponseWriter, _ *http.Request) {
	list := s.deps.Relay.Personalities()
	if list == nil {
		list = []domain.Personality{}
	}
	writeJSON(w, http.StatusOK, personalitiesResponse{Personalities: list})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(TimestampFormat),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
