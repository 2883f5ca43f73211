package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/tracer"
)

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithClock overrides the relay's time source.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

// WithIDFunc overrides completion id generation.
func WithIDFunc(fn func(time.Time) string) RelayOption {
	return func(r *Relay) { r.newID = fn }
}

// Relay validates a completion request, frames it for its mode and forwards
// it upstream exactly once.
type Relay struct {
	upstream      domain.Upstream
	credentials   *CredentialValidator
	personalities *PersonalityRegistry
	assembler     *PromptAssembler
	normalizer    *Normalizer
	defaultModel  string
	logger        *slog.Logger
	now           func() time.Time
	newID         func(time.Time) string
}

// NewRelay creates a relay.
func NewRelay(
	upstream domain.Upstream,
	credentials *CredentialValidator,
	personalities *PersonalityRegistry,
	assembler *PromptAssembler,
	defaultModel string,
	logger *slog.Logger,
	opts ...RelayOption,
) *Relay {
	r := &Relay{
		upstream:      upstream,
		credentials:   credentials,
		personalities: personalities,
		assembler:     assembler,
		normalizer:    NewNormalizer(assembler),
		defaultModel:  defaultModel,
		logger:        logger,
		now:           time.Now,
		newID:         newCompletionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether the deployment configured mode.
func (r *Relay) Supports(mode domain.Mode) bool {
	_, ok := r.assembler.Profile(mode)
	return ok
}

// Personalities returns the deployment's personality catalog.
func (r *Relay) Personalities() []domain.Personality {
	return r.personalities.List()
}

// Complete runs one completion. Every failure is returned as an
// *domain.ErrorOutcome ready for the client.
func (r *Relay) Complete(ctx context.Context, mode domain.Mode, req domain.CompletionRequest) (*domain.CompletionResult, error) {
	ctx, span := tracer.StartSpan(ctx, "relay.complete",
		trace.WithAttributes(tracer.StringAttr("relay.mode", string(mode))))
	defer span.End()

	log := r.logger.With("mode", string(mode))
	log.Debug("relay state", "state", domain.StateReceived)

	profile, ok := r.assembler.Profile(mode)
	if !ok {
		out := r.normalizer.Outcome(mode, domain.NewDomainError("Relay.Complete", domain.ErrUnknownMode, string(mode)))
		tracer.RecordError(span, out)
		return nil, out
	}

	log.Debug("relay state", "state", domain.StateValidating)
	personality, rejected := r.validate(mode, req)
	if rejected != nil {
		log.Debug("relay state", "state", domain.StateRejected, "code", domain.ErrorCodeOf(rejected.Cause))
		span.SetAttributes(tracer.StringAttr("relay.outcome", string(rejected.Category)))
		return nil, rejected
	}

	log.Debug("relay state", "state", domain.StateRouting)
	model := req.Model
	if model == "" {
		model = r.defaultModel
	}
	span.SetAttributes(tracer.StringAttr("relay.model", model))

	msgs, err := r.assembler.Assemble(mode, req, personality)
	if err != nil {
		out := r.normalizer.Outcome(mode, err)
		log.Error("prompt assembly failed", "error", err)
		tracer.RecordError(span, err)
		return nil, out
	}

	chatReq := domain.ChatRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   profile.MaxTokens,
		Temperature: profile.Temperature,
	}

	log.Debug("relay state", "state", domain.StateCallingUpstream, "model", model, "messages", len(msgs))
	// The upstream call outlives a client disconnect.
	resp, err := r.upstream.Complete(context.WithoutCancel(ctx), req.Credential, chatReq)
	if err != nil {
		out := r.normalizer.Outcome(mode, err)
		log.Debug("relay state", "state", domain.StateFailed, "category", out.Category)
		level := slog.LevelWarn
		if out.Category == domain.CategoryInternal {
			level = slog.LevelError
		}
		log.Log(ctx, level, "upstream completion failed",
			"model", model,
			"category", out.Category,
			"status", out.HTTPStatus,
			"code", domain.ErrorCodeOf(err),
			"error", err,
		)
		tracer.RecordError(span, err)
		return nil, out
	}

	now := r.now()
	result := r.normalizer.Result(mode, r.newID(now), model, resp, now)
	log.Debug("relay state", "state", domain.StateSucceeded, "id", result.ID)
	tracer.SetOK(span)
	return result, nil
}

// validate applies the mode's required-field rules, then the credential
// format, then the personality lookup.
func (r *Relay) validate(mode domain.Mode, req domain.CompletionRequest) (domain.Personality, *domain.ErrorOutcome) {
	if mode.NeedsPersonality() {
		if req.Message == "" || req.PersonalityID == "" || req.Credential == "" {
			return domain.Personality{}, r.normalizer.Validation(MsgMissingFields,
				domain.NewDomainError("Relay.validate", domain.ErrMissingFields, ""))
		}
	} else {
		if req.Message == "" || req.Model == "" {
			return domain.Personality{}, r.normalizer.Validation(MsgPlainPromptModelRequired,
				domain.NewDomainError("Relay.validate", domain.ErrMissingFields, "prompt, model"))
		}
		if req.Credential == "" {
			return domain.Personality{}, r.normalizer.Validation(MsgPlainKeyRequired,
				domain.NewDomainError("Relay.validate", domain.ErrCredentialMissing, ""))
		}
	}

	if err := r.credentials.Validate(req.Credential); err != nil {
		return domain.Personality{}, r.normalizer.Validation(MalformedCredentialMessage(r.credentials.Prefix()), err)
	}

	if !mode.NeedsPersonality() {
		return domain.Personality{}, nil
	}
	p, err := r.personalities.Lookup(req.PersonalityID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPersonality) {
			return domain.Personality{}, r.normalizer.Validation(MsgInvalidPersonality, err)
		}
		return domain.Personality{}, r.normalizer.Outcome(mode, err)
	}
	return p, nil
}

func newCompletionID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
