// Package service orchestrates the upload-gate-analyze flow. It owns the
// per-session state machine and is the only writer of usage state.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remboglow/facefit/internal/analysis"
	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/facegate"
	"github.com/remboglow/facefit/internal/normalizer"
	"github.com/remboglow/facefit/internal/payment"
)

const (
	// MaxUploadBytes is the upload size ceiling.
	MaxUploadBytes = 5 * 1024 * 1024

	// DefaultAnalyzeTimeout bounds one model round-trip.
	DefaultAnalyzeTimeout = 30 * time.Second
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Phase is the position of a session in the analysis flow.
type Phase string

const (
	PhaseEmpty         Phase = "empty"
	PhaseImageSelected Phase = "image_selected"
	PhaseAnalyzing     Phase = "analyzing"
	PhaseComplete      Phase = "complete"
	PhaseFailed        Phase = "failed"
)

// UsageLedger is the slice of the ledger the orchestrator needs.
type UsageLedger interface {
	CanConsumeFreeUpload(ctx context.Context, ident domain.Identity) bool
	IsPaid(ctx context.Context, ident domain.Identity) bool
	RecordSuccessfulAnalysis(ctx context.Context, ident domain.Identity) error
}

// ChargeInitiator starts a hosted checkout when quota runs out.
type ChargeInitiator interface {
	InitiateCharge(ctx context.Context, ident domain.Identity, email string) (*payment.CheckoutIntent, error)
}

// AnalysisRepository persists completed analyses. Persistence is best-effort
// from the orchestrator's point of view: a write failure never voids a
// result the user already earned.
type AnalysisRepository interface {
	Save(ctx context.Context, record *domain.AnalysisRecord) error
}

// Outcome is one completed analysis.
type Outcome struct {
	RecordID      uuid.UUID                    `json:"record_id"`
	Bundle        *domain.RecommendationBundle `json:"bundle"`
	Quality       domain.ParseQuality          `json:"parse_quality"`
	MissingFields []string                     `json:"missing_fields,omitempty"`
}

// Decision answers "may this user run another analysis?".
type Decision struct {
	Allowed  bool
	Checkout *payment.CheckoutIntent
}

// flowState is the in-memory state of one session. The generation counter
// invalidates in-flight work: any mutation bumps it, and a finishing
// analysis only lands if the generation it started under is still current.
type flowState struct {
	phase      Phase
	attempt    *domain.UploadAttempt
	outcome    *Outcome
	generation uint64
	analyzing  bool
}

// Orchestrator drives the flow for all sessions.
type Orchestrator struct {
	analyzer   analysis.Analyzer
	normalizer *normalizer.Normalizer
	gate       facegate.Gate
	ledger     UsageLedger
	charges    ChargeInitiator
	repo       AnalysisRepository
	logger     *slog.Logger
	timeout    time.Duration

	mu    sync.Mutex
	flows map[string]*flowState
}

// NewOrchestrator creates the orchestrator.
func NewOrchestrator(
	an analysis.Analyzer,
	norm *normalizer.Normalizer,
	gate facegate.Gate,
	led UsageLedger,
	charges ChargeInitiator,
	repo AnalysisRepository,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		analyzer:   an,
		normalizer: norm,
		gate:       gate,
		ledger:     led,
		charges:    charges,
		repo:       repo,
		logger:     logger,
		timeout:    DefaultAnalyzeTimeout,
		flows:      make(map[string]*flowState),
	}
}

// WithTimeout overrides the per-analysis timeout.
func (o *Orchestrator) WithTimeout(d time.Duration) *Orchestrator {
	o.timeout = d
	return o
}

func (o *Orchestrator) flow(sessionID string) *flowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.flows[sessionID]
	if !ok {
		f = &flowState{phase: PhaseEmpty}
		o.flows[sessionID] = f
	}
	return f
}

// SelectImage validates and stages an upload. Selecting a new image
// supersedes any in-flight analysis and discards the previous result.
func (o *Orchestrator) SelectImage(ctx context.Context, ident domain.Identity, attempt domain.UploadAttempt) error {
	if attempt.Size > MaxUploadBytes || len(attempt.Data) > MaxUploadBytes {
		return domain.ErrFileTooLarge
	}
	if len(attempt.Data) == 0 {
		return domain.ErrBadRequest.WithError(errors.New("empty image payload"))
	}
	if !allowedMimeTypes[attempt.MimeType] {
		return domain.ErrUnsupportedImageType
	}

	f := o.flow(ident.SessionID)

	o.mu.Lock()
	f.generation++
	f.attempt = &attempt
	f.outcome = nil
	f.phase = PhaseImageSelected
	f.analyzing = false
	o.mu.Unlock()

	o.logger.Info("image selected",
		slog.String("session_id", ident.SessionID),
		slog.String("source", attempt.Source),
		slog.Int("size", attempt.Size),
	)

	return nil
}

// RequestMore decides whether another analysis may start. When the free
// quota is spent and the user has not paid, a checkout is initiated instead
// and the caller must send the user to its authorization URL.
func (o *Orchestrator) RequestMore(ctx context.Context, ident domain.Identity, email string) (*Decision, error) {
	if o.ledger.CanConsumeFreeUpload(ctx, ident) || o.ledger.IsPaid(ctx, ident) {
		return &Decision{Allowed: true}, nil
	}

	intent, err := o.charges.InitiateCharge(ctx, ident, email)
	if err != nil {
		return nil, err
	}

	return &Decision{Allowed: false, Checkout: intent}, nil
}

// Analyze runs the staged image through gate, model, and normalizer. One
// analysis at a time per session; the free-upload counter moves only after
// a result exists.
func (o *Orchestrator) Analyze(ctx context.Context, ident domain.Identity) (*Outcome, error) {
	f := o.flow(ident.SessionID)

	o.mu.Lock()
	if f.analyzing {
		o.mu.Unlock()
		return nil, domain.ErrAnalysisInFlight
	}
	if f.attempt == nil {
		o.mu.Unlock()
		return nil, domain.ErrNoImageSelected
	}
	attempt := *f.attempt
	gen := f.generation
	f.analyzing = true
	f.phase = PhaseAnalyzing
	o.mu.Unlock()

	outcome, err := o.runAnalysis(ctx, ident, attempt)

	o.mu.Lock()
	if f.generation != gen {
		// The session moved on while we were working: a new image was
		// selected or the flow was reset. Discard; nothing is recorded.
		o.mu.Unlock()
		return nil, domain.ErrAnalysisSuperseded
	}
	f.analyzing = false

	if err != nil {
		f.phase = PhaseFailed
		o.mu.Unlock()
		return nil, err
	}

	f.phase = PhaseComplete
	f.outcome = outcome
	o.mu.Unlock()

	// The result landed; now it is a success and the quota moves. Persistence
	// is best-effort and never voids the result.
	o.finalize(ctx, ident, attempt, outcome)

	return outcome, nil
}

func (o *Orchestrator) runAnalysis(ctx context.Context, ident domain.Identity, attempt domain.UploadAttempt) (*Outcome, error) {
	if !o.ledger.CanConsumeFreeUpload(ctx, ident) && !o.ledger.IsPaid(ctx, ident) {
		return nil, domain.ErrPaymentRequired
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.gate.Check(ctx, attempt.Data); err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := o.analyzer.AnalyzeImage(ctx, attempt.Data, attempt.MimeType, attempt.BudgetKES)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		o.logger.Error("analysis backend failed",
			"error", err,
			"session_id", ident.SessionID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, domain.ErrTransport.WithError(err)
	}

	result, err := o.normalizer.Normalize(raw, attempt.BudgetKES)
	if err != nil {
		return nil, err
	}

	o.logger.Info("analysis complete",
		slog.String("session_id", ident.SessionID),
		slog.String("parse_quality", string(result.Quality)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return &Outcome{
		RecordID:      uuid.New(),
		Bundle:        result.Bundle,
		Quality:       result.Quality,
		MissingFields: result.MissingFields,
	}, nil
}

func (o *Orchestrator) finalize(ctx context.Context, ident domain.Identity, attempt domain.UploadAttempt, outcome *Outcome) {
	record := &domain.AnalysisRecord{
		ID:           outcome.RecordID,
		UserID:       ident.UserID,
		SessionID:    ident.SessionID,
		ImageSize:    attempt.Size,
		ImageType:    attempt.MimeType,
		BudgetKES:    attempt.BudgetKES,
		ParseQuality: outcome.Quality,
		Bundle:       outcome.Bundle,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.repo.Save(ctx, record); err != nil {
		o.logger.Warn("analysis persisted nowhere", "error", err, "record_id", outcome.RecordID)
	}

	if err := o.ledger.RecordSuccessfulAnalysis(ctx, ident); err != nil {
		o.logger.Error("usage counter not advanced after successful analysis", "error", err, "user_id", ident.UserID)
	}
}

// Outcome returns the current result for the session, if any.
func (o *Orchestrator) Outcome(ident domain.Identity) (*Outcome, bool) {
	f := o.flow(ident.SessionID)
	o.mu.Lock()
	defer o.mu.Unlock()
	if f.outcome == nil {
		return nil, false
	}
	return f.outcome, true
}

// Phase returns the session's current flow phase.
func (o *Orchestrator) Phase(ident domain.Identity) Phase {
	f := o.flow(ident.SessionID)
	o.mu.Lock()
	defer o.mu.Unlock()
	return f.phase
}

// Reset discards the staged image and result and supersedes any in-flight
// analysis.
func (o *Orchestrator) Reset(ctx context.Context, ident domain.Identity) {
	f := o.flow(ident.SessionID)
	o.mu.Lock()
	defer o.mu.Unlock()
	f.generation++
	f.attempt = nil
	f.outcome = nil
	f.analyzing = false
	f.phase = PhaseEmpty
}
