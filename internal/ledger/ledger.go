// Package ledger tracks free-tier consumption and payment status per user.
//
// All reads fail closed: if the backing store is unavailable the user has no
// quota and no paid status, never unlimited free access.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/store"
)

// FreeUploadLimit is the number of analyses a user may run before paying.
const FreeUploadLimit = 1

// State keys. The durable keys are owned by the user id; the session keys
// by the browser session id.
const (
	keyUploadsCount = "ff_uploads_count"
	keyPaid         = "ff_paid"
	keyPaidRef      = "paystack_reference"
	keyJustPaid     = "paystack_just_paid"
)

// Ledger owns the usage state. It never mutates state on error paths;
// RecordSuccessfulAnalysis is the caller's responsibility to invoke exactly
// once per successful analysis.
type Ledger struct {
	durable store.KV
	session store.KV
	logger  *slog.Logger
	limit   int
}

// New creates a ledger over the two store scopes.
func New(durable, session store.KV, logger *slog.Logger) *Ledger {
	return &Ledger{
		durable: durable,
		session: session,
		logger:  logger,
		limit:   FreeUploadLimit,
	}
}

// WithLimit overrides the free upload limit.
func (l *Ledger) WithLimit(limit int) *Ledger {
	l.limit = limit
	return l
}

// FreeUploadsConsumed returns the durable upload counter. Store errors read
// as the limit so quota checks fail closed.
func (l *Ledger) FreeUploadsConsumed(ctx context.Context, ident domain.Identity) int {
	raw, err := l.durable.Get(ctx, ident.UserID, keyUploadsCount)
	if errors.Is(err, store.ErrNotFound) {
		return 0
	}
	if err != nil {
		l.logger.Warn("usage counter unreadable, failing closed", "error", err, "user_id", ident.UserID)
		return l.limit
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return l.limit
	}
	return n
}

// CanConsumeFreeUpload reports whether a free analysis remains.
func (l *Ledger) CanConsumeFreeUpload(ctx context.Context, ident domain.Identity) bool {
	return l.FreeUploadsConsumed(ctx, ident) < l.limit
}

// IsPaid reports whether the durable paid flag is set.
func (l *Ledger) IsPaid(ctx context.Context, ident domain.Identity) bool {
	raw, err := l.durable.Get(ctx, ident.UserID, keyPaid)
	if err != nil {
		return false
	}
	return raw == "true"
}

// RecordSuccessfulAnalysis increments the free-upload counter. Not
// idempotent; invoke exactly once per successful analysis.
func (l *Ledger) RecordSuccessfulAnalysis(ctx context.Context, ident domain.Identity) error {
	n := l.FreeUploadsConsumed(ctx, ident)
	if err := l.durable.Set(ctx, ident.UserID, keyUploadsCount, strconv.Itoa(n+1)); err != nil {
		return fmt.Errorf("user %s: record analysis: %w", ident.UserID, err)
	}
	return nil
}

// MarkPaid sets the durable paid flag and remembers the gateway reference.
// Only call after the gateway verified the payment.
func (l *Ledger) MarkPaid(ctx context.Context, ident domain.Identity, reference string) error {
	if err := l.durable.Set(ctx, ident.UserID, keyPaid, "true"); err != nil {
		return fmt.Errorf("user %s: mark paid: %w", ident.UserID, err)
	}
	if err := l.durable.Set(ctx, ident.UserID, keyPaidRef, reference); err != nil {
		return fmt.Errorf("user %s: store payment reference: %w", ident.UserID, err)
	}
	return nil
}

// SetJustPaid arms the one-shot "returned from successful payment" signal.
func (l *Ledger) SetJustPaid(ctx context.Context, ident domain.Identity) error {
	if err := l.session.Set(ctx, ident.SessionID, keyJustPaid, "true"); err != nil {
		return fmt.Errorf("session %s: set just-paid flag: %w", ident.SessionID, err)
	}
	return nil
}

// ConsumeJustPaidFlag reads and clears the one-shot signal. The first call
// after a successful payment returns true, every later call false.
func (l *Ledger) ConsumeJustPaidFlag(ctx context.Context, ident domain.Identity) bool {
	raw, err := l.session.Get(ctx, ident.SessionID, keyJustPaid)
	if err != nil || raw != "true" {
		return false
	}
	if err := l.session.Delete(ctx, ident.SessionID, keyJustPaid); err != nil {
		l.logger.Warn("failed to clear just-paid flag", "error", err, "session_id", ident.SessionID)
	}
	return true
}

// FreeLimit returns the configured free upload limit.
func (l *Ledger) FreeLimit() int {
	return l.limit
}
