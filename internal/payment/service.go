package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/store"
)

// PremiumPriceKES is the fixed price of the premium upgrade.
const PremiumPriceKES = 500

// Session-scope keys for the redirect round-trip. Control leaves the
// process entirely between initiation and the callback, so the hand-off
// lives in the session store, never in memory.
const (
	keyPendingCharge = "paystack_pending"
	keyPaidMarker    = "paystack_paid"
)

// Gateway is the checkout backend capability the service needs.
type Gateway interface {
	Initialize(ctx context.Context, email string, amountKES int) (*CheckoutIntent, error)
	Verify(ctx context.Context, reference string) error
}

// LedgerMarker is the slice of the usage ledger the payment flow touches.
type LedgerMarker interface {
	MarkPaid(ctx context.Context, ident domain.Identity, reference string) error
	SetJustPaid(ctx context.Context, ident domain.Identity) error
}

// Service drives the checkout state machine:
// Idle -> Initiating -> AwaitingRedirectReturn -> Verifying -> {Verified | Failed}.
type Service struct {
	gateway      Gateway
	ledger       LedgerMarker
	session      store.KV
	validate     *validator.Validate
	logger       *slog.Logger
	canonicalURL string
	amountKES    int
}

// NewService creates the payment service. canonicalURL is where every
// redirect return lands, success or not.
func NewService(gateway Gateway, ledger LedgerMarker, session store.KV, canonicalURL string, logger *slog.Logger) *Service {
	return &Service{
		gateway:      gateway,
		ledger:       ledger,
		session:      session,
		validate:     validator.New(),
		logger:       logger,
		canonicalURL: canonicalURL,
		amountKES:    PremiumPriceKES,
	}
}

// WithAmount overrides the premium price.
func (s *Service) WithAmount(amountKES int) *Service {
	s.amountKES = amountKES
	return s
}

// InitiateCharge creates a hosted checkout session and records the pending
// marker so the return leg can be recognized after the full-page redirect.
// The caller must navigate the browser to the returned authorization URL.
func (s *Service) InitiateCharge(ctx context.Context, ident domain.Identity, email string) (*CheckoutIntent, error) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("invalid payer email %q", email))
	}

	intent, err := s.gateway.Initialize(ctx, email, s.amountKES)
	if err != nil {
		s.logger.Warn("checkout initiation failed", "error", err, "user_id", ident.UserID)
		return nil, domain.ErrGatewayInit.WithError(err)
	}

	if err := s.session.Set(ctx, ident.SessionID, keyPendingCharge, intent.Reference); err != nil {
		// The checkout session exists either way; losing the marker only
		// costs the pending-state hint, not correctness of verification.
		s.logger.Warn("failed to store pending charge marker", "error", err, "session_id", ident.SessionID)
	}

	s.logger.Info("checkout initiated",
		slog.String("user_id", ident.UserID),
		slog.Int("amount_kes", s.amountKES),
	)

	return intent, nil
}

// HandleReturn processes the landing back from the gateway. An empty
// reference means a direct visit: no verification, straight home. A present
// reference is verified before any state changes; the one-shot just-paid
// flag is armed only after MarkPaid succeeded. Every outcome redirects to
// the canonical URL.
func (s *Service) HandleReturn(ctx context.Context, ident domain.Identity, reference string) ReturnResult {
	result := ReturnResult{RedirectURL: s.canonicalURL}

	if reference == "" {
		return result
	}

	_ = s.session.Delete(ctx, ident.SessionID, keyPendingCharge)

	if err := s.gateway.Verify(ctx, reference); err != nil {
		s.logger.Warn("payment verification failed",
			"error", err,
			"reference", reference,
			"user_id", ident.UserID,
		)
		result.Alert = "Payment verification failed."
		return result
	}

	if err := s.ledger.MarkPaid(ctx, ident, reference); err != nil {
		s.logger.Error("verified payment could not be recorded", "error", err, "reference", reference)
		result.Alert = "Payment verified but could not be recorded, contact support."
		return result
	}

	if err := s.session.Set(ctx, ident.SessionID, keyPaidMarker, "true"); err != nil {
		s.logger.Warn("failed to store session paid marker", "error", err, "session_id", ident.SessionID)
	}

	if err := s.ledger.SetJustPaid(ctx, ident); err != nil {
		s.logger.Warn("failed to arm just-paid flag", "error", err, "session_id", ident.SessionID)
	}

	result.Verified = true
	return result
}

// HasPendingCharge reports whether this session initiated a checkout that
// has not returned yet.
func (s *Service) HasPendingCharge(ctx context.Context, ident domain.Identity) bool {
	_, err := s.session.Get(ctx, ident.SessionID, keyPendingCharge)
	return err == nil
}

// AmountKES returns the configured premium price.
func (s *Service) AmountKES() int {
	return s.amountKES
}

// IsGatewayError reports whether err came from the gateway plumbing rather
// than user input.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrInitFailed) || errors.Is(err, ErrVerifyFailed)
}
