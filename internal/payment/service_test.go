package payment

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/store"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initialize(ctx context.Context, email string, amountKES int) (*CheckoutIntent, error) {
	args := m.Called(ctx, email, amountKES)
	if intent := args.Get(0); intent != nil {
		return intent.(*CheckoutIntent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, reference string) error {
	args := m.Called(ctx, reference)
	return args.Error(0)
}

type mockLedgerMarker struct {
	mock.Mock
}

func (m *mockLedgerMarker) MarkPaid(ctx context.Context, ident domain.Identity, reference string) error {
	args := m.Called(ctx, ident, reference)
	return args.Error(0)
}

func (m *mockLedgerMarker) SetJustPaid(ctx context.Context, ident domain.Identity) error {
	args := m.Called(ctx, ident)
	return args.Error(0)
}

const canonicalURL = "https://face-fit.onrender.com"

func testIdentity() domain.Identity {
	return domain.Identity{UserID: "user-1", SessionID: "sess-1"}
}

func newTestService(gateway *mockGateway, marker *mockLedgerMarker) (*Service, *store.Memory) {
	session := store.NewMemory()
	return NewService(gateway, marker, session, canonicalURL, slog.Default()), session
}

func TestService_InitiateCharge(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)

	gateway.On("Initialize", mock.Anything, "user@example.com", PremiumPriceKES).
		Return(&CheckoutIntent{
			AuthorizationURL: "https://checkout.paystack.com/abc123",
			Reference:        "ref-123",
			AmountKES:        PremiumPriceKES,
		}, nil)

	intent, err := svc.InitiateCharge(ctx, ident, "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.paystack.com/abc123", intent.AuthorizationURL)
	assert.True(t, svc.HasPendingCharge(ctx, ident))

	gateway.AssertExpectations(t)
}

func TestService_InitiateCharge_InvalidEmail(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)

	for _, email := range []string{"", "not-an-email", "user@"} {
		_, err := svc.InitiateCharge(ctx, ident, email)
		assert.ErrorIs(t, err, domain.ErrValidationFailed, "email %q", email)
	}

	gateway.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_InitiateCharge_GatewayFailure(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)

	gateway.On("Initialize", mock.Anything, "user@example.com", PremiumPriceKES).
		Return(nil, ErrGatewayUnavailable)

	_, err := svc.InitiateCharge(ctx, ident, "user@example.com")
	assert.ErrorIs(t, err, domain.ErrGatewayInit)
	assert.False(t, svc.HasPendingCharge(ctx, ident))
}

func TestService_HandleReturn_Verified(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, session := newTestService(gateway, marker)

	require.NoError(t, session.Set(ctx, ident.SessionID, keyPendingCharge, "ref-123"))

	gateway.On("Verify", mock.Anything, "ref-123").Return(nil)
	marker.On("MarkPaid", mock.Anything, ident, "ref-123").Return(nil)
	marker.On("SetJustPaid", mock.Anything, ident).Return(nil)

	result := svc.HandleReturn(ctx, ident, "ref-123")

	assert.True(t, result.Verified)
	assert.Equal(t, canonicalURL, result.RedirectURL)
	assert.False(t, svc.HasPendingCharge(ctx, ident))

	gateway.AssertExpectations(t)
	marker.AssertExpectations(t)
}

func TestService_HandleReturn_VerificationFails(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)

	gateway.On("Verify", mock.Anything, "ref-123").Return(ErrVerifyFailed)

	result := svc.HandleReturn(ctx, ident, "ref-123")

	assert.False(t, result.Verified)
	assert.Equal(t, canonicalURL, result.RedirectURL)
	assert.NotEmpty(t, result.Alert)

	// A failed verification must never mark anything paid
	marker.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	marker.AssertNotCalled(t, "SetJustPaid", mock.Anything, mock.Anything)
}

func TestService_HandleReturn_DirectVisit(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)

	result := svc.HandleReturn(ctx, ident, "")

	assert.False(t, result.Verified)
	assert.Empty(t, result.Alert)
	assert.Equal(t, canonicalURL, result.RedirectURL)

	gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestService_HandleReturn_LedgerWriteFails(t *testing.T) {
	ctx := context.Background()
	ident := testIdentity()

	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)

	gateway.On("Verify", mock.Anything, "ref-123").Return(nil)
	marker.On("MarkPaid", mock.Anything, ident, "ref-123").Return(errors.New("store down"))

	result := svc.HandleReturn(ctx, ident, "ref-123")

	assert.False(t, result.Verified)
	assert.NotEmpty(t, result.Alert)

	// The just-paid signal stays unarmed when the paid flag was not recorded
	marker.AssertNotCalled(t, "SetJustPaid", mock.Anything, mock.Anything)
}

func TestService_WithAmount(t *testing.T) {
	gateway := new(mockGateway)
	marker := new(mockLedgerMarker)
	svc, _ := newTestService(gateway, marker)
	svc = svc.WithAmount(750)

	assert.Equal(t, 750, svc.AmountKES())

	gateway.On("Initialize", mock.Anything, "user@example.com", 750).
		Return(&CheckoutIntent{AuthorizationURL: "https://checkout.paystack.com/x", AmountKES: 750}, nil)

	_, err := svc.InitiateCharge(context.Background(), testIdentity(), "user@example.com")
	require.NoError(t, err)

	gateway.AssertExpectations(t)
}

func TestIsGatewayError(t *testing.T) {
	assert.True(t, IsGatewayError(ErrGatewayUnavailable))
	assert.True(t, IsGatewayError(ErrInitFailed))
	assert.True(t, IsGatewayError(ErrVerifyFailed))
	assert.False(t, IsGatewayError(errors.New("something else")))
}
