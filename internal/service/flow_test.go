package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remboglow/facefit/internal/catalog"
	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/facegate"
	"github.com/remboglow/facefit/internal/normalizer"
	"github.com/remboglow/facefit/internal/payment"
)

const validModelResponse = `{
  "skinAnalysis": {"skinTone": "deep", "undertone": "warm", "facialShape": "oval", "skinType": "combination", "concerns": ["hyperpigmentation"]},
  "productSuggestions": [{"brand": "Maybelline", "product": "Fit Me Foundation", "price": "Ksh 1,450"}]
}`

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType string, budgetKES int) (string, error) {
	args := m.Called(ctx, image, mimeType, budgetKES)
	return args.String(0), args.Error(1)
}

func (m *mockAnalyzer) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) CanConsumeFreeUpload(ctx context.Context, ident domain.Identity) bool {
	return m.Called(ctx, ident).Bool(0)
}

func (m *mockLedger) IsPaid(ctx context.Context, ident domain.Identity) bool {
	return m.Called(ctx, ident).Bool(0)
}

func (m *mockLedger) RecordSuccessfulAnalysis(ctx context.Context, ident domain.Identity) error {
	return m.Called(ctx, ident).Error(0)
}

type mockCharges struct {
	mock.Mock
}

func (m *mockCharges) InitiateCharge(ctx context.Context, ident domain.Identity, email string) (*payment.CheckoutIntent, error) {
	args := m.Called(ctx, ident, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutIntent), args.Error(1)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	return m.Called(ctx, record).Error(0)
}

type fixture struct {
	orch     *Orchestrator
	analyzer *mockAnalyzer
	ledger   *mockLedger
	charges  *mockCharges
	repo     *mockRepo
}

func newFixture() *fixture {
	an := new(mockAnalyzer)
	led := new(mockLedger)
	ch := new(mockCharges)
	repo := new(mockRepo)

	norm := normalizer.New(catalog.NewStatic(), slog.Default())
	orch := NewOrchestrator(an, norm, facegate.NewNoop(), led, ch, repo, slog.Default())

	return &fixture{orch: orch, analyzer: an, ledger: led, charges: ch, repo: repo}
}

func testIdentity() domain.Identity {
	return domain.Identity{UserID: "user-1", SessionID: "sess-1"}
}

func validAttempt() domain.UploadAttempt {
	data := []byte("fake-jpeg-bytes")
	return domain.UploadAttempt{
		Data:     data,
		MimeType: "image/jpeg",
		Size:     len(data),
		Source:   domain.SourceFilePicker,
	}
}

func TestSelectImage_RejectsOversizedFile(t *testing.T) {
	fx := newFixture()

	attempt := validAttempt()
	attempt.Size = MaxUploadBytes + 1

	err := fx.orch.SelectImage(context.Background(), testIdentity(), attempt)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	assert.Equal(t, PhaseEmpty, fx.orch.Phase(testIdentity()))
}

func TestSelectImage_RejectsUnsupportedType(t *testing.T) {
	fx := newFixture()

	attempt := validAttempt()
	attempt.MimeType = "image/gif"

	err := fx.orch.SelectImage(context.Background(), testIdentity(), attempt)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedImageType)
}

func TestAnalyze_WithoutImage(t *testing.T) {
	fx := newFixture()

	_, err := fx.orch.Analyze(context.Background(), testIdentity())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoImageSelected)
}

func TestAnalyze_Success_RecordsUsageOnce(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(true)
	fx.analyzer.On("AnalyzeImage", mock.Anything, mock.Anything, "image/jpeg", 0).Return(validModelResponse, nil)
	fx.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	fx.ledger.On("RecordSuccessfulAnalysis", mock.Anything, ident).Return(nil).Once()

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	outcome, err := fx.orch.Analyze(context.Background(), ident)
	require.NoError(t, err)
	require.NotNil(t, outcome.Bundle)

	assert.Equal(t, domain.ParseStrict, outcome.Quality)
	assert.Equal(t, "deep", outcome.Bundle.SkinProfile.SkinTone)
	assert.Equal(t, PhaseComplete, fx.orch.Phase(ident))

	fx.ledger.AssertExpectations(t)
	fx.repo.AssertExpectations(t)
}

func TestAnalyze_BackendFailure_DoesNotRecordUsage(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(true)
	fx.analyzer.On("AnalyzeImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("upstream down"))

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	_, err := fx.orch.Analyze(context.Background(), ident)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, PhaseFailed, fx.orch.Phase(ident))

	fx.ledger.AssertNotCalled(t, "RecordSuccessfulAnalysis", mock.Anything, mock.Anything)
}

func TestAnalyze_UnusableResponse_DoesNotRecordUsage(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(true)
	fx.analyzer.On("AnalyzeImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("Sorry, I cannot help with that.", nil)

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	_, err := fx.orch.Analyze(context.Background(), ident)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoStructuredData)

	fx.ledger.AssertNotCalled(t, "RecordSuccessfulAnalysis", mock.Anything, mock.Anything)
}

func TestAnalyze_QuotaSpentAndUnpaid(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(false)
	fx.ledger.On("IsPaid", mock.Anything, ident).Return(false)

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	_, err := fx.orch.Analyze(context.Background(), ident)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
}

func TestAnalyze_PaidUserBypassesQuota(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(false)
	fx.ledger.On("IsPaid", mock.Anything, ident).Return(true)
	fx.analyzer.On("AnalyzeImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(validModelResponse, nil)
	fx.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	fx.ledger.On("RecordSuccessfulAnalysis", mock.Anything, ident).Return(nil)

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	_, err := fx.orch.Analyze(context.Background(), ident)
	require.NoError(t, err)
}

func TestAnalyze_SupersededBySelectingNewImage(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(true)
	fx.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	fx.ledger.On("RecordSuccessfulAnalysis", mock.Anything, ident).Return(nil)

	// A new image arrives while the model call is in flight.
	fx.analyzer.On("AnalyzeImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))
		}).
		Return(validModelResponse, nil)

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	_, err := fx.orch.Analyze(context.Background(), ident)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAnalysisSuperseded)

	_, ok := fx.orch.Outcome(ident)
	assert.False(t, ok, "superseded result must not land")
	fx.ledger.AssertNotCalled(t, "RecordSuccessfulAnalysis", mock.Anything, mock.Anything)
	fx.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAnalyze_SecondCallWhileAnalyzingIsRejected(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(true)
	fx.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	fx.ledger.On("RecordSuccessfulAnalysis", mock.Anything, ident).Return(nil).Once()

	// A second Analyze arrives while the model call is in flight.
	var secondErr error
	fx.analyzer.On("AnalyzeImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			_, secondErr = fx.orch.Analyze(context.Background(), ident)
		}).
		Return(validModelResponse, nil).
		Once()

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))

	_, err := fx.orch.Analyze(context.Background(), ident)
	require.NoError(t, err, "the original call is unaffected")

	require.Error(t, secondErr)
	assert.ErrorIs(t, secondErr, domain.ErrAnalysisInFlight)
	assert.Equal(t, PhaseComplete, fx.orch.Phase(ident))
	fx.ledger.AssertExpectations(t)
}

func TestRequestMore_AllowedWhileQuotaRemains(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(true)

	decision, err := fx.orch.RequestMore(context.Background(), ident, "user@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Checkout)
	fx.charges.AssertNotCalled(t, "InitiateCharge", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestMore_PaywallInitiatesCheckout(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	fx.ledger.On("CanConsumeFreeUpload", mock.Anything, ident).Return(false)
	fx.ledger.On("IsPaid", mock.Anything, ident).Return(false)
	fx.charges.On("InitiateCharge", mock.Anything, ident, "user@example.com").
		Return(&payment.CheckoutIntent{AuthorizationURL: "https://checkout.paystack.com/abc", Reference: "ref-1"}, nil)

	decision, err := fx.orch.RequestMore(context.Background(), ident, "user@example.com")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	require.NotNil(t, decision.Checkout)
	assert.Equal(t, "ref-1", decision.Checkout.Reference)
	fx.charges.AssertExpectations(t)
}

func TestReset_ClearsFlow(t *testing.T) {
	fx := newFixture()
	ident := testIdentity()

	require.NoError(t, fx.orch.SelectImage(context.Background(), ident, validAttempt()))
	fx.orch.Reset(context.Background(), ident)

	assert.Equal(t, PhaseEmpty, fx.orch.Phase(ident))
	_, err := fx.orch.Analyze(context.Background(), ident)
	assert.ErrorIs(t, err, domain.ErrNoImageSelected)
}
