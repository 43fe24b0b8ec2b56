package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/remboglow/facefit/internal/api/middleware"
	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/service"
)

// MockAnalysisFlow is a mock implementation of AnalysisFlow
type MockAnalysisFlow struct {
	mock.Mock
}

func (m *MockAnalysisFlow) SelectImage(ctx context.Context, ident domain.Identity, attempt domain.UploadAttempt) error {
	args := m.Called(ctx, ident, attempt)
	return args.Error(0)
}

func (m *MockAnalysisFlow) Analyze(ctx context.Context, ident domain.Identity) (*service.Outcome, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Outcome), args.Error(1)
}

func (m *MockAnalysisFlow) RequestMore(ctx context.Context, ident domain.Identity, email string) (*service.Decision, error) {
	args := m.Called(ctx, ident, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Decision), args.Error(1)
}

func (m *MockAnalysisFlow) Reset(ctx context.Context, ident domain.Identity) {
	m.Called(ctx, ident)
}

func (m *MockAnalysisFlow) Outcome(ident domain.Identity) (*service.Outcome, bool) {
	args := m.Called(ident)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*service.Outcome), args.Bool(1)
}

func (m *MockAnalysisFlow) Phase(ident domain.Identity) service.Phase {
	args := m.Called(ident)
	return args.Get(0).(service.Phase)
}

// MockAnalysisStore is a mock implementation of AnalysisStore
type MockAnalysisStore struct {
	mock.Mock
}

func (m *MockAnalysisStore) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.AnalysisRecord, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisStore) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockAnalysisStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoutineGenerator is a mock implementation of RoutineGenerator
type MockRoutineGenerator struct {
	mock.Mock
}

func (m *MockRoutineGenerator) Generate(ctx context.Context, ident domain.Identity, budgetKES int) (*domain.DailyRoutine, error) {
	args := m.Called(ctx, ident, budgetKES)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyRoutine), args.Error(1)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper to create test app with session identity and error handling
func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})
	app.Use(middleware.Session())
	return app
}

// Helper to create multipart upload request body
func createUploadBody(fieldName string, content []byte, contentType string, extraFields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range extraFields {
		_ = writer.WriteField(k, v)
	}

	if content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="selfie.jpg"`)
		h.Set("Content-Type", contentType)

		part, _ := writer.CreatePart(h)
		_, _ = part.Write(content)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var parsed struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	return parsed.Error.Code
}

func TestAnalysisHandler_SelectImage(t *testing.T) {
	tests := []struct {
		name           string
		content        []byte
		contentType    string
		fields         map[string]string
		setupMock      func(*MockAnalysisFlow)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:        "successful selection",
			content:     make([]byte, 4096),
			contentType: "image/jpeg",
			fields:      map[string]string{"source": "camera", "budget_kes": "5000"},
			setupMock: func(m *MockAnalysisFlow) {
				m.On("SelectImage", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.UploadAttempt) bool {
					return a.Source == domain.SourceCamera && a.BudgetKES == 5000 && a.Size == 4096
				})).Return(nil)
				m.On("Phase", mock.Anything).Return(service.PhaseImageSelected)
			},
			expectedStatus: 201,
		},
		{
			name:           "missing image file",
			content:        nil,
			setupMock:      func(m *MockAnalysisFlow) {},
			expectedStatus: 422,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:        "unsupported image type",
			content:     make([]byte, 4096),
			contentType: "image/gif",
			setupMock: func(m *MockAnalysisFlow) {
				m.On("SelectImage", mock.Anything, mock.Anything, mock.Anything).
					Return(domain.ErrUnsupportedImageType)
			},
			expectedStatus: 422,
			expectedCode:   "UNSUPPORTED_IMAGE_TYPE",
		},
		{
			name:        "unknown source falls back to file picker",
			content:     make([]byte, 1024),
			contentType: "image/png",
			fields:      map[string]string{"source": "telepathy"},
			setupMock: func(m *MockAnalysisFlow) {
				m.On("SelectImage", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.UploadAttempt) bool {
					return a.Source == domain.SourceFilePicker
				})).Return(nil)
				m.On("Phase", mock.Anything).Return(service.PhaseImageSelected)
			},
			expectedStatus: 201,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &MockAnalysisFlow{}
			tt.setupMock(flow)

			h := NewAnalysisHandler(flow, &MockAnalysisStore{}, &MockRoutineGenerator{}, testLogger())
			app := newTestApp()
			app.Post("/v1/analyses/image", h.SelectImage)

			body, contentType := createUploadBody("image", tt.content, tt.contentType, tt.fields)
			req := httptest.NewRequest("POST", "/v1/analyses/image", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			respBody, _ := io.ReadAll(resp.Body)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, respBody))
			}

			flow.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_SelectImage_TooLarge(t *testing.T) {
	flow := &MockAnalysisFlow{}
	h := NewAnalysisHandler(flow, &MockAnalysisStore{}, &MockRoutineGenerator{}, testLogger())

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(middleware.Session())
	app.Post("/v1/analyses/image", h.SelectImage)

	body, contentType := createUploadBody("image", make([]byte, service.MaxUploadBytes+1), "image/jpeg", nil)
	req := httptest.NewRequest("POST", "/v1/analyses/image", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 413, resp.StatusCode)
	flow.AssertNotCalled(t, "SelectImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	recordID := uuid.New()
	outcome := &service.Outcome{
		RecordID: recordID,
		Quality:  domain.ParseStrict,
		Bundle: &domain.RecommendationBundle{
			SkinProfile: domain.SkinProfile{
				SkinTone:    "deep",
				Undertone:   domain.UndertoneWarm,
				FacialShape: domain.ShapeOval,
				SkinType:    "combination",
				Concerns:    []string{"hyperpigmentation"},
			},
		},
	}

	tests := []struct {
		name           string
		setupMock      func(*MockAnalysisFlow)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful analysis",
			setupMock: func(m *MockAnalysisFlow) {
				m.On("Analyze", mock.Anything, mock.Anything).Return(outcome, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "no image selected",
			setupMock: func(m *MockAnalysisFlow) {
				m.On("Analyze", mock.Anything, mock.Anything).Return(nil, domain.ErrNoImageSelected)
			},
			expectedStatus: 409,
			expectedCode:   "NO_IMAGE_SELECTED",
		},
		{
			name: "payment required",
			setupMock: func(m *MockAnalysisFlow) {
				m.On("Analyze", mock.Anything, mock.Anything).Return(nil, domain.ErrPaymentRequired)
			},
			expectedStatus: 402,
			expectedCode:   "PAYMENT_REQUIRED",
		},
		{
			name: "backend unreachable",
			setupMock: func(m *MockAnalysisFlow) {
				m.On("Analyze", mock.Anything, mock.Anything).Return(nil, domain.ErrTransport)
			},
			expectedStatus: 503,
			expectedCode:   "ANALYSIS_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &MockAnalysisFlow{}
			tt.setupMock(flow)

			h := NewAnalysisHandler(flow, &MockAnalysisStore{}, &MockRoutineGenerator{}, testLogger())
			app := newTestApp()
			app.Post("/v1/analyses", h.Analyze)

			resp, err := app.Test(httptest.NewRequest("POST", "/v1/analyses", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			respBody, _ := io.ReadAll(resp.Body)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, respBody))
				return
			}

			var parsed AnalyzeResponse
			require.NoError(t, json.Unmarshal(respBody, &parsed))
			assert.Equal(t, recordID.String(), parsed.RecordID)
			assert.Equal(t, "strict", parsed.ParseQuality)
			require.NotNil(t, parsed.Result)
			assert.Equal(t, "deep", parsed.Result.SkinProfile.SkinTone)
		})
	}
}

func TestAnalysisHandler_Current(t *testing.T) {
	t.Run("no result yet", func(t *testing.T) {
		flow := &MockAnalysisFlow{}
		flow.On("Outcome", mock.Anything).Return(nil, false)

		h := NewAnalysisHandler(flow, &MockAnalysisStore{}, &MockRoutineGenerator{}, testLogger())
		app := newTestApp()
		app.Get("/v1/analyses/current", h.Current)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses/current", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("result available", func(t *testing.T) {
		flow := &MockAnalysisFlow{}
		flow.On("Outcome", mock.Anything).Return(&service.Outcome{
			RecordID: uuid.New(),
			Quality:  domain.ParseDegraded,
			Bundle:   &domain.RecommendationBundle{},
		}, true)

		h := NewAnalysisHandler(flow, &MockAnalysisStore{}, &MockRoutineGenerator{}, testLogger())
		app := newTestApp()
		app.Get("/v1/analyses/current", h.Current)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses/current", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, 200, resp.StatusCode)

		respBody, _ := io.ReadAll(resp.Body)
		var parsed AnalyzeResponse
		require.NoError(t, json.Unmarshal(respBody, &parsed))
		assert.Equal(t, "degraded", parsed.ParseQuality)
	})
}

func TestAnalysisHandler_List(t *testing.T) {
	store := &MockAnalysisStore{}
	store.On("ListByUser", mock.Anything, mock.Anything, 0).Return([]domain.AnalysisRecord{
		{
			ID:           uuid.New(),
			ParseQuality: domain.ParseStrict,
			BudgetKES:    5000,
			Bundle: &domain.RecommendationBundle{
				SkinProfile: domain.SkinProfile{SkinTone: "deep"},
			},
			CreatedAt: time.Now(),
		},
		{
			ID:           uuid.New(),
			ParseQuality: domain.ParseDegraded,
			CreatedAt:    time.Now().Add(-time.Hour),
		},
	}, nil)

	h := NewAnalysisHandler(&MockAnalysisFlow{}, store, &MockRoutineGenerator{}, testLogger())
	app := newTestApp()
	app.Get("/v1/analyses", h.List)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	respBody, _ := io.ReadAll(resp.Body)
	var parsed struct {
		Analyses []HistoryItem `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(respBody, &parsed))
	require.Len(t, parsed.Analyses, 2)
	assert.Equal(t, "deep", parsed.Analyses[0].SkinProfile.SkinTone)
	assert.Nil(t, parsed.Analyses[1].SkinProfile)
}

func TestAnalysisHandler_Delete(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		param          string
		setupMock      func(*MockAnalysisStore)
		expectedStatus int
	}{
		{
			name:  "deletes owned analysis",
			param: id.String(),
			setupMock: func(m *MockAnalysisStore) {
				m.On("Delete", mock.Anything, mock.Anything, id).Return(nil)
			},
			expectedStatus: 204,
		},
		{
			name:  "analysis not found",
			param: id.String(),
			setupMock: func(m *MockAnalysisStore) {
				m.On("Delete", mock.Anything, mock.Anything, id).Return(domain.ErrAnalysisNotFound)
			},
			expectedStatus: 404,
		},
		{
			name:           "malformed id",
			param:          "not-a-uuid",
			setupMock:      func(m *MockAnalysisStore) {},
			expectedStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockAnalysisStore{}
			tt.setupMock(store)

			h := NewAnalysisHandler(&MockAnalysisFlow{}, store, &MockRoutineGenerator{}, testLogger())
			app := newTestApp()
			app.Delete("/v1/analyses/:id", h.Delete)

			resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/analyses/"+tt.param, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			store.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_Get(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		param          string
		setupMock      func(*MockAnalysisStore)
		expectedStatus int
	}{
		{
			name:  "returns the full bundle",
			param: id.String(),
			setupMock: func(m *MockAnalysisStore) {
				m.On("GetByID", mock.Anything, mock.Anything, id).Return(&domain.AnalysisRecord{
					ID:           id,
					ParseQuality: domain.ParseStrict,
					BudgetKES:    5000,
					Bundle: &domain.RecommendationBundle{
						SkinProfile: domain.SkinProfile{SkinTone: "deep"},
					},
					CreatedAt: time.Now(),
				}, nil)
			},
			expectedStatus: 200,
		},
		{
			name:  "analysis not found",
			param: id.String(),
			setupMock: func(m *MockAnalysisStore) {
				m.On("GetByID", mock.Anything, mock.Anything, id).Return(nil, domain.ErrAnalysisNotFound)
			},
			expectedStatus: 404,
		},
		{
			name:           "malformed id",
			param:          "not-a-uuid",
			setupMock:      func(m *MockAnalysisStore) {},
			expectedStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockAnalysisStore{}
			tt.setupMock(store)

			h := NewAnalysisHandler(&MockAnalysisFlow{}, store, &MockRoutineGenerator{}, testLogger())
			app := newTestApp()
			app.Get("/v1/analyses/:id", h.Get)

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses/"+tt.param, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == 200 {
				respBody, _ := io.ReadAll(resp.Body)
				var detail AnalysisDetail
				require.NoError(t, json.Unmarshal(respBody, &detail))
				assert.Equal(t, id.String(), detail.ID)
				assert.Equal(t, "strict", detail.ParseQuality)
				require.NotNil(t, detail.Result)
				assert.Equal(t, "deep", detail.Result.SkinProfile.SkinTone)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_GenerateRoutine(t *testing.T) {
	t.Run("passes the requested budget through", func(t *testing.T) {
		routines := &MockRoutineGenerator{}
		routines.On("Generate", mock.Anything, mock.Anything, 3000).Return(&domain.DailyRoutine{
			Schedule: domain.SkincareRoutine{
				Morning: []domain.RoutineStep{{Step: "Cleanser", Brand: "CeraVe", Product: "Foaming Cleanser"}},
			},
		}, nil)

		h := NewAnalysisHandler(&MockAnalysisFlow{}, &MockAnalysisStore{}, routines, testLogger())
		app := newTestApp()
		app.Post("/v1/routines", h.GenerateRoutine)

		req := httptest.NewRequest("POST", "/v1/routines", bytes.NewReader([]byte(`{"budget_kes": 3000}`)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, 200, resp.StatusCode)
		routines.AssertExpectations(t)
	})

	t.Run("no stored profile", func(t *testing.T) {
		routines := &MockRoutineGenerator{}
		routines.On("Generate", mock.Anything, mock.Anything, 0).Return(nil, domain.ErrNoProfileAvailable)

		h := NewAnalysisHandler(&MockAnalysisFlow{}, &MockAnalysisStore{}, routines, testLogger())
		app := newTestApp()
		app.Post("/v1/routines", h.GenerateRoutine)

		resp, err := app.Test(httptest.NewRequest("POST", "/v1/routines", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, 404, resp.StatusCode)
	})
}
