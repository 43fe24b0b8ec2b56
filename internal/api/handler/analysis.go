package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/remboglow/facefit/internal/api/middleware"
	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/service"
)

// AnalysisFlow is the orchestrator surface the handler uses.
type AnalysisFlow interface {
	SelectImage(ctx context.Context, ident domain.Identity, attempt domain.UploadAttempt) error
	Analyze(ctx context.Context, ident domain.Identity) (*service.Outcome, error)
	RequestMore(ctx context.Context, ident domain.Identity, email string) (*service.Decision, error)
	Reset(ctx context.Context, ident domain.Identity)
	Outcome(ident domain.Identity) (*service.Outcome, bool)
	Phase(ident domain.Identity) service.Phase
}

// AnalysisStore is the history surface the handler uses.
type AnalysisStore interface {
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.AnalysisRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// RoutineGenerator regenerates a routine from the stored profile.
type RoutineGenerator interface {
	Generate(ctx context.Context, ident domain.Identity, budgetKES int) (*domain.DailyRoutine, error)
}

// AnalysisHandler handles upload and analysis requests.
type AnalysisHandler struct {
	flow     AnalysisFlow
	store    AnalysisStore
	routines RoutineGenerator
	logger   *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler instance.
func NewAnalysisHandler(flow AnalysisFlow, store AnalysisStore, routines RoutineGenerator, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		flow:     flow,
		store:    store,
		routines: routines,
		logger:   logger,
	}
}

// UploadResponse response for the image selection endpoint
type UploadResponse struct {
	Phase  string `json:"phase"`
	Size   int    `json:"size"`
	Source string `json:"source"`
}

// AnalyzeResponse response for the analyze endpoint
type AnalyzeResponse struct {
	RecordID      string                       `json:"record_id"`
	ParseQuality  string                       `json:"parse_quality"`
	MissingFields []string                     `json:"missing_fields,omitempty"`
	Result        *domain.RecommendationBundle `json:"result"`
}

// SelectImage POST /v1/analyses/image - stage a selfie for analysis
func (h *AnalysisHandler) SelectImage(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("image file is required"))
	}

	if fileHeader.Size > service.MaxUploadBytes {
		return domain.ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadBytes+1))
	if err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	source := strings.TrimSpace(c.FormValue("source"))
	if source != domain.SourceCamera {
		source = domain.SourceFilePicker
	}

	budgetKES, _ := strconv.Atoi(c.FormValue("budget_kes"))
	if budgetKES < 0 {
		budgetKES = 0
	}

	attempt := domain.UploadAttempt{
		Data:      data,
		MimeType:  mimeType,
		Size:      len(data),
		Source:    source,
		BudgetKES: budgetKES,
	}

	if err := h.flow.SelectImage(c.Context(), ident, attempt); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		Phase:  string(h.flow.Phase(ident)),
		Size:   attempt.Size,
		Source: attempt.Source,
	})
}

// Analyze POST /v1/analyses - run the staged image through the model
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	outcome, err := h.flow.Analyze(c.Context(), ident)
	if err != nil {
		return err
	}

	return c.JSON(AnalyzeResponse{
		RecordID:      outcome.RecordID.String(),
		ParseQuality:  string(outcome.Quality),
		MissingFields: outcome.MissingFields,
		Result:        outcome.Bundle,
	})
}

// Current GET /v1/analyses/current - the session's latest result
func (h *AnalysisHandler) Current(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	outcome, ok := h.flow.Outcome(ident)
	if !ok {
		return domain.ErrAnalysisNotFound
	}

	return c.JSON(AnalyzeResponse{
		RecordID:      outcome.RecordID.String(),
		ParseQuality:  string(outcome.Quality),
		MissingFields: outcome.MissingFields,
		Result:        outcome.Bundle,
	})
}

// HistoryItem is one analysis in the history listing. The full bundle is
// omitted; clients fetch it per record if needed.
type HistoryItem struct {
	ID           string              `json:"id"`
	CreatedAt    string              `json:"created_at"`
	ParseQuality string              `json:"parse_quality"`
	BudgetKES    int                 `json:"budget_kes"`
	SkinProfile  *domain.SkinProfile `json:"skin_profile,omitempty"`
}

// List GET /v1/analyses - the user's analysis history
func (h *AnalysisHandler) List(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.store.ListByUser(c.Context(), ident.UserID, limit)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		item := HistoryItem{
			ID:           r.ID.String(),
			CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z"),
			ParseQuality: string(r.ParseQuality),
			BudgetKES:    r.BudgetKES,
		}
		if r.Bundle != nil {
			profile := r.Bundle.SkinProfile
			item.SkinProfile = &profile
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"analyses": items})
}

// AnalysisDetail is one stored analysis with its full bundle.
type AnalysisDetail struct {
	ID           string                       `json:"id"`
	CreatedAt    string                       `json:"created_at"`
	ParseQuality string                       `json:"parse_quality"`
	BudgetKES    int                          `json:"budget_kes"`
	Result       *domain.RecommendationBundle `json:"result"`
}

// Get GET /v1/analyses/:id - fetch one analysis in full
func (h *AnalysisHandler) Get(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("invalid analysis id"))
	}

	record, err := h.store.GetByID(c.Context(), ident.UserID, id)
	if err != nil {
		return err
	}

	return c.JSON(AnalysisDetail{
		ID:           record.ID.String(),
		CreatedAt:    record.CreatedAt.Format("2006-01-02T15:04:05Z"),
		ParseQuality: string(record.ParseQuality),
		BudgetKES:    record.BudgetKES,
		Result:       record.Bundle,
	})
}

// Delete DELETE /v1/analyses/:id - remove one analysis
func (h *AnalysisHandler) Delete(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("invalid analysis id"))
	}

	if err := h.store.Delete(c.Context(), ident.UserID, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAll DELETE /v1/analyses - wipe the user's history
func (h *AnalysisHandler) DeleteAll(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	deleted, err := h.store.DeleteAllByUser(c.Context(), ident.UserID)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}

// Reset POST /v1/analyses/reset - discard the staged image and result
func (h *AnalysisHandler) Reset(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	h.flow.Reset(c.Context(), ident)

	return c.JSON(fiber.Map{"phase": string(h.flow.Phase(ident))})
}

// RoutineRequest request body for routine regeneration
type RoutineRequest struct {
	BudgetKES int `json:"budget_kes"`
}

// GenerateRoutine POST /v1/routines - regenerate a routine from the stored
// profile without spending quota
func (h *AnalysisHandler) GenerateRoutine(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	var req RoutineRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.ErrValidationFailed.WithError(err)
		}
	}

	routine, err := h.routines.Generate(c.Context(), ident, req.BudgetKES)
	if err != nil {
		return err
	}

	return c.JSON(routine)
}
