package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/remboglow/facefit/internal/analysis"
	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/normalizer"
)

// ProfileSource fetches the latest stored skin profile for a user.
type ProfileSource interface {
	LatestProfile(ctx context.Context, userID string) (*domain.SkinProfile, error)
}

// RoutineService regenerates a daily skincare routine from the most recent
// analysis, without spending quota or re-uploading a photo.
type RoutineService struct {
	analyzer   analysis.Analyzer
	normalizer *normalizer.Normalizer
	profiles   ProfileSource
	logger     *slog.Logger
}

// NewRoutineService creates the routine service.
func NewRoutineService(an analysis.Analyzer, norm *normalizer.Normalizer, profiles ProfileSource, logger *slog.Logger) *RoutineService {
	return &RoutineService{
		analyzer:   an,
		normalizer: norm,
		profiles:   profiles,
		logger:     logger,
	}
}

// Generate builds a fresh routine for the user's stored profile.
func (s *RoutineService) Generate(ctx context.Context, ident domain.Identity, budgetKES int) (*domain.DailyRoutine, error) {
	if budgetKES <= 0 {
		budgetKES = normalizer.DefaultBudgetKES
	}

	profile, err := s.profiles.LatestProfile(ctx, ident.UserID)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrInternal.WithError(err)
	}
	if profile == nil {
		return nil, domain.ErrNoProfileAvailable
	}

	raw, err := s.analyzer.GenerateText(ctx, analysis.RoutinePrompt(*profile, budgetKES))
	if err != nil {
		s.logger.Error("routine generation failed", "error", err, "user_id", ident.UserID)
		return nil, domain.ErrTransport.WithError(err)
	}

	routine, err := s.normalizer.NormalizeRoutine(raw)
	if err != nil {
		return nil, err
	}

	s.logger.Info("routine generated", slog.String("user_id", ident.UserID), slog.Int("budget_kes", budgetKES))
	return routine, nil
}
