// Package repository is the Postgres data access layer.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/remboglow/facefit/internal/domain"
)

// PgxPool is the pool surface the repositories use. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type AnalysisRepository struct {
	pool PgxPool
}

func NewAnalysisRepository(pool PgxPool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Save persists a completed analysis. The bundle is stored as JSONB.
func (r *AnalysisRepository) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	query := `
		INSERT INTO analyses (id, user_id, session_id, image_size, image_type, budget_kes, parse_quality, bundle, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	bundle, err := json.Marshal(record.Bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		record.ID,
		record.UserID,
		record.SessionID,
		record.ImageSize,
		record.ImageType,
		record.BudgetKES,
		string(record.ParseQuality),
		bundle,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	return nil
}

// GetByID fetches one analysis owned by the user.
func (r *AnalysisRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.AnalysisRecord, error) {
	query := `
		SELECT id, user_id, session_id, image_size, image_type, budget_kes, parse_quality, bundle, created_at
		FROM analyses
		WHERE user_id = $1 AND id = $2
	`

	record, err := r.scanRecord(r.pool.QueryRow(ctx, query, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis by id: %w", err)
	}

	return record, nil
}

// ListByUser returns the user's analyses, newest first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, user_id, session_id, image_size, image_type, budget_kes, parse_quality, bundle, created_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []domain.AnalysisRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	return records, nil
}

// LatestProfile returns the skin profile of the user's most recent analysis,
// or nil when the user has none.
func (r *AnalysisRepository) LatestProfile(ctx context.Context, userID string) (*domain.SkinProfile, error) {
	query := `
		SELECT bundle
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest profile: %w", err)
	}

	var bundle domain.RecommendationBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("unmarshal bundle: %w", err)
	}

	return &bundle.SkinProfile, nil
}

// Delete removes one analysis owned by the user.
func (r *AnalysisRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	query := `
		DELETE FROM analyses
		WHERE user_id = $1 AND id = $2
	`

	result, err := r.pool.Exec(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrAnalysisNotFound
	}

	return nil
}

// DeleteAllByUser wipes the user's analysis history.
func (r *AnalysisRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM analyses WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete analyses: %w", err)
	}

	return result.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AnalysisRepository) scanRecord(row rowScanner) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	var quality string
	var raw []byte

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.SessionID,
		&record.ImageSize,
		&record.ImageType,
		&record.BudgetKES,
		&quality,
		&raw,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ParseQuality = domain.ParseQuality(quality)

	if len(raw) > 0 {
		var bundle domain.RecommendationBundle
		if err := json.Unmarshal(raw, &bundle); err != nil {
			return nil, fmt.Errorf("unmarshal bundle: %w", err)
		}
		record.Bundle = &bundle
	}

	return &record, nil
}
