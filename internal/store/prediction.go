package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/veristat/apiserver/types"
)

// PredictionRepository handles persistence for prediction history.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(ctx context.Context, p types.Prediction) (types.Prediction, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO predictions (
			username, statement, full_text, speaker, sources,
			label, confidence, num_sources, has_official_source,
			risk_level, input_completeness, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		p.Username,
		p.Statement,
		nullString(p.FullText),
		nullString(p.Speaker),
		nullString(p.Sources),
		p.Label,
		p.Confidence,
		p.NumSources,
		p.HasOfficialSource,
		p.RiskLevel,
		p.InputCompleteness,
		p.CreatedAt,
	).Scan(&p.ID); err != nil {
		return types.Prediction{}, err
	}
	return p, nil
}

func (r *PredictionRepository) Get(ctx context.Context, id int64) (types.Prediction, error) {
	const query = `
		SELECT id, username, statement, full_text, speaker, sources,
		       label, confidence, num_sources, has_official_source,
		       risk_level, input_completeness, created_at
		FROM predictions
		WHERE id = $1`
	return scanPrediction(r.db.QueryRowContext(ctx, query, id))
}

// ListByUsername returns the user's history, newest first.
func (r *PredictionRepository) ListByUsername(ctx context.Context, username string, limit int) ([]types.Prediction, error) {
	const query = `
		SELECT id, username, statement, full_text, speaker, sources,
		       label, confidence, num_sources, has_official_source,
		       risk_level, input_completeness, created_at
		FROM predictions
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPredictions(rows)
}

// List returns history across all users, newest first, for the admin view.
func (r *PredictionRepository) List(ctx context.Context, offset, limit int) ([]types.Prediction, int, error) {
	const countQuery = `SELECT COUNT(*) FROM predictions`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT id, username, statement, full_text, speaker, sources,
		       label, confidence, num_sources, has_official_source,
		       risk_level, input_completeness, created_at
		FROM predictions
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	predictions, err := collectPredictions(rows)
	if err != nil {
		return nil, 0, err
	}
	return predictions, total, nil
}

// Stats aggregates label and risk-level counts for the admin dashboard.
func (r *PredictionRepository) Stats(ctx context.Context) (types.PredictionStats, error) {
	stats := types.PredictionStats{
		ByLabel:     map[string]int{},
		ByRiskLevel: map[string]int{},
	}

	const query = `
		SELECT label, risk_level, COUNT(*)
		FROM predictions
		GROUP BY label, risk_level`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return types.PredictionStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var label, riskLevel string
		var count int
		if err := rows.Scan(&label, &riskLevel, &count); err != nil {
			return types.PredictionStats{}, err
		}
		stats.Total += count
		stats.ByLabel[label] += count
		stats.ByRiskLevel[riskLevel] += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Rows written before the completeness migration carry NULLs in the optional
// columns; those read back as empty values rather than scan failures.
func scanPrediction(row rowScanner) (types.Prediction, error) {
	var p types.Prediction
	var fullText, speaker, sources sql.NullString
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Statement,
		&fullText,
		&speaker,
		&sources,
		&p.Label,
		&p.Confidence,
		&p.NumSources,
		&p.HasOfficialSource,
		&p.RiskLevel,
		&p.InputCompleteness,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Prediction{}, ErrNotFound
		}
		return types.Prediction{}, err
	}
	p.FullText = fullText.String
	p.Speaker = speaker.String
	p.Sources = sources.String
	return p, nil
}

func collectPredictions(rows *sql.Rows) ([]types.Prediction, error) {
	var predictions []types.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
