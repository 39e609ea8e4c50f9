package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

const sampleColumns = `
		sample_id,
		subject_id,
		recorded_at,
		heart_rate,
		systolic_bp,
		diastolic_bp,
		steps,
		latitude,
		longitude
`

// SampleRepository 健康样本仓库（只读，样本由采集服务写入）
type SampleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSampleRepository 创建样本仓库
func NewSampleRepository(db *sql.DB, logger *zap.Logger) *SampleRepository {
	return &SampleRepository{
		db:     db,
		logger: logger,
	}
}

// GetLatestSample 获取最新一条样本，不存在时返回 (nil, nil)
func (r *SampleRepository) GetLatestSample(ctx context.Context, subjectID string) (*models.Sample, error) {
	query := `SELECT` + sampleColumns + `
		FROM health_samples
		WHERE subject_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	s, err := scanSample(r.db.QueryRowContext(ctx, query, subjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest sample: %w", err)
	}
	return s, nil
}

// ListRecentSamples 获取最近 limit 条样本（最新在前）
func (r *SampleRepository) ListRecentSamples(ctx context.Context, subjectID string, limit int) ([]models.Sample, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT` + sampleColumns + `
		FROM health_samples
		WHERE subject_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, subjectID, limit)
}

// ListSamplesSince 获取 since 之后的全部样本（按时间升序），用于基线学习
func (r *SampleRepository) ListSamplesSince(ctx context.Context, subjectID string, since time.Time) ([]models.Sample, error) {
	query := `SELECT` + sampleColumns + `
		FROM health_samples
		WHERE subject_id = $1
		  AND recorded_at >= $2
		ORDER BY recorded_at ASC
	`
	return r.query(ctx, query, subjectID, since)
}

func (r *SampleRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Sample, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return samples, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSample(row rowScanner) (*models.Sample, error) {
	var s models.Sample
	err := row.Scan(
		&s.SampleID,
		&s.SubjectID,
		&s.RecordedAt,
		&s.HeartRate,
		&s.SystolicBP,
		&s.DiastolicBP,
		&s.Steps,
		&s.Latitude,
		&s.Longitude,
	)
	if err != nil {
		return nil, err
	}
	s.RecordedAt = s.RecordedAt.UTC()
	return &s, nil
}
