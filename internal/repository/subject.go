package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// SubjectRepository 被监护人仓库
type SubjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubjectRepository 创建被监护人仓库
func NewSubjectRepository(db *sql.DB, logger *zap.Logger) *SubjectRepository {
	return &SubjectRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveSubjects 获取租户下启用的被监护人（按 subject_id 排序，limit <= 0 表示不限）
func (r *SubjectRepository) ListActiveSubjects(ctx context.Context, tenantID string, limit int) ([]models.Subject, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT subject_id, tenant_id, display_name, active
		FROM subjects
		WHERE tenant_id = $1
		  AND active = true
		ORDER BY subject_id
	`
	args := []interface{}{tenantID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.SubjectID, &s.TenantID, &s.DisplayName, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}

	return subjects, nil
}

// GetSubject 获取单个被监护人
func (r *SubjectRepository) GetSubject(ctx context.Context, tenantID, subjectID string) (*models.Subject, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT subject_id, tenant_id, display_name, active
		FROM subjects
		WHERE subject_id = $1
		  AND tenant_id = $2
	`

	var s models.Subject
	err := r.db.QueryRowContext(ctx, query, subjectID, tenantID).Scan(&s.SubjectID, &s.TenantID, &s.DisplayName, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("subject", subjectID)
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return &s, nil
}
