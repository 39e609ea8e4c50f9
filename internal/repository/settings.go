package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// SettingsRepository 手动阈值设置仓库
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingsRepository 创建设置仓库
func NewSettingsRepository(db *sql.DB, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

// GetSettings 获取手动设置，不存在时返回 (nil, nil)
func (r *SettingsRepository) GetSettings(ctx context.Context, subjectID string) (*models.ThresholdSettings, error) {
	query := `
		SELECT
			subject_id,
			heart_rate_threshold_high,
			heart_rate_threshold_low,
			systolic_bp_threshold_high,
			systolic_bp_threshold_low,
			notification_enabled,
			emergency_contact,
			updated_at
		FROM threshold_settings
		WHERE subject_id = $1
	`

	var s models.ThresholdSettings
	var contact sql.NullString
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&s.SubjectID,
		&s.HeartRateHigh,
		&s.HeartRateLow,
		&s.SystolicHigh,
		&s.SystolicLow,
		&s.NotificationEnabled,
		&contact,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get threshold settings: %w", err)
	}

	if contact.Valid {
		s.EmergencyContact = &contact.String
	}
	return &s, nil
}

// UpsertSettings 写入手动设置（调用方负责先校验）
func (r *SettingsRepository) UpsertSettings(ctx context.Context, s *models.ThresholdSettings) error {
	if s == nil {
		return fmt.Errorf("settings is required")
	}

	query := `
		INSERT INTO threshold_settings (
			subject_id,
			heart_rate_threshold_high,
			heart_rate_threshold_low,
			systolic_bp_threshold_high,
			systolic_bp_threshold_low,
			notification_enabled,
			emergency_contact,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subject_id) DO UPDATE SET
			heart_rate_threshold_high = EXCLUDED.heart_rate_threshold_high,
			heart_rate_threshold_low = EXCLUDED.heart_rate_threshold_low,
			systolic_bp_threshold_high = EXCLUDED.systolic_bp_threshold_high,
			systolic_bp_threshold_low = EXCLUDED.systolic_bp_threshold_low,
			notification_enabled = EXCLUDED.notification_enabled,
			emergency_contact = EXCLUDED.emergency_contact,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		s.SubjectID,
		s.HeartRateHigh,
		s.HeartRateLow,
		s.SystolicHigh,
		s.SystolicLow,
		s.NotificationEnabled,
		s.EmergencyContact,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert threshold settings: %w", err)
	}
	return nil
}

// DeleteSettings 删除手动设置，之后阈值回落到默认值
func (r *SettingsRepository) DeleteSettings(ctx context.Context, subjectID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM threshold_settings WHERE subject_id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete threshold settings: %w", err)
	}
	return nil
}
