package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// AlertRepository 告警事件仓库
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository 创建告警事件仓库
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlertEvent 写入告警事件（需验证 tenant_id）
func (r *AlertRepository) CreateAlertEvent(ctx context.Context, tenantID string, event *models.AlertEvent) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.TenantID != tenantID {
		return fmt.Errorf("event.tenant_id must match tenant_id parameter")
	}

	query := `
		INSERT INTO guardian_alerts (
			event_id,
			tenant_id,
			subject_id,
			sample_id,
			alert_type,
			severity,
			overall_risk,
			description,
			status,
			trigger_data,
			triggered_at,
			handled_by,
			handled_at,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.TenantID,
		event.SubjectID,
		event.SampleID,
		event.AlertType,
		event.Severity,
		event.OverallRisk,
		event.Description,
		event.Status,
		event.TriggerData,
		event.TriggeredAt,
		event.HandledBy,
		event.HandledAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert event: %w", err)
	}

	return nil
}
