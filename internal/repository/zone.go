package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// ZoneRepository 安全区域仓库
type ZoneRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewZoneRepository 创建安全区域仓库
func NewZoneRepository(db *sql.DB, logger *zap.Logger) *ZoneRepository {
	return &ZoneRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveZones 获取启用的安全区域，按 priority 排序（家在首位）
func (r *ZoneRepository) ListActiveZones(ctx context.Context, subjectID string) ([]models.Zone, error) {
	query := `
		SELECT zone_id, subject_id, zone_name, latitude, longitude, radius, is_active, priority
		FROM safe_zones
		WHERE subject_id = $1
		  AND is_active = true
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ZoneID, &z.SubjectID, &z.Name, &z.Latitude, &z.Longitude, &z.Radius, &z.Active, &z.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		if z.Radius <= 0 {
			r.logger.Warn("Skipping zone with non-positive radius",
				zap.String("subject_id", subjectID),
				zap.String("zone_id", z.ZoneID),
			)
			continue
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate zones: %w", err)
	}
	return zones, nil
}
