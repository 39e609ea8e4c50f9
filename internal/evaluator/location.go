package evaluator

import (
	"wisefido-guardian/internal/geofence"
	"wisefido-guardian/internal/models"
)

// AnalyzeLocation 位置分析：不在任何启用的安全区域内即为异常（high）
// 没有任何启用区域时同样视为异常，由调用方负责提供兜底区域
func AnalyzeLocation(point models.Point, zones []models.Zone) models.LocationResult {
	active := models.ActiveZones(zones)

	result := models.LocationResult{
		DimensionResult: models.DimensionResult{
			Dimension: models.DimensionLocation,
			Severity:  models.SeverityNormal,
			Message:   "位置正常",
		},
		LocationName: geofence.ResolveZoneName(point, active),
	}

	if !geofence.IsInAnyZone(point, active) {
		result.IsAnomaly = true
		result.Severity = models.SeverityHigh
		result.LocationName = models.UnknownZoneName
		result.Message = "检测到偏离日常活动区域，请确认老人状况"
	}

	return result
}
