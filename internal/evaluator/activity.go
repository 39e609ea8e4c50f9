package evaluator

import (
	"wisefido-guardian/internal/models"
)

// 时段划分（含端点）
func isNight(hour int) bool   { return hour >= 22 || hour < 6 }
func isMorning(hour int) bool { return hour >= 7 && hour <= 9 }
func isMidday(hour int) bool  { return hour >= 12 && hour <= 14 }

// AnalyzeActivity 作息分析
// 夜间 (22-06)：心率 > 85 或步数 > 100 为 warning
// 晨练 (07-09)：心率 > 120 为 warning
// 午休 (12-14)：心率 > 100 且步数 > 500 为 medium
// 活动标签与是否异常无关
func AnalyzeActivity(hour, heartRate, steps int) models.ActivityResult {
	result := models.ActivityResult{
		DimensionResult: models.DimensionResult{
			Dimension: models.DimensionActivity,
			Severity:  models.SeverityNormal,
			Message:   "活动模式正常",
		},
		Activity: models.ActivityNormal,
		Hour:     hour,
	}

	switch {
	case isNight(hour):
		if heartRate > 85 || steps > 100 {
			result.IsAnomaly = true
			result.Severity = models.SeverityWarning
			result.Activity = models.ActivityNightAnomaly
			result.Message = "夜间检测到异常活动，可能是失眠或其他情况"
		}

	case isMorning(hour):
		result.Activity = models.ActivityMorningWorkout
		if heartRate > 120 {
			result.IsAnomaly = true
			result.Severity = models.SeverityWarning
			result.Message = "晨练期间心率过高，建议适当休息"
		}

	case isMidday(hour):
		result.Activity = models.ActivityMiddayRest
		if heartRate > 100 && steps > 500 {
			result.IsAnomaly = true
			result.Severity = models.SeverityMedium
			result.Message = "午休时段检测到较高活动量"
		}
	}

	return result
}
