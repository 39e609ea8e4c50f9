package evaluator

import (
	"fmt"

	"wisefido-guardian/internal/models"
)

// 收缩压超过该值时偏高判定为 high
const systolicCriticalHigh = 160

// AnalyzeBloodPressure 血压分析
// 收缩压或舒张压超上限：收缩压 > 160 为 high，否则 warning；收缩压低于下限：warning
func AnalyzeBloodPressure(systolic, diastolic int, thresholds models.ThresholdSet) models.BloodPressureResult {
	result := models.BloodPressureResult{
		DimensionResult: models.DimensionResult{
			Dimension: models.DimensionBloodPressure,
			Severity:  models.SeverityNormal,
			Message:   "血压正常",
		},
	}

	switch {
	case systolic > thresholds.SystolicHigh || diastolic > thresholds.DiastolicHigh:
		result.IsAnomaly = true
		result.Severity = models.SeverityWarning
		if systolic > systolicCriticalHigh {
			result.Severity = models.SeverityHigh
		}
		result.Message = fmt.Sprintf("血压偏高 (%d/%dmmHg)，建议休息并持续监测", systolic, diastolic)

	case systolic < thresholds.SystolicLow:
		result.IsAnomaly = true
		result.Severity = models.SeverityWarning
		result.Message = fmt.Sprintf("血压偏低 (%d/%dmmHg)，注意补充水分", systolic, diastolic)
	}

	return result
}
