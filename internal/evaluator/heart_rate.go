package evaluator

import (
	"fmt"
	"math"

	"wisefido-guardian/internal/models"
)

// 心率超出上限的偏离比例超过该值时为 high
const heartRateHighDeviationPercent = 20

// AnalyzeHeartRate 心率分析
// hr >= 上限：偏离 > 20% 为 high，否则 warning；hr < 下限：medium
// 偏离 = |值 - 限值| / 限值 * 100，保留一位小数
func AnalyzeHeartRate(heartRate int, thresholds models.ThresholdSet) models.HeartRateResult {
	high := thresholds.HeartRateHigh
	low := thresholds.HeartRateLow
	learned := thresholds.IsLearned()
	value := float64(heartRate)

	result := models.HeartRateResult{
		DimensionResult: models.DimensionResult{
			Dimension: models.DimensionHeartRate,
			Severity:  models.SeverityNormal,
			Message:   "心率正常",
		},
		UsingBaseline: learned,
		BaselineRange: fmt.Sprintf("%.0f-%.0f", low, high),
	}

	switch {
	case value >= high:
		deviation := (value - high) / high * 100
		result.IsAnomaly = true
		result.Severity = models.SeverityWarning
		if deviation > heartRateHighDeviationPercent {
			result.Severity = models.SeverityHigh
		}
		if learned {
			result.Message = fmt.Sprintf("心率%dbpm，超出个人基线上限(%.0fbpm) %.0f%%", heartRate, high, deviation)
		} else {
			result.Message = fmt.Sprintf("心率偏高 (%dbpm)，建议关注是否为运动或情绪波动", heartRate)
		}
		result.DeviationPercent = roundedPercent(deviation)

	case value < low:
		deviation := (low - value) / low * 100
		result.IsAnomaly = true
		result.Severity = models.SeverityMedium
		if learned {
			result.Message = fmt.Sprintf("心率%dbpm，低于个人基线下限(%.0fbpm) %.0f%%", heartRate, low, deviation)
		} else {
			result.Message = fmt.Sprintf("心率偏低 (%dbpm)，若非睡眠时段请关注", heartRate)
		}
		result.DeviationPercent = roundedPercent(deviation)
	}

	return result
}

func roundedPercent(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}
