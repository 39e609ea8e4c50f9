package baseline

import (
	"fmt"

	"wisefido-guardian/internal/models"
)

// 心率与基线对比状态
const (
	StatusBelow  = "偏低"
	StatusAbove  = "偏高"
	StatusNormal = "正常"
)

// HeartRateDeviation 心率相对基线范围的偏离状态与百分比（未四舍五入）
func HeartRateDeviation(heartRate int, low, high float64) (string, float64) {
	hr := float64(heartRate)
	switch {
	case hr < low && low > 0:
		return StatusBelow, (low - hr) / low * 100
	case hr > high && high > 0:
		return StatusAbove, (hr - high) / high * 100
	default:
		return StatusNormal, 0
	}
}

// Compare 当前样本与个人基线对比，hour 为样本所在时区的小时
// 预期步数按当日已过时间折算：日均步数 * hour / 24
func Compare(profile *models.BaselineProfile, sample models.Sample, hour int) models.BaselineComparison {
	comparison := models.BaselineComparison{
		HeartRate: sample.HeartRate,
		Steps:     sample.Steps,
	}

	if profile == nil {
		comparison.HeartRateStatus = StatusNormal
		comparison.Message = "尚未建立个人健康画像，建议触发基线学习以获得个性化分析"
		return comparison
	}
	comparison.HasProfile = true

	status, deviation := HeartRateDeviation(sample.HeartRate, profile.LearnedHRLow, profile.LearnedHRHigh)
	comparison.HeartRateStatus = status
	comparison.HeartRateDeviationPercent = round1(deviation)
	comparison.HeartRateDescription = fmt.Sprintf("当前%dbpm，个人正常范围%.0f-%.0fbpm",
		sample.HeartRate, profile.LearnedHRLow, profile.LearnedHRHigh)

	if profile.DailyStepsMean > 0 {
		expected := float64(profile.DailyStepsMean) * float64(hour) / 24
		comparison.ExpectedSteps = round1(expected)
		if expected > 0 {
			comparison.StepsDeviationPercent = round1((float64(sample.Steps) - expected) / expected * 100)
		}
	}
	comparison.StepsDescription = fmt.Sprintf("今日%d步，日均%d步", sample.Steps, profile.DailyStepsMean)

	return comparison
}
