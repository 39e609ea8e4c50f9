package evaluator

import (
	"strings"

	"wisefido-guardian/internal/models"
)

// 汇总文案
const (
	messageForcedDanger  = "检测到多项生理指标异常，系统判定为高风险状态，请立即确认老人安全！"
	messageForcedWarning = "检测到部分指标轻微偏离正常范围，建议保持关注。"
	messageSafeMorning   = "父亲正在公园进行日常晨练，各项指标正常。"
	messageSafeMidday    = "当前为午休时段，老人心率平稳，处于休息状态。"
	messageSafeGeneric   = "目前各项生命体征平稳，老人状态安详。"
)

// Aggregate 多维度综合判定
// 最高严重度 >= high 或异常数 >= 2 为 danger，>= medium 为 warning，否则 safe
func Aggregate(result *models.AnalysisResult) {
	dimensions := result.Dimensions()

	maxSeverity := models.SeverityNormal
	anomalyCount := 0
	var messages []string
	for _, d := range dimensions {
		if d.Severity > maxSeverity {
			maxSeverity = d.Severity
		}
		if d.IsAnomaly {
			anomalyCount++
			messages = append(messages, d.Message)
		}
	}

	result.MaxSeverity = maxSeverity
	result.AnomalyCount = anomalyCount

	switch {
	case maxSeverity >= models.SeverityHigh || anomalyCount >= 2:
		result.OverallStatus = models.StatusDanger
		result.OverallRisk = models.RiskHigh
	case maxSeverity >= models.SeverityMedium:
		result.OverallStatus = models.StatusWarning
		result.OverallRisk = models.RiskMedium
	default:
		result.OverallStatus = models.StatusSafe
		result.OverallRisk = models.RiskLow
	}

	if len(messages) == 0 {
		// 非 safe 状态必须给出解释
		switch result.OverallStatus {
		case models.StatusDanger:
			messages = append(messages, messageForcedDanger)
		case models.StatusWarning:
			messages = append(messages, messageForcedWarning)
		default:
			messages = append(messages, safeMessage(result.Activity.Activity))
		}
	}

	result.Message = strings.Join(messages, " ")
}

func safeMessage(activity string) string {
	switch activity {
	case models.ActivityMorningWorkout:
		return messageSafeMorning
	case models.ActivityMiddayRest:
		return messageSafeMidday
	default:
		return messageSafeGeneric
	}
}
