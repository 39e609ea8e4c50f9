package evaluator

import (
	"wisefido-guardian/internal/models"
)

// trendWindow 趋势判断使用的最近样本数
const trendWindow = 3

// HeartRateTrend 根据最近三条样本判断心率趋势，history 按时间倒序（最新在前）
// 最新 > 次新 > 第三条为持续上升，反之为持续下降，否则平稳
func HeartRateTrend(history []models.Sample) string {
	if len(history) < trendWindow {
		return models.TrendStable
	}

	recent := history[:trendWindow]
	rising, falling := true, true
	for i := 0; i < trendWindow-1; i++ {
		if recent[i].HeartRate <= recent[i+1].HeartRate {
			rising = false
		}
		if recent[i].HeartRate >= recent[i+1].HeartRate {
			falling = false
		}
	}

	switch {
	case rising:
		return models.TrendRising
	case falling:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}
