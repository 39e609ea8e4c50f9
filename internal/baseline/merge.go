package baseline

import (
	"strings"
	"time"

	"wisefido-guardian/internal/models"
)

// MergeResult 增强字段合并结果
type MergeResult struct {
	Accepted []string
	Rejected []string
}

func (m *MergeResult) accept(field string) { m.Accepted = append(m.Accepted, field) }
func (m *MergeResult) reject(field string) { m.Rejected = append(m.Rejected, field) }

// MergeEnrichment 逐字段把增强结果合并到确定性画像上，不合法的字段忽略
func MergeEnrichment(profile *models.BaselineProfile, e *models.BaselineEnrichment) MergeResult {
	var result MergeResult
	if profile == nil || e == nil {
		return result
	}

	// 心率范围需要整体合法
	low, high := profile.LearnedHRLow, profile.LearnedHRHigh
	lowOK := e.LearnedHRLow != nil && inRange(*e.LearnedHRLow, 30, 200)
	highOK := e.LearnedHRHigh != nil && inRange(*e.LearnedHRHigh, 30, 200)
	if lowOK {
		low = *e.LearnedHRLow
	} else if e.LearnedHRLow != nil {
		result.reject("learned_hr_low")
	}
	if highOK {
		high = *e.LearnedHRHigh
	} else if e.LearnedHRHigh != nil {
		result.reject("learned_hr_high")
	}
	if (lowOK || highOK) && low < high {
		profile.LearnedHRLow, profile.LearnedHRHigh = low, high
		if lowOK {
			result.accept("learned_hr_low")
		}
		if highOK {
			result.accept("learned_hr_high")
		}
	} else if lowOK || highOK {
		if lowOK {
			result.reject("learned_hr_low")
		}
		if highOK {
			result.reject("learned_hr_high")
		}
	}

	if e.RestingHR != nil {
		if inRange(*e.RestingHR, 30, 200) {
			profile.RestingHR = *e.RestingHR
			result.accept("resting_hr")
		} else {
			result.reject("resting_hr")
		}
	}

	if e.ExerciseHRMax != nil {
		if inRange(*e.ExerciseHRMax, 60, 250) {
			profile.ExerciseHRMax = *e.ExerciseHRMax
			result.accept("exercise_hr_max")
		} else {
			result.reject("exercise_hr_max")
		}
	}

	if e.WakeTime != nil {
		if validClock(*e.WakeTime) {
			profile.WakeTime = *e.WakeTime
			result.accept("wake_time")
		} else {
			result.reject("wake_time")
		}
	}

	if e.SleepTime != nil {
		if validClock(*e.SleepTime) {
			profile.SleepTime = *e.SleepTime
			result.accept("sleep_time")
		} else {
			result.reject("sleep_time")
		}
	}

	if e.OutdoorPreference != nil {
		switch *e.OutdoorPreference {
		case "morning", "afternoon", "evening":
			profile.OutdoorPreference = *e.OutdoorPreference
			result.accept("outdoor_preference")
		default:
			result.reject("outdoor_preference")
		}
	}

	if e.HealthSummary != nil {
		if summary := strings.TrimSpace(*e.HealthSummary); summary != "" {
			profile.HealthSummary = summary
			result.accept("health_summary")
		} else {
			result.reject("health_summary")
		}
	}

	if e.RiskFactors != nil {
		profile.RiskFactors = nonEmpty(e.RiskFactors)
		result.accept("risk_factors")
	}

	if e.PersonalizedAdvice != nil {
		profile.PersonalizedAdvice = nonEmpty(e.PersonalizedAdvice)
		result.accept("personalized_advice")
	}

	if e.ConfidenceScore != nil {
		if inRange(*e.ConfidenceScore, 0, 1) {
			profile.ConfidenceScore = *e.ConfidenceScore
			result.accept("confidence_score")
		} else {
			result.reject("confidence_score")
		}
	}

	return result
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
