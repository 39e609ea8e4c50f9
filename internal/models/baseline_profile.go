package models

import "time"

// DataQuality 数据质量等级
type DataQuality string

const (
	DataQualityInsufficient DataQuality = "insufficient"
	DataQualityFair         DataQuality = "fair"
	DataQualityGood         DataQuality = "good"
	DataQualityExcellent    DataQuality = "excellent"
)

// BaselineProfile 个性化健康画像（对应 baseline_profiles 表，每个被监护人至多一条）
// 每次学习整体覆盖，不做增量合并
type BaselineProfile struct {
	SubjectID string `json:"subject_id" db:"subject_id"`

	// 心率基线
	LearnedHRLow  float64 `json:"learned_hr_low" db:"learned_hr_low"`
	LearnedHRHigh float64 `json:"learned_hr_high" db:"learned_hr_high"`
	LearnedHRMean float64 `json:"learned_hr_mean" db:"learned_hr_mean"`
	LearnedHRStd  float64 `json:"learned_hr_std" db:"learned_hr_std"`
	RestingHR     float64 `json:"resting_hr" db:"resting_hr"`
	ExerciseHRMax float64 `json:"exercise_hr_max" db:"exercise_hr_max"`

	// 血压基线（仅记录，不参与实时阈值）
	LearnedSystolicMean  float64 `json:"learned_systolic_mean" db:"learned_systolic_mean"`
	LearnedSystolicStd   float64 `json:"learned_systolic_std" db:"learned_systolic_std"`
	LearnedDiastolicMean float64 `json:"learned_diastolic_mean" db:"learned_diastolic_mean"`
	LearnedDiastolicStd  float64 `json:"learned_diastolic_std" db:"learned_diastolic_std"`

	// 活动模式
	WakeTime       string `json:"wake_time" db:"wake_time"`   // "06:30"
	SleepTime      string `json:"sleep_time" db:"sleep_time"` // "21:30"
	ActiveHours    []int  `json:"active_hours" db:"active_hours"`
	DailyStepsMean int    `json:"daily_steps_mean" db:"daily_steps_mean"`
	DailyStepsStd  int    `json:"daily_steps_std" db:"daily_steps_std"`

	// 位置习惯
	HomeStayRatio     float64  `json:"home_stay_ratio" db:"home_stay_ratio"`
	FrequentLocations []string `json:"frequent_locations" db:"frequent_locations"`
	OutdoorPreference string   `json:"outdoor_preference" db:"outdoor_preference"` // morning/afternoon/evening

	// 叙述字段
	HealthSummary      string   `json:"health_summary" db:"health_summary"`
	RiskFactors        []string `json:"risk_factors" db:"risk_factors"`
	PersonalizedAdvice []string `json:"personalized_advice" db:"personalized_advice"`

	ConfidenceScore float64     `json:"confidence_score" db:"confidence_score"` // 0-1
	DataQuality     DataQuality `json:"data_quality" db:"data_quality"`

	// 元数据
	LearningDays         int       `json:"learning_days" db:"learning_days"`
	TotalRecordsAnalyzed int       `json:"total_records_analyzed" db:"total_records_analyzed"`
	DaysWithData         int       `json:"days_with_data" db:"days_with_data"`
	Enriched             bool      `json:"enriched" db:"enriched"`
	LastLearningAt       time.Time `json:"last_learning_at" db:"last_learning_at"`
}

// BaselineContext 供叙述生成使用的基线上下文，没有画像时为默认值
type BaselineContext struct {
	HasProfile        bool    `json:"has_profile"`
	LearnedHRLow      float64 `json:"learned_hr_low"`
	LearnedHRHigh     float64 `json:"learned_hr_high"`
	LearnedHRMean     float64 `json:"learned_hr_mean"`
	RestingHR         float64 `json:"resting_hr"`
	DailyStepsMean    int     `json:"daily_steps_mean"`
	WakeTime          string  `json:"wake_time"`
	SleepTime         string  `json:"sleep_time"`
	OutdoorPreference string  `json:"outdoor_preference"`
	HomeStayRatio     float64 `json:"home_stay_ratio"`
	HealthSummary     string  `json:"health_summary,omitempty"`
	ConfidenceScore   float64 `json:"confidence_score"`
}

// NewBaselineContext 由画像构建上下文，profile 为 nil 时返回默认上下文
func NewBaselineContext(profile *BaselineProfile) BaselineContext {
	if profile == nil {
		return BaselineContext{
			HasProfile:        false,
			LearnedHRLow:      DefaultHeartRateLow,
			LearnedHRHigh:     DefaultHeartRateHigh,
			LearnedHRMean:     DefaultHeartRateMean,
			RestingHR:         65,
			DailyStepsMean:    5000,
			WakeTime:          "06:30",
			SleepTime:         "21:30",
			OutdoorPreference: "morning",
			HomeStayRatio:     0.7,
			ConfidenceScore:   0,
		}
	}
	return BaselineContext{
		HasProfile:        true,
		LearnedHRLow:      profile.LearnedHRLow,
		LearnedHRHigh:     profile.LearnedHRHigh,
		LearnedHRMean:     profile.LearnedHRMean,
		RestingHR:         profile.RestingHR,
		DailyStepsMean:    profile.DailyStepsMean,
		WakeTime:          profile.WakeTime,
		SleepTime:         profile.SleepTime,
		OutdoorPreference: profile.OutdoorPreference,
		HomeStayRatio:     profile.HomeStayRatio,
		HealthSummary:     profile.HealthSummary,
		ConfidenceScore:   profile.ConfidenceScore,
	}
}

// BaselineComparison 当前数据与个人基线的对比
type BaselineComparison struct {
	HasProfile bool `json:"has_profile"`

	HeartRate                 int     `json:"heart_rate"`
	HeartRateStatus           string  `json:"heart_rate_status"` // 偏低 / 偏高 / 正常
	HeartRateDeviationPercent float64 `json:"heart_rate_deviation_percent"`
	HeartRateDescription      string  `json:"heart_rate_description"`

	Steps                 int     `json:"steps"`
	ExpectedSteps         float64 `json:"expected_steps"`
	StepsDeviationPercent float64 `json:"steps_deviation_percent"`
	StepsDescription      string  `json:"steps_description"`

	Message string `json:"message,omitempty"`
}
