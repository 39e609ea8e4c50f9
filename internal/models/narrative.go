package models

// NarrativePayload 交给叙述生成服务的固定结构（字段顺序固定，序列化结果确定）
type NarrativePayload struct {
	SubjectID   string `json:"-"`
	SubjectName string `json:"subject_name"`
	Hour        int    `json:"current_hour"`

	Current    NarrativeCurrent `json:"current"`
	Baseline   BaselineContext  `json:"baseline"`
	Thresholds ThresholdSet     `json:"thresholds"` // 判定时生效的阈值

	HeartRateDeviationPercent float64 `json:"hr_deviation_percent"`
	LocationStatus            string  `json:"location_status"` // 正常 / 偏离常规区域
	HeartRateTrend            string  `json:"hr_trend"`        // 平稳 / 持续上升 / 持续下降

	HeartRate     DimensionResult `json:"heart_rate"`
	BloodPressure DimensionResult `json:"blood_pressure"`
	Location      DimensionResult `json:"location"`
	Activity      DimensionResult `json:"activity"`

	OverallStatus OverallStatus `json:"overall_status"`
	OverallRisk   RiskLevel     `json:"overall_risk"`
	AnomalyCount  int           `json:"anomaly_count"`
	Message       string        `json:"summary_message"`
}

// NarrativeCurrent 当前实时数据
type NarrativeCurrent struct {
	HeartRate   int    `json:"heart_rate"`
	SystolicBP  int    `json:"systolic_bp"`
	DiastolicBP int    `json:"diastolic_bp"`
	Steps       int    `json:"steps"`
	Location    string `json:"location"`
	Activity    string `json:"activity"`
}

// BaselineSummary 交给画像增强服务的统计摘要
type BaselineSummary struct {
	SubjectName       string   `json:"subject_name"`
	Days              int      `json:"days"`
	TotalRecords      int      `json:"total_records"`
	DaysWithData      int      `json:"days_with_data"`
	HRMean            float64  `json:"hr_mean"`
	HRMin             int      `json:"hr_min"`
	HRMax             int      `json:"hr_max"`
	HRStd             float64  `json:"hr_std"`
	SystolicMean      float64  `json:"systolic_mean"`
	SystolicMin       int      `json:"systolic_min"`
	SystolicMax       int      `json:"systolic_max"`
	SystolicStd       float64  `json:"systolic_std"`
	DiastolicMean     float64  `json:"diastolic_mean"`
	DiastolicStd      float64  `json:"diastolic_std"`
	StepsMean         int      `json:"steps_mean"`
	StepsStd          int      `json:"steps_std"`
	ActiveHours       []int    `json:"active_hours"`
	HomeRatio         float64  `json:"home_ratio"`
	FrequentLocations []string `json:"frequent_locations"`
}

// BaselineEnrichment 画像增强服务返回的字段，nil 表示未提供，回退到确定性推导
type BaselineEnrichment struct {
	LearnedHRLow       *float64 `json:"learned_hr_low,omitempty"`
	LearnedHRHigh      *float64 `json:"learned_hr_high,omitempty"`
	RestingHR          *float64 `json:"resting_hr,omitempty"`
	ExerciseHRMax      *float64 `json:"exercise_hr_max,omitempty"`
	WakeTime           *string  `json:"wake_time,omitempty"`
	SleepTime          *string  `json:"sleep_time,omitempty"`
	OutdoorPreference  *string  `json:"outdoor_preference,omitempty"`
	HealthSummary      *string  `json:"health_summary,omitempty"`
	RiskFactors        []string `json:"risk_factors,omitempty"`
	PersonalizedAdvice []string `json:"personalized_advice,omitempty"`
	ConfidenceScore    *float64 `json:"confidence_score,omitempty"`
}
