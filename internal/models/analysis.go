package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity 单维度严重程度，显式排序：normal < low < medium < warning < high
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityLow
	SeverityMedium
	SeverityWarning
	SeverityHigh
)

var severityNames = [...]string{"normal", "low", "medium", "warning", "high"}

func (s Severity) String() string {
	if s < SeverityNormal || s > SeverityHigh {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity 解析严重程度名称，未知名称返回错误（不默认为 normal）
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityNormal, fmt.Errorf("unknown severity: %q", name)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if s < SeverityNormal || s > SeverityHigh {
		return nil, fmt.Errorf("invalid severity: %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// OverallStatus 综合状态
type OverallStatus string

const (
	StatusSafe    OverallStatus = "safe"
	StatusWarning OverallStatus = "warning"
	StatusDanger  OverallStatus = "danger"
)

// RiskLevel 综合风险等级（与状态一一对应）
type RiskLevel string

const (
	RiskLow    RiskLevel = "低"
	RiskMedium RiskLevel = "中"
	RiskHigh   RiskLevel = "高"
)

// Dimension 分析维度
type Dimension string

const (
	DimensionHeartRate     Dimension = "heart_rate"
	DimensionBloodPressure Dimension = "blood_pressure"
	DimensionLocation      Dimension = "location"
	DimensionActivity      Dimension = "activity"
)

// 心率趋势
const (
	TrendStable  = "平稳"
	TrendRising  = "持续上升"
	TrendFalling = "持续下降"
)

// 活动标签
const (
	ActivityNormal         = "正常活动"
	ActivityNightAnomaly   = "夜间异常活动"
	ActivityMorningWorkout = "晨练时间"
	ActivityMiddayRest     = "午休时间"
)

// DimensionResult 单维度分析结果
type DimensionResult struct {
	Dimension        Dimension `json:"dimension"`
	IsAnomaly        bool      `json:"is_anomaly"`
	Severity         Severity  `json:"severity"`
	Message          string    `json:"message"`
	DeviationPercent *float64  `json:"deviation_percent,omitempty"`
}

// HeartRateResult 心率分析结果
type HeartRateResult struct {
	DimensionResult
	UsingBaseline bool   `json:"using_ai_baseline"`
	BaselineRange string `json:"baseline_range"` // "59-91"
}

// BloodPressureResult 血压分析结果
type BloodPressureResult struct {
	DimensionResult
}

// LocationResult 位置分析结果
type LocationResult struct {
	DimensionResult
	LocationName string `json:"location_name"`
}

// ActivityResult 作息/活动分析结果
type ActivityResult struct {
	DimensionResult
	Activity string `json:"activity"`
	Hour     int    `json:"hour"`
}

// AnalysisResult 一次评估的完整结果（不由引擎持久化）
type AnalysisResult struct {
	SubjectID  string    `json:"subject_id"`
	SampleTime time.Time `json:"sample_time"`

	HeartRate     HeartRateResult     `json:"heart_rate_analysis"`
	BloodPressure BloodPressureResult `json:"blood_pressure_analysis"`
	Location      LocationResult      `json:"location_analysis"`
	Activity      ActivityResult      `json:"activity_analysis"`

	OverallStatus OverallStatus `json:"overall_status"`
	OverallRisk   RiskLevel     `json:"overall_risk"`
	AnomalyCount  int           `json:"anomaly_count"`
	MaxSeverity   Severity      `json:"max_severity"`
	Message       string        `json:"summary_message"`

	Thresholds     ThresholdSet `json:"thresholds"`
	UsingBaseline  bool         `json:"using_ai_baseline"`
	HeartRateTrend string       `json:"hr_trend"` // 平稳 / 持续上升 / 持续下降

	// 以下字段由宿主在评估之后补充，不影响判定
	Comparison       *BaselineComparison `json:"comparison,omitempty"`
	Narrative        string              `json:"narrative,omitempty"`
	ZonesFingerprint string              `json:"zones_fingerprint,omitempty"` // 评估所用区域的指纹
	EvaluatedAt      time.Time           `json:"evaluated_at"`
}

// Dimensions 按固定顺序返回四个维度的结果
func (r *AnalysisResult) Dimensions() []DimensionResult {
	return []DimensionResult{
		r.HeartRate.DimensionResult,
		r.BloodPressure.DimensionResult,
		r.Location.DimensionResult,
		r.Activity.DimensionResult,
	}
}
