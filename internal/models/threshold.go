package models

import (
	"time"

	"wisefido-guardian/internal/apperrors"
)

// 默认阈值
const (
	DefaultHeartRateHigh = 100
	DefaultHeartRateLow  = 50
	DefaultHeartRateMean = 72
	DefaultSystolicHigh  = 140
	DefaultSystolicLow   = 90
	DefaultDiastolicHigh = 90
)

// Provenance 阈值来源层级
type Provenance string

const (
	ProvenanceLearned Provenance = "learned" // 个人基线（AI/统计学习）
	ProvenanceManual  Provenance = "manual"  // 监护人手动设置
	ProvenanceDefault Provenance = "default" // 系统默认
)

// ThresholdSettings 手动阈值设置（对应 threshold_settings 表）
// 只有心率与收缩压可配置，舒张压上限始终使用默认值
type ThresholdSettings struct {
	SubjectID           string    `json:"subject_id" db:"subject_id"`
	HeartRateHigh       int       `json:"heart_rate_threshold_high" db:"heart_rate_threshold_high"`
	HeartRateLow        int       `json:"heart_rate_threshold_low" db:"heart_rate_threshold_low"`
	SystolicHigh        int       `json:"systolic_bp_threshold_high" db:"systolic_bp_threshold_high"`
	SystolicLow         int       `json:"systolic_bp_threshold_low" db:"systolic_bp_threshold_low"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	EmergencyContact    *string   `json:"emergency_contact,omitempty" db:"emergency_contact"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultThresholdSettings 默认设置
func DefaultThresholdSettings(subjectID string) ThresholdSettings {
	return ThresholdSettings{
		SubjectID:           subjectID,
		HeartRateHigh:       DefaultHeartRateHigh,
		HeartRateLow:        DefaultHeartRateLow,
		SystolicHigh:        DefaultSystolicHigh,
		SystolicLow:         DefaultSystolicLow,
		NotificationEnabled: true,
	}
}

// Validate 设置边界校验：超出范围或上下限颠倒直接拒绝，不做截断
func (s ThresholdSettings) Validate() error {
	if s.HeartRateHigh < 60 || s.HeartRateHigh > 200 {
		return apperrors.Validation("heart_rate_threshold_high", "心率上限应在60-200之间")
	}
	if s.HeartRateLow < 30 || s.HeartRateLow > 100 {
		return apperrors.Validation("heart_rate_threshold_low", "心率下限应在30-100之间")
	}
	if s.SystolicHigh < 100 || s.SystolicHigh > 200 {
		return apperrors.Validation("systolic_bp_threshold_high", "收缩压上限应在100-200之间")
	}
	if s.SystolicLow < 70 || s.SystolicLow > 120 {
		return apperrors.Validation("systolic_bp_threshold_low", "收缩压下限应在70-120之间")
	}
	if s.HeartRateLow >= s.HeartRateHigh {
		return apperrors.Validation("heart_rate_threshold_low", "心率下限必须小于上限")
	}
	if s.SystolicLow >= s.SystolicHigh {
		return apperrors.Validation("systolic_bp_threshold_low", "血压下限必须小于上限")
	}
	return nil
}

// ThresholdSet 评估时生效的阈值（每次评估现算，不持久化）
type ThresholdSet struct {
	HeartRateLow  float64    `json:"heart_rate_low"`
	HeartRateHigh float64    `json:"heart_rate_high"`
	HeartRateMean float64    `json:"heart_rate_mean"`
	SystolicHigh  int        `json:"systolic_high"`
	SystolicLow   int        `json:"systolic_low"`
	DiastolicHigh int        `json:"diastolic_high"`
	Provenance    Provenance `json:"provenance"` // 心率阈值来源

	// 血压阈值只来自手动设置或默认值，与心率来源分开记录
	BloodPressureProvenance Provenance `json:"blood_pressure_provenance"`
}

// DefaultThresholdSet 默认阈值
func DefaultThresholdSet() ThresholdSet {
	return ThresholdSet{
		HeartRateLow:            DefaultHeartRateLow,
		HeartRateHigh:           DefaultHeartRateHigh,
		HeartRateMean:           DefaultHeartRateMean,
		SystolicHigh:            DefaultSystolicHigh,
		SystolicLow:             DefaultSystolicLow,
		DiastolicHigh:           DefaultDiastolicHigh,
		Provenance:              ProvenanceDefault,
		BloodPressureProvenance: ProvenanceDefault,
	}
}

// IsLearned 心率阈值是否来自个人基线
func (t ThresholdSet) IsLearned() bool {
	return t.Provenance == ProvenanceLearned
}
