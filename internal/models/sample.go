package models

import (
	"time"

	"wisefido-guardian/internal/apperrors"
)

// Point WGS84 坐标点
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Sample 一次健康/位置/活动观测（对应 health_samples 表，只读）
type Sample struct {
	SampleID    int64     `json:"sample_id" db:"sample_id"`
	SubjectID   string    `json:"subject_id" db:"subject_id"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"` // UTC
	HeartRate   int       `json:"heart_rate" db:"heart_rate"`     // bpm
	SystolicBP  int       `json:"systolic_bp" db:"systolic_bp"`   // mmHg
	DiastolicBP int       `json:"diastolic_bp" db:"diastolic_bp"` // mmHg
	Steps       int       `json:"steps" db:"steps"`               // 当日累计步数
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
}

// Point 返回样本位置
func (s Sample) Point() Point {
	return Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Validate 采集边界校验（与设备上报接口的校验规则一致）
func (s Sample) Validate() error {
	if s.HeartRate < 20 || s.HeartRate > 250 {
		return apperrors.Validation("heart_rate", "Heart rate must be between 20 and 250 bpm")
	}
	if s.SystolicBP < 60 || s.SystolicBP > 250 {
		return apperrors.Validation("systolic_bp", "Systolic blood pressure must be between 60 and 250 mmHg")
	}
	if s.DiastolicBP < 40 || s.DiastolicBP > 150 {
		return apperrors.Validation("diastolic_bp", "Diastolic blood pressure must be between 40 and 150 mmHg")
	}
	if s.DiastolicBP >= s.SystolicBP {
		return apperrors.Validation("diastolic_bp", "Diastolic BP must be less than systolic BP")
	}
	if s.Steps < 0 {
		return apperrors.Validation("steps", "Steps cannot be negative")
	}
	if s.Steps > 100000 {
		return apperrors.Validation("steps", "Steps seem unrealistically high (>100000)")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return apperrors.Validation("latitude", "Latitude must be between -90 and 90")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return apperrors.Validation("longitude", "Longitude must be between -180 and 180")
	}
	return nil
}

// Subject 被监护人
type Subject struct {
	SubjectID   string `json:"subject_id" db:"subject_id"`
	TenantID    string `json:"tenant_id" db:"tenant_id"`
	DisplayName string `json:"display_name" db:"display_name"`
	Active      bool   `json:"active" db:"active"`
}
