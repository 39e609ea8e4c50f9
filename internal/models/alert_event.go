package models

import (
	"time"
)

// 告警类型与状态
const (
	AlertTypeAnomalyDetection = "anomaly_detection"

	AlertStatusPending      = "pending"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// AlertEvent 告警事件（对应 guardian_alerts 表）
type AlertEvent struct {
	EventID     string     `json:"event_id" db:"event_id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	SubjectID   string     `json:"subject_id" db:"subject_id"`
	SampleID    *int64     `json:"sample_id,omitempty" db:"sample_id"`
	AlertType   string     `json:"alert_type" db:"alert_type"`     // anomaly_detection
	Severity    string     `json:"severity" db:"severity"`         // normal/low/medium/warning/high
	OverallRisk string     `json:"overall_risk" db:"overall_risk"` // 低/中/高
	Description string     `json:"description" db:"description"`
	Status      string     `json:"status" db:"status"`             // pending, acknowledged, resolved
	TriggerData string     `json:"trigger_data" db:"trigger_data"` // JSONB
	TriggeredAt time.Time  `json:"triggered_at" db:"triggered_at"`
	HandledBy   *string    `json:"handled_by,omitempty" db:"handled_by"`
	HandledAt   *time.Time `json:"handled_at,omitempty" db:"handled_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// TriggerData 触发时的数据快照（JSONB 结构）
type TriggerData struct {
	HeartRate     int        `json:"heart_rate"`
	SystolicBP    int        `json:"systolic_bp"`
	DiastolicBP   int        `json:"diastolic_bp"`
	Steps         int        `json:"steps"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	LocationName  string     `json:"location_name"`
	Activity      string     `json:"activity"`
	AnomalyCount  int        `json:"anomaly_count"`
	Dimensions    []string   `json:"dimensions"`
	Provenance    Provenance `json:"provenance"`
	ThresholdLow  float64    `json:"threshold_low"`
	ThresholdHigh float64    `json:"threshold_high"`
}
