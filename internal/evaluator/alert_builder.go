package evaluator

import (
	"encoding/json"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"github.com/google/uuid"
)

// AlertEventBuilder 告警事件构建器
type AlertEventBuilder struct {
	tenantID string
	now      func() time.Time
}

// NewAlertEventBuilder 创建告警事件构建器
func NewAlertEventBuilder(tenantID string) *AlertEventBuilder {
	return &AlertEventBuilder{
		tenantID: tenantID,
		now:      time.Now,
	}
}

// BuildAlertEvent 由非 safe 的评估结果构建告警事件，safe 结果返回 nil
// 描述优先使用叙述文本，没有时使用判定文案
func (b *AlertEventBuilder) BuildAlertEvent(sample models.Sample, result *models.AnalysisResult) (*models.AlertEvent, error) {
	if result == nil || result.OverallStatus == models.StatusSafe {
		return nil, nil
	}

	triggerData := BuildTriggerData(sample, result)
	triggerDataJSON, err := json.Marshal(triggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	description := result.Message
	if result.Narrative != "" {
		description = result.Narrative
	}

	var sampleID *int64
	if sample.SampleID != 0 {
		id := sample.SampleID
		sampleID = &id
	}

	now := b.now()
	event := &models.AlertEvent{
		EventID:     uuid.New().String(),
		TenantID:    b.tenantID,
		SubjectID:   result.SubjectID,
		SampleID:    sampleID,
		AlertType:   models.AlertTypeAnomalyDetection,
		Severity:    result.MaxSeverity.String(),
		OverallRisk: string(result.OverallRisk),
		Description: description,
		Status:      models.AlertStatusPending,
		TriggerData: string(triggerDataJSON),
		TriggeredAt: sample.RecordedAt,
		CreatedAt:   now,
	}

	return event, nil
}

// BuildTriggerData 构建触发数据快照
func BuildTriggerData(sample models.Sample, result *models.AnalysisResult) *models.TriggerData {
	dimensions := make([]string, 0, result.AnomalyCount)
	for _, d := range result.Dimensions() {
		if d.IsAnomaly {
			dimensions = append(dimensions, string(d.Dimension))
		}
	}

	return &models.TriggerData{
		HeartRate:     sample.HeartRate,
		SystolicBP:    sample.SystolicBP,
		DiastolicBP:   sample.DiastolicBP,
		Steps:         sample.Steps,
		Latitude:      sample.Latitude,
		Longitude:     sample.Longitude,
		LocationName:  result.Location.LocationName,
		Activity:      result.Activity.Activity,
		AnomalyCount:  result.AnomalyCount,
		Dimensions:    dimensions,
		Provenance:    result.Thresholds.Provenance,
		ThresholdLow:  result.Thresholds.HeartRateLow,
		ThresholdHigh: result.Thresholds.HeartRateHigh,
	}
}
