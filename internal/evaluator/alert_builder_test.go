package evaluator

import (
	"encoding/json"
	"testing"
	"time"

	"wisefido-guardian/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAlertEventBuilder_BuildAlertEvent(t *testing.T) {
	builder := NewAlertEventBuilder("tenant-123")
	fixed := time.Date(2026, 10, 1, 10, 0, 5, 0, time.UTC)
	builder.now = func() time.Time { return fixed }

	sample := sampleAt(10, 125, 2000)
	sample.Latitude = 30.3500
	sample.Longitude = 120.2500
	result := NewEvaluator(time.UTC, zap.NewNop()).Evaluate(sample, nil, testZones, models.DefaultThresholdSet())

	event, err := builder.BuildAlertEvent(sample, &result)

	require.NoError(t, err)
	require.NotNil(t, event)
	_, err = uuid.Parse(event.EventID)
	assert.NoError(t, err)
	assert.Equal(t, "tenant-123", event.TenantID)
	assert.Equal(t, "s-1", event.SubjectID)
	require.NotNil(t, event.SampleID)
	assert.Equal(t, int64(1), *event.SampleID)
	assert.Equal(t, models.AlertTypeAnomalyDetection, event.AlertType)
	assert.Equal(t, "high", event.Severity)
	assert.Equal(t, "高", event.OverallRisk)
	assert.Equal(t, models.AlertStatusPending, event.Status)
	assert.Equal(t, result.Message, event.Description)
	assert.Equal(t, sample.RecordedAt, event.TriggeredAt)
	assert.Equal(t, fixed, event.CreatedAt)

	// 验证 trigger_data 序列化
	var triggerData models.TriggerData
	require.NoError(t, json.Unmarshal([]byte(event.TriggerData), &triggerData))
	assert.Equal(t, 125, triggerData.HeartRate)
	assert.Equal(t, models.UnknownZoneName, triggerData.LocationName)
	assert.Equal(t, 2, triggerData.AnomalyCount)
	assert.Equal(t, []string{"heart_rate", "location"}, triggerData.Dimensions)
	assert.Equal(t, models.ProvenanceDefault, triggerData.Provenance)
}

func TestAlertEventBuilder_NarrativeBecomesDescription(t *testing.T) {
	builder := NewAlertEventBuilder("tenant-123")

	sample := sampleAt(2, 90, 150)
	result := NewEvaluator(time.UTC, zap.NewNop()).Evaluate(sample, nil, testZones, models.DefaultThresholdSet())
	result.Narrative = "夜间活动较多，可能睡眠不佳。"

	event, err := builder.BuildAlertEvent(sample, &result)

	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "warning", event.Severity)
	assert.Equal(t, "夜间活动较多，可能睡眠不佳。", event.Description)
}

func TestAlertEventBuilder_SafeResultHasNoAlert(t *testing.T) {
	builder := NewAlertEventBuilder("tenant-123")

	sample := sampleAt(16, 75, 100)
	result := NewEvaluator(time.UTC, zap.NewNop()).Evaluate(sample, nil, testZones, models.DefaultThresholdSet())

	event, err := builder.BuildAlertEvent(sample, &result)
	assert.NoError(t, err)
	assert.Nil(t, event)

	event, err = builder.BuildAlertEvent(sample, nil)
	assert.NoError(t, err)
	assert.Nil(t, event)
}
