package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var sampleRowColumns = []string{
	"sample_id", "subject_id", "recorded_at", "heart_rate", "systolic_bp",
	"diastolic_bp", "steps", "latitude", "longitude",
}

// ============================================
// 被监护人
// ============================================

func TestListActiveSubjects(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubjectRepository(db, zap.NewNop())

	tenantID := uuid.New().String()
	rows := sqlmock.NewRows([]string{"subject_id", "tenant_id", "display_name", "active"}).
		AddRow("s-1", tenantID, "张大爷", true).
		AddRow("s-2", tenantID, "李奶奶", true)

	mock.ExpectQuery(`SELECT subject_id, tenant_id, display_name, active\s+FROM subjects`).
		WithArgs(tenantID, 50).
		WillReturnRows(rows)

	subjects, err := repo.ListActiveSubjects(context.Background(), tenantID, 50)

	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "张大爷", subjects[0].DisplayName)
	assert.Equal(t, "s-2", subjects[1].SubjectID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveSubjects_InvalidTenantID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubjectRepository(db, zap.NewNop())

	_, err := repo.ListActiveSubjects(context.Background(), "", 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tenant_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubject(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubjectRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM subjects`).
		WithArgs("s-1", "tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "tenant_id", "display_name", "active"}).
			AddRow("s-1", "tenant-1", "张大爷", true))

	subject, err := repo.GetSubject(context.Background(), "tenant-1", "s-1")

	require.NoError(t, err)
	assert.Equal(t, "张大爷", subject.DisplayName)
	assert.True(t, subject.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubject_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubjectRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM subjects`).
		WithArgs("s-9", "tenant-1").
		WillReturnError(sql.ErrNoRows)

	subject, err := repo.GetSubject(context.Background(), "tenant-1", "s-9")

	assert.Nil(t, subject)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 样本
// ============================================

func TestGetLatestSample(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSampleRepository(db, zap.NewNop())

	recordedAt := time.Date(2024, 3, 1, 8, 30, 0, 0, time.FixedZone("CST", 8*3600))
	mock.ExpectQuery(`FROM health_samples`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(sampleRowColumns).
			AddRow(int64(42), "s-1", recordedAt, 95, 120, 80, 1500, 30.2741, 120.1551))

	sample, err := repo.GetLatestSample(context.Background(), "s-1")

	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.Equal(t, int64(42), sample.SampleID)
	assert.Equal(t, 95, sample.HeartRate)
	assert.Equal(t, time.UTC, sample.RecordedAt.Location())
	assert.True(t, recordedAt.Equal(sample.RecordedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestSample_NoRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSampleRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM health_samples`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(sampleRowColumns))

	sample, err := repo.GetLatestSample(context.Background(), "s-1")

	require.NoError(t, err)
	assert.Nil(t, sample)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentSamples(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSampleRepository(db, zap.NewNop())

	now := time.Now().UTC()
	mock.ExpectQuery(`ORDER BY recorded_at DESC\s+LIMIT \$2`).
		WithArgs("s-1", 3).
		WillReturnRows(sqlmock.NewRows(sampleRowColumns).
			AddRow(int64(3), "s-1", now, 90, 120, 80, 100, 30.27, 120.15).
			AddRow(int64(2), "s-1", now.Add(-time.Minute), 85, 120, 80, 100, 30.27, 120.15).
			AddRow(int64(1), "s-1", now.Add(-2*time.Minute), 80, 120, 80, 100, 30.27, 120.15))

	samples, err := repo.ListRecentSamples(context.Background(), "s-1", 3)

	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 90, samples[0].HeartRate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSamplesSince_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSampleRepository(db, zap.NewNop())

	since := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectQuery(`recorded_at >= \$2`).
		WithArgs("s-1", since).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListSamplesSince(context.Background(), "s-1", since)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query samples")
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 安全区域
// ============================================

func TestListActiveZones_SkipsInvalidRadius(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewZoneRepository(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{"zone_id", "subject_id", "zone_name", "latitude", "longitude", "radius", "is_active", "priority"}).
		AddRow("z-1", "s-1", "家", 30.2741, 120.1551, 200.0, true, 0).
		AddRow("z-2", "s-1", "坏数据", 30.2741, 120.1551, 0.0, true, 1).
		AddRow("z-3", "s-1", "幸福社区公园", 30.2761, 120.1581, 300.0, true, 2)

	mock.ExpectQuery(`FROM safe_zones`).WithArgs("s-1").WillReturnRows(rows)

	zones, err := repo.ListActiveZones(context.Background(), "s-1")

	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "家", zones[0].Name)
	assert.Equal(t, "幸福社区公园", zones[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 手动设置
// ============================================

func TestGetSettings(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSettingsRepository(db, zap.NewNop())

	updatedAt := time.Now()
	mock.ExpectQuery(`FROM threshold_settings`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"subject_id", "heart_rate_threshold_high", "heart_rate_threshold_low",
			"systolic_bp_threshold_high", "systolic_bp_threshold_low",
			"notification_enabled", "emergency_contact", "updated_at",
		}).AddRow("s-1", 110, 55, 150, 95, true, "13800000000", updatedAt))

	settings, err := repo.GetSettings(context.Background(), "s-1")

	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, 110, settings.HeartRateHigh)
	assert.Equal(t, 55, settings.HeartRateLow)
	require.NotNil(t, settings.EmergencyContact)
	assert.Equal(t, "13800000000", *settings.EmergencyContact)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettings_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSettingsRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM threshold_settings`).
		WithArgs("s-1").
		WillReturnError(sql.ErrNoRows)

	settings, err := repo.GetSettings(context.Background(), "s-1")

	require.NoError(t, err)
	assert.Nil(t, settings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSettings(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSettingsRepository(db, zap.NewNop())

	now := time.Now()
	settings := models.DefaultThresholdSettings("s-1")
	settings.UpdatedAt = now

	mock.ExpectExec(`INSERT INTO threshold_settings`).
		WithArgs("s-1", 100, 50, 140, 90, true, nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertSettings(context.Background(), &settings))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSettings(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSettingsRepository(db, zap.NewNop())

	mock.ExpectExec(`DELETE FROM threshold_settings`).
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteSettings(context.Background(), "s-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 画像
// ============================================

var profileRowColumns = []string{
	"subject_id",
	"learned_hr_low", "learned_hr_high", "learned_hr_mean", "learned_hr_std",
	"resting_hr", "exercise_hr_max",
	"learned_systolic_mean", "learned_systolic_std",
	"learned_diastolic_mean", "learned_diastolic_std",
	"wake_time", "sleep_time", "active_hours",
	"daily_steps_mean", "daily_steps_std",
	"home_stay_ratio", "frequent_locations", "outdoor_preference",
	"health_summary", "risk_factors", "personalized_advice",
	"confidence_score", "data_quality",
	"learning_days", "total_records_analyzed", "days_with_data",
	"enriched", "last_learning_at",
}

func TestGetProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db, zap.NewNop())

	learnedAt := time.Now()
	mock.ExpectQuery(`FROM baseline_profiles`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow(
			"s-1",
			59.0, 91.0, 75.0, 8.0,
			65.0, 121.0,
			125.0, 6.0,
			80.0, 4.0,
			"06:30", "21:30", "{8,9,20}",
			3500, 707,
			0.75, "{家,幸福社区公园}", "morning",
			"总体平稳", "{}", "{多喝水}",
			0.8, "good",
			30, 240, 14,
			true, learnedAt,
		))

	profile, err := repo.GetProfile(context.Background(), "s-1")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 59.0, profile.LearnedHRLow)
	assert.Equal(t, 91.0, profile.LearnedHRHigh)
	assert.Equal(t, []int{8, 9, 20}, profile.ActiveHours)
	assert.Equal(t, []string{"家", "幸福社区公园"}, profile.FrequentLocations)
	assert.Empty(t, profile.RiskFactors)
	assert.Equal(t, []string{"多喝水"}, profile.PersonalizedAdvice)
	assert.Equal(t, models.DataQualityGood, profile.DataQuality)
	assert.True(t, profile.Enriched)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM baseline_profiles`).
		WithArgs("s-1").
		WillReturnError(sql.ErrNoRows)

	profile, err := repo.GetProfile(context.Background(), "s-1")

	require.NoError(t, err)
	assert.Nil(t, profile)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db, zap.NewNop())

	profile := &models.BaselineProfile{
		SubjectID:         "s-1",
		LearnedHRLow:      59,
		LearnedHRHigh:     91,
		ActiveHours:       []int{8, 9, 20},
		FrequentLocations: []string{"家"},
		DataQuality:       models.DataQualityFair,
		LastLearningAt:    time.Now(),
	}

	args := make([]driver.Value, 29)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}

	mock.ExpectExec(`INSERT INTO baseline_profiles`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertProfile(context.Background(), profile))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProfile_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db, zap.NewNop())

	mock.ExpectExec(`INSERT INTO baseline_profiles`).
		WillReturnError(errors.New("disk full"))

	err := repo.UpsertProfile(context.Background(), &models.BaselineProfile{SubjectID: "s-1"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert baseline profile")
}

// ============================================
// 告警
// ============================================

func TestCreateAlertEvent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAlertRepository(db, zap.NewNop())

	tenantID := uuid.New().String()
	eventID := uuid.New().String()
	sampleID := int64(42)
	now := time.Now()

	event := &models.AlertEvent{
		EventID:     eventID,
		TenantID:    tenantID,
		SubjectID:   "s-1",
		SampleID:    &sampleID,
		AlertType:   models.AlertTypeAnomalyDetection,
		Severity:    "warning",
		OverallRisk: "中",
		Description: "心率95bpm，超出个人基线上限(91bpm) 4%",
		Status:      models.AlertStatusPending,
		TriggerData: `{"heart_rate":95}`,
		TriggeredAt: now,
		CreatedAt:   now,
	}

	mock.ExpectExec(`INSERT INTO guardian_alerts`).
		WithArgs(
			eventID, tenantID, "s-1", sampleID, "anomaly_detection",
			"warning", "中", event.Description, "pending",
			`{"heart_rate":95}`, now, nil, nil, now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreateAlertEvent(context.Background(), tenantID, event))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlertEvent_TenantMismatch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAlertRepository(db, zap.NewNop())

	err := repo.CreateAlertEvent(context.Background(), "tenant-a", &models.AlertEvent{TenantID: "tenant-b"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must match")
	require.NoError(t, mock.ExpectationsWereMet())
}
