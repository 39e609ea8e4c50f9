package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisefido-guardian/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ProfileRepository 健康画像仓库（每个被监护人至多一条）
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository 创建画像仓库
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetProfile 获取画像，不存在时返回 (nil, nil)
func (r *ProfileRepository) GetProfile(ctx context.Context, subjectID string) (*models.BaselineProfile, error) {
	query := `
		SELECT
			subject_id,
			learned_hr_low, learned_hr_high, learned_hr_mean, learned_hr_std,
			resting_hr, exercise_hr_max,
			learned_systolic_mean, learned_systolic_std,
			learned_diastolic_mean, learned_diastolic_std,
			wake_time, sleep_time, active_hours,
			daily_steps_mean, daily_steps_std,
			home_stay_ratio, frequent_locations, outdoor_preference,
			health_summary, risk_factors, personalized_advice,
			confidence_score, data_quality,
			learning_days, total_records_analyzed, days_with_data,
			enriched, last_learning_at
		FROM baseline_profiles
		WHERE subject_id = $1
	`

	var p models.BaselineProfile
	var activeHours pq.Int64Array
	var frequent, risks, advice pq.StringArray
	var dataQuality string

	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&p.SubjectID,
		&p.LearnedHRLow, &p.LearnedHRHigh, &p.LearnedHRMean, &p.LearnedHRStd,
		&p.RestingHR, &p.ExerciseHRMax,
		&p.LearnedSystolicMean, &p.LearnedSystolicStd,
		&p.LearnedDiastolicMean, &p.LearnedDiastolicStd,
		&p.WakeTime, &p.SleepTime, &activeHours,
		&p.DailyStepsMean, &p.DailyStepsStd,
		&p.HomeStayRatio, &frequent, &p.OutdoorPreference,
		&p.HealthSummary, &risks, &advice,
		&p.ConfidenceScore, &dataQuality,
		&p.LearningDays, &p.TotalRecordsAnalyzed, &p.DaysWithData,
		&p.Enriched, &p.LastLearningAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get baseline profile: %w", err)
	}

	p.ActiveHours = make([]int, len(activeHours))
	for i, h := range activeHours {
		p.ActiveHours[i] = int(h)
	}
	p.FrequentLocations = []string(frequent)
	p.RiskFactors = []string(risks)
	p.PersonalizedAdvice = []string(advice)
	p.DataQuality = models.DataQuality(dataQuality)

	return &p, nil
}

// UpsertProfile 整体覆盖写入画像
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p *models.BaselineProfile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}

	activeHours := make(pq.Int64Array, len(p.ActiveHours))
	for i, h := range p.ActiveHours {
		activeHours[i] = int64(h)
	}

	query := `
		INSERT INTO baseline_profiles (
			subject_id,
			learned_hr_low, learned_hr_high, learned_hr_mean, learned_hr_std,
			resting_hr, exercise_hr_max,
			learned_systolic_mean, learned_systolic_std,
			learned_diastolic_mean, learned_diastolic_std,
			wake_time, sleep_time, active_hours,
			daily_steps_mean, daily_steps_std,
			home_stay_ratio, frequent_locations, outdoor_preference,
			health_summary, risk_factors, personalized_advice,
			confidence_score, data_quality,
			learning_days, total_records_analyzed, days_with_data,
			enriched, last_learning_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29
		)
		ON CONFLICT (subject_id) DO UPDATE SET
			learned_hr_low = EXCLUDED.learned_hr_low,
			learned_hr_high = EXCLUDED.learned_hr_high,
			learned_hr_mean = EXCLUDED.learned_hr_mean,
			learned_hr_std = EXCLUDED.learned_hr_std,
			resting_hr = EXCLUDED.resting_hr,
			exercise_hr_max = EXCLUDED.exercise_hr_max,
			learned_systolic_mean = EXCLUDED.learned_systolic_mean,
			learned_systolic_std = EXCLUDED.learned_systolic_std,
			learned_diastolic_mean = EXCLUDED.learned_diastolic_mean,
			learned_diastolic_std = EXCLUDED.learned_diastolic_std,
			wake_time = EXCLUDED.wake_time,
			sleep_time = EXCLUDED.sleep_time,
			active_hours = EXCLUDED.active_hours,
			daily_steps_mean = EXCLUDED.daily_steps_mean,
			daily_steps_std = EXCLUDED.daily_steps_std,
			home_stay_ratio = EXCLUDED.home_stay_ratio,
			frequent_locations = EXCLUDED.frequent_locations,
			outdoor_preference = EXCLUDED.outdoor_preference,
			health_summary = EXCLUDED.health_summary,
			risk_factors = EXCLUDED.risk_factors,
			personalized_advice = EXCLUDED.personalized_advice,
			confidence_score = EXCLUDED.confidence_score,
			data_quality = EXCLUDED.data_quality,
			learning_days = EXCLUDED.learning_days,
			total_records_analyzed = EXCLUDED.total_records_analyzed,
			days_with_data = EXCLUDED.days_with_data,
			enriched = EXCLUDED.enriched,
			last_learning_at = EXCLUDED.last_learning_at
	`

	_, err := r.db.ExecContext(ctx, query,
		p.SubjectID,
		p.LearnedHRLow, p.LearnedHRHigh, p.LearnedHRMean, p.LearnedHRStd,
		p.RestingHR, p.ExerciseHRMax,
		p.LearnedSystolicMean, p.LearnedSystolicStd,
		p.LearnedDiastolicMean, p.LearnedDiastolicStd,
		p.WakeTime, p.SleepTime, activeHours,
		p.DailyStepsMean, p.DailyStepsStd,
		p.HomeStayRatio, pq.StringArray(p.FrequentLocations), p.OutdoorPreference,
		p.HealthSummary, pq.StringArray(p.RiskFactors), pq.StringArray(p.PersonalizedAdvice),
		p.ConfidenceScore, string(p.DataQuality),
		p.LearningDays, p.TotalRecordsAnalyzed, p.DaysWithData,
		p.Enriched, p.LastLearningAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert baseline profile: %w", err)
	}

	r.logger.Debug("Upserted baseline profile",
		zap.String("subject_id", p.SubjectID),
		zap.Float64("confidence_score", p.ConfidenceScore),
	)
	return nil
}
