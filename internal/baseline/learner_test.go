package baseline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	learnNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	homeZone = models.Zone{Name: "家", Latitude: 30.2741, Longitude: 120.1551, Radius: 200, Active: true}
	parkZone = models.Zone{Name: "幸福社区公园", Latitude: 30.2761, Longitude: 120.1581, Radius: 300, Active: true}
)

// generateSamples 从 learnNow 往前每小时一条样本
func generateSamples(n int) []models.Sample {
	samples := make([]models.Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = models.Sample{
			SampleID:    int64(i + 1),
			SubjectID:   "s-1",
			RecordedAt:  learnNow.Add(-time.Duration(i+1) * time.Hour),
			HeartRate:   70 + i%10,
			SystolicBP:  118 + i%5,
			DiastolicBP: 76 + i%3,
			Steps:       200 * (i % 12),
			Latitude:    homeZone.Latitude,
			Longitude:   homeZone.Longitude,
		}
	}
	return samples
}

func newTestLearner(enricher Enricher, logger *zap.Logger) *Learner {
	l := NewLearner(enricher, time.Second, logger)
	l.now = func() time.Time { return learnNow }
	return l
}

type fakeEnricher struct {
	enrichment *models.BaselineEnrichment
	err        error
}

func (f *fakeEnricher) Enrich(ctx context.Context, summary models.BaselineSummary) (*models.BaselineEnrichment, error) {
	return f.enrichment, f.err
}

func TestLearn_InsufficientData(t *testing.T) {
	l := newTestLearner(nil, zap.NewNop())

	_, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: generateSamples(9), Days: 30})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientData))
	var insufficient *apperrors.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 9, insufficient.Count)
	assert.Equal(t, 10, insufficient.Required)
}

func TestLearn_MinimumSamplesSucceeds(t *testing.T) {
	l := newTestLearner(nil, zap.NewNop())

	profile, err := l.Learn(context.Background(), LearnRequest{
		SubjectID: "s-1",
		Samples:   generateSamples(10),
		Zones:     []models.Zone{homeZone, parkZone},
		Days:      30,
	})

	require.NoError(t, err)
	assert.Equal(t, "s-1", profile.SubjectID)
	assert.Equal(t, 10, profile.TotalRecordsAnalyzed)
	assert.Equal(t, 30, profile.LearningDays)
	assert.Equal(t, 0.5, profile.ConfidenceScore)
	assert.Equal(t, models.DataQualityInsufficient, profile.DataQuality)
	assert.Equal(t, 1.0, profile.HomeStayRatio)
	assert.Equal(t, []string{"家"}, profile.FrequentLocations)
	assert.Equal(t, learnNow, profile.LastLearningAt)
	assert.False(t, profile.Enriched)
}

func TestLearn_UsesSuppliedWindow(t *testing.T) {
	l := newTestLearner(nil, zap.NewNop())

	// 调用方选取的窗口早于学习器时钟的 30 天，样本全部参与学习
	samples := generateSamples(10)
	for i := range samples {
		samples[i].RecordedAt = samples[i].RecordedAt.Add(-40 * 24 * time.Hour)
	}

	profile, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: samples, Days: 30})

	require.NoError(t, err)
	assert.Equal(t, 10, profile.TotalRecordsAnalyzed)
	assert.Equal(t, 30, profile.LearningDays)

	// 时钟推进不改变同一窗口的学习结果
	l.now = func() time.Time { return learnNow.Add(90 * 24 * time.Hour) }
	later, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: samples, Days: 30})
	require.NoError(t, err)
	later.LastLearningAt = profile.LastLearningAt
	assert.Equal(t, profile, later)
}

func TestLearn_Idempotent(t *testing.T) {
	l := newTestLearner(nil, zap.NewNop())
	samples := generateSamples(60)
	req := LearnRequest{SubjectID: "s-1", Samples: samples, Zones: []models.Zone{homeZone, parkZone}, Days: 30}

	first, err := l.Learn(context.Background(), req)
	require.NoError(t, err)
	second, err := l.Learn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// 输入顺序不影响结果
	reversed := make([]models.Sample, len(samples))
	for i, s := range samples {
		reversed[len(samples)-1-i] = s
	}
	req.Samples = reversed
	third, err := l.Learn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestFallbackProfile_TwoSigmaRange(t *testing.T) {
	profile := FallbackProfile("s-1", models.BaselineSummary{HRMean: 75, HRStd: 8, TotalRecords: 10, DaysWithData: 1})

	assert.Equal(t, 59.0, profile.LearnedHRLow)
	assert.Equal(t, 91.0, profile.LearnedHRHigh)
	assert.Equal(t, 70.0, profile.RestingHR)
	assert.Equal(t, 105.0, profile.ExerciseHRMax)
	assert.Equal(t, 0.5, profile.ConfidenceScore)
	assert.Equal(t, "06:30", profile.WakeTime)
	assert.Equal(t, "21:30", profile.SleepTime)
	assert.Equal(t, "morning", profile.OutdoorPreference)
	assert.Equal(t, "整体健康状况稳定，生活规律", profile.HealthSummary)
	assert.Empty(t, profile.RiskFactors)
	assert.Equal(t, []string{"保持规律作息", "适当户外活动"}, profile.PersonalizedAdvice)
}

func TestFallbackProfile_FloorAndCap(t *testing.T) {
	profile := FallbackProfile("s-1", models.BaselineSummary{HRMean: 85, HRStd: 20})

	assert.Equal(t, 50.0, profile.LearnedHRLow)
	assert.Equal(t, 120.0, profile.LearnedHRHigh)
}

func TestLearn_EnrichmentMergedPerField(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	low, high := 58.0, 95.0
	badConfidence := 1.7
	wake := "6:45am"
	summary := "心率偏稳定，晨练规律"

	l := newTestLearner(&fakeEnricher{enrichment: &models.BaselineEnrichment{
		LearnedHRLow:    &low,
		LearnedHRHigh:   &high,
		WakeTime:        &wake,
		HealthSummary:   &summary,
		RiskFactors:     []string{"高血压家族史", " "},
		ConfidenceScore: &badConfidence,
	}}, zap.New(core))

	profile, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: generateSamples(20), Days: 30})

	require.NoError(t, err)
	assert.True(t, profile.Enriched)
	assert.Equal(t, 58.0, profile.LearnedHRLow)
	assert.Equal(t, 95.0, profile.LearnedHRHigh)
	assert.Equal(t, summary, profile.HealthSummary)
	assert.Equal(t, []string{"高血压家族史"}, profile.RiskFactors)
	// 不合法字段回退
	assert.Equal(t, "06:30", profile.WakeTime)
	assert.Equal(t, 0.5, profile.ConfidenceScore)

	rejected := map[string]bool{}
	for _, entry := range logs.All() {
		rejected[entry.ContextMap()["field"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"wake_time": true, "confidence_score": true}, rejected)
}

func TestLearn_EnrichmentFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := newTestLearner(&fakeEnricher{err: errors.New("context deadline exceeded")}, zap.New(core))

	profile, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: generateSamples(20), Days: 30})

	require.NoError(t, err)
	assert.False(t, profile.Enriched)
	assert.Equal(t, 0.5, profile.ConfidenceScore)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Baseline enrichment failed, using deterministic fallback", logs.All()[0].Message)
}

func TestLearn_InvertedRangeIsNotTrusted(t *testing.T) {
	l := newTestLearner(nil, zap.NewNop())

	samples := generateSamples(12)
	for i := range samples {
		samples[i].HeartRate = 130
	}

	profile, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: samples, Days: 30})

	require.NoError(t, err)
	assert.Equal(t, 130.0, profile.LearnedHRLow)
	assert.Equal(t, 120.0, profile.LearnedHRHigh)
	assert.LessOrEqual(t, profile.ConfidenceScore, 0.3)
}

type blockingEnricher struct {
	active    int32
	maxActive int32
}

func (b *blockingEnricher) Enrich(ctx context.Context, summary models.BaselineSummary) (*models.BaselineEnrichment, error) {
	n := atomic.AddInt32(&b.active, 1)
	for {
		m := atomic.LoadInt32(&b.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&b.maxActive, m, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&b.active, -1)
	return nil, nil
}

func TestLearn_SameSubjectIsSerialized(t *testing.T) {
	enricher := &blockingEnricher{}
	l := newTestLearner(enricher, zap.NewNop())
	samples := generateSamples(20)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-1", Samples: samples, Days: 30})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&enricher.maxActive))
	assert.Empty(t, l.locks)
}

func TestLearn_ReleasesSubjectLocks(t *testing.T) {
	l := newTestLearner(nil, zap.NewNop())
	samples := generateSamples(10)

	for i := 0; i < 20; i++ {
		_, err := l.Learn(context.Background(), LearnRequest{SubjectID: fmt.Sprintf("s-%d", i), Samples: samples, Days: 30})
		require.NoError(t, err)
	}
	_, err := l.Learn(context.Background(), LearnRequest{SubjectID: "s-x", Samples: samples[:3], Days: 30})
	require.Error(t, err)

	assert.Empty(t, l.locks)
}
