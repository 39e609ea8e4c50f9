package consumer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Guardian.Cache.AnalysisKeyPrefix = "guardian:analysis:"
	cfg.Guardian.Cache.AnalysisTTL = 300
	cfg.Guardian.Cache.LockKeyPrefix = "guardian:learning:"
	cfg.Guardian.Cache.LockTTL = 120
	cfg.Guardian.PollInterval = 1
	cfg.Guardian.BatchSize = 50
	cfg.Guardian.Concurrency = 4
	return cfg
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	return mr, redisClient
}

// ============================================
// CacheManager
// ============================================

func TestCacheManager_SetAndGetAnalysis(t *testing.T) {
	mr, redisClient := setupTestRedis(t)
	cache := NewCacheManager(testConfig(), redisClient, zap.NewNop())
	ctx := context.Background()

	result := &models.AnalysisResult{
		SubjectID:     "s-1",
		OverallStatus: models.StatusWarning,
		OverallRisk:   models.RiskMedium,
		AnomalyCount:  1,
		MaxSeverity:   models.SeverityWarning,
		Message:       "心率95bpm，超出个人基线上限(91bpm) 4%",
	}
	require.NoError(t, cache.SetAnalysis(ctx, result))

	assert.True(t, mr.Exists("guardian:analysis:s-1"))
	assert.Equal(t, 300*time.Second, mr.TTL("guardian:analysis:s-1"))

	cached, err := cache.GetAnalysis(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWarning, cached.OverallStatus)
	assert.Equal(t, models.SeverityWarning, cached.MaxSeverity)
	assert.Equal(t, result.Message, cached.Message)

	// 过期后读取不到
	mr.FastForward(301 * time.Second)
	_, err = cache.GetAnalysis(ctx, "s-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCacheManager_InvalidateAnalysis(t *testing.T) {
	mr, redisClient := setupTestRedis(t)
	cache := NewCacheManager(testConfig(), redisClient, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.SetAnalysis(ctx, &models.AnalysisResult{SubjectID: "s-1"}))
	require.NoError(t, cache.InvalidateAnalysis(ctx, "s-1"))
	assert.False(t, mr.Exists("guardian:analysis:s-1"))
}

func TestCacheManager_RedisDown(t *testing.T) {
	mr, redisClient := setupTestRedis(t)
	cache := NewCacheManager(testConfig(), redisClient, zap.NewNop())
	mr.Close()

	err := cache.SetAnalysis(context.Background(), &models.AnalysisResult{SubjectID: "s-1"})
	assert.Error(t, err)
}

// ============================================
// StateManager
// ============================================

func TestStateManager_LearningLock(t *testing.T) {
	mr, redisClient := setupTestRedis(t)
	state := NewStateManager(testConfig(), redisClient, zap.NewNop())
	ctx := context.Background()

	release, err := state.AcquireLearningLock(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, mr.TTL("guardian:learning:s-1"))

	_, err = state.AcquireLearningLock(ctx, "s-1")
	assert.ErrorIs(t, err, ErrLearningInProgress)

	// 其他被监护人不受影响
	releaseOther, err := state.AcquireLearningLock(ctx, "s-2")
	require.NoError(t, err)
	releaseOther()

	release()
	assert.False(t, mr.Exists("guardian:learning:s-1"))

	release2, err := state.AcquireLearningLock(ctx, "s-1")
	require.NoError(t, err)
	release2()
}

func TestStateManager_ReleaseKeepsForeignLock(t *testing.T) {
	mr, redisClient := setupTestRedis(t)
	state := NewStateManager(testConfig(), redisClient, zap.NewNop())
	ctx := context.Background()

	release, err := state.AcquireLearningLock(ctx, "s-1")
	require.NoError(t, err)

	// 锁过期后被其他实例获取
	mr.FastForward(121 * time.Second)
	_, err = state.AcquireLearningLock(ctx, "s-1")
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists("guardian:learning:s-1"))
}

// ============================================
// SubjectConsumer
// ============================================

type fakeSubjects struct {
	subjects []models.Subject
	err      error
	limits   []int
	mu       sync.Mutex
}

func (f *fakeSubjects) ListActiveSubjects(_ context.Context, _ string, limit int) ([]models.Subject, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	return f.subjects, f.err
}

type fakeEvaluator struct {
	calls   int32
	failFor string
}

func (f *fakeEvaluator) EvaluateSubject(_ context.Context, subject models.Subject) (*models.AnalysisResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if subject.SubjectID == f.failFor {
		return nil, errors.New("boom")
	}
	return &models.AnalysisResult{SubjectID: subject.SubjectID}, nil
}

type fakeLearner struct {
	calls int32
	days  atomic.Int32
}

func (f *fakeLearner) LearnBaseline(_ context.Context, subject models.Subject, days int) (*models.BaselineProfile, error) {
	atomic.AddInt32(&f.calls, 1)
	f.days.Store(int32(days))
	if subject.SubjectID == "s-2" {
		return nil, apperrors.InsufficientData(3, 10)
	}
	return &models.BaselineProfile{SubjectID: subject.SubjectID}, nil
}

func subjectsFixture(n int) []models.Subject {
	subjects := make([]models.Subject, n)
	for i := range subjects {
		subjects[i] = models.Subject{SubjectID: "s-" + string(rune('1'+i)), Active: true}
	}
	return subjects
}

func TestEvaluateAll_ContinuesAfterFailure(t *testing.T) {
	lister := &fakeSubjects{subjects: subjectsFixture(5)}
	consumer := NewSubjectConsumer(testConfig(), lister, zap.NewNop(), "tenant-1")
	evaluator := &fakeEvaluator{failFor: "s-2"}

	require.NoError(t, consumer.EvaluateAll(context.Background(), evaluator))
	assert.Equal(t, int32(5), atomic.LoadInt32(&evaluator.calls))
	assert.Equal(t, []int{50}, lister.limits)
}

func TestEvaluateAll_ListError(t *testing.T) {
	lister := &fakeSubjects{err: errors.New("db down")}
	consumer := NewSubjectConsumer(testConfig(), lister, zap.NewNop(), "tenant-1")

	err := consumer.EvaluateAll(context.Background(), &fakeEvaluator{})
	assert.Error(t, err)
}

func TestLearnAll_SkipsInsufficientData(t *testing.T) {
	lister := &fakeSubjects{subjects: subjectsFixture(3)}
	cfg := testConfig()
	cfg.Guardian.WindowDays = 14
	consumer := NewSubjectConsumer(cfg, lister, zap.NewNop(), "tenant-1")
	learner := &fakeLearner{}

	require.NoError(t, consumer.LearnAll(context.Background(), learner))
	assert.Equal(t, int32(3), atomic.LoadInt32(&learner.calls))
	assert.Equal(t, int32(14), learner.days.Load())
	assert.Equal(t, []int{0}, lister.limits)
}

func TestStart_StopsOnCancel(t *testing.T) {
	lister := &fakeSubjects{subjects: subjectsFixture(2)}
	consumer := NewSubjectConsumer(testConfig(), lister, zap.NewNop(), "tenant-1")
	evaluator := &fakeEvaluator{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx, evaluator, nil) }()

	// 启动时立即评估一轮
	require.Eventually(t, func() bool { return atomic.LoadInt32(&evaluator.calls) >= 2 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
