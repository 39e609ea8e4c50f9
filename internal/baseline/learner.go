package baseline

import (
	"context"
	"math"
	"sync"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/metrics"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

const (
	// MinSamples 学习所需的最少样本数
	MinSamples = 10

	// DefaultWindowDays 默认学习窗口（天）
	DefaultWindowDays = 30

	fallbackHRFloor    = 50
	fallbackHRCap      = 120
	fallbackConfidence = 0.5

	// 学习出的心率范围上下限颠倒时置信度的上限，低于可信阈值
	invertedRangeConfidence = 0.3
)

// Enricher 画像增强协作方（文本生成服务），失败时使用确定性推导
type Enricher interface {
	Enrich(ctx context.Context, summary models.BaselineSummary) (*models.BaselineEnrichment, error)
}

// LearnRequest 一次学习的输入
type LearnRequest struct {
	SubjectID   string
	SubjectName string
	Samples     []models.Sample // 学习窗口内的样本，由调用方选取
	Zones       []models.Zone   // 第一个区域视为家
	Days        int
}

// Learner 个人基线学习器
// 不同被监护人可以并发学习，同一被监护人的学习串行执行
type Learner struct {
	enricher      Enricher
	enrichTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time

	mu    sync.Mutex
	locks map[string]*subjectLock
}

// subjectLock 单个被监护人的学习锁，refs 为持有或等待的调用数
type subjectLock struct {
	mu   sync.Mutex
	refs int
}

// NewLearner 创建学习器，enricher 可以为 nil（直接使用确定性推导）
func NewLearner(enricher Enricher, enrichTimeout time.Duration, logger *zap.Logger) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{
		enricher:      enricher,
		enrichTimeout: enrichTimeout,
		logger:        logger,
		now:           time.Now,
		locks:         make(map[string]*subjectLock),
	}
}

// lockSubject 获取被监护人的学习锁，返回释放函数；没有调用方持有时删除该锁
func (l *Learner) lockSubject(subjectID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[subjectID]
	if !ok {
		lock = &subjectLock{}
		l.locks[subjectID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, subjectID)
		}
	}
}

// Learn 由调用方选定的窗口样本生成完整画像，样本不足时返回 InsufficientDataError
// 窗口由调用方按 Days 选取，这里不再按时间过滤；Days 只记录到画像和摘要中
// 每次生成的画像整体替换旧画像；相同输入（除 LastLearningAt 外）结果相同
func (l *Learner) Learn(ctx context.Context, req LearnRequest) (*models.BaselineProfile, error) {
	unlock := l.lockSubject(req.SubjectID)
	defer unlock()

	days := req.Days
	if days <= 0 {
		days = DefaultWindowDays
	}

	now := l.now().UTC()
	window := req.Samples

	if len(window) < MinSamples {
		metrics.RecordLearning("insufficient")
		return nil, apperrors.InsufficientData(len(window), MinSamples)
	}

	summary := Summarize(req.SubjectName, window, req.Zones, days)
	profile := FallbackProfile(req.SubjectID, summary)

	if enrichment := l.enrich(ctx, req.SubjectID, summary); enrichment != nil {
		applied := MergeEnrichment(profile, enrichment)
		for _, field := range applied.Rejected {
			l.logger.Warn("Ignoring invalid enrichment field",
				zap.String("subject_id", req.SubjectID),
				zap.String("field", field),
			)
		}
		profile.Enriched = len(applied.Accepted) > 0
	}

	if profile.LearnedHRLow >= profile.LearnedHRHigh {
		l.logger.Warn("Learned heart rate range is inverted, lowering confidence",
			zap.String("subject_id", req.SubjectID),
			zap.Float64("hr_low", profile.LearnedHRLow),
			zap.Float64("hr_high", profile.LearnedHRHigh),
		)
		profile.ConfidenceScore = math.Min(profile.ConfidenceScore, invertedRangeConfidence)
	}

	profile.LearningDays = days
	profile.LastLearningAt = now

	metrics.RecordLearning("ok")
	l.logger.Info("Baseline learning completed",
		zap.String("subject_id", req.SubjectID),
		zap.Int("records", summary.TotalRecords),
		zap.Int("days_with_data", summary.DaysWithData),
		zap.String("data_quality", string(profile.DataQuality)),
		zap.Bool("enriched", profile.Enriched),
	)

	return profile, nil
}

func (l *Learner) enrich(ctx context.Context, subjectID string, summary models.BaselineSummary) *models.BaselineEnrichment {
	if l.enricher == nil {
		return nil
	}

	if l.enrichTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.enrichTimeout)
		defer cancel()
	}

	enrichment, err := l.enricher.Enrich(ctx, summary)
	if err != nil {
		l.logger.Warn("Baseline enrichment failed, using deterministic fallback",
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		metrics.RecordDegradation("enricher")
		return nil
	}
	return enrichment
}

// FallbackProfile 确定性推导的画像
// 下限 = max(50, 均值-2σ)，上限 = min(120, 均值+2σ)，静息 = 均值-5，运动上限 = 均值+30，置信度 0.5
func FallbackProfile(subjectID string, summary models.BaselineSummary) *models.BaselineProfile {
	return &models.BaselineProfile{
		SubjectID: subjectID,

		LearnedHRLow:  math.Max(fallbackHRFloor, summary.HRMean-2*summary.HRStd),
		LearnedHRHigh: math.Min(fallbackHRCap, summary.HRMean+2*summary.HRStd),
		LearnedHRMean: summary.HRMean,
		LearnedHRStd:  summary.HRStd,
		RestingHR:     summary.HRMean - 5,
		ExerciseHRMax: summary.HRMean + 30,

		LearnedSystolicMean:  summary.SystolicMean,
		LearnedSystolicStd:   summary.SystolicStd,
		LearnedDiastolicMean: summary.DiastolicMean,
		LearnedDiastolicStd:  summary.DiastolicStd,

		WakeTime:       "06:30",
		SleepTime:      "21:30",
		ActiveHours:    summary.ActiveHours,
		DailyStepsMean: summary.StepsMean,
		DailyStepsStd:  summary.StepsStd,

		HomeStayRatio:     summary.HomeRatio,
		FrequentLocations: summary.FrequentLocations,
		OutdoorPreference: "morning",

		HealthSummary:      "整体健康状况稳定，生活规律",
		RiskFactors:        []string{},
		PersonalizedAdvice: []string{"保持规律作息", "适当户外活动"},

		ConfidenceScore: fallbackConfidence,
		DataQuality:     AssessDataQuality(summary.TotalRecords, summary.DaysWithData),

		LearningDays:         summary.Days,
		TotalRecordsAnalyzed: summary.TotalRecords,
		DaysWithData:         summary.DaysWithData,
	}
}
