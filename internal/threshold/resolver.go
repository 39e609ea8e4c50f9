package threshold

import (
	"context"

	"wisefido-guardian/internal/metrics"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// LearnedConfidenceThreshold 画像置信度高于该值时优先于手动设置
const LearnedConfidenceThreshold = 0.3

// Strategy 阈值来源策略，没有数据时返回 nil
type Strategy interface {
	Provenance() models.Provenance
	Resolve(ctx context.Context, cache *ProfileCache, subjectID string) *models.ThresholdSet
}

// LearnedStrategy 个人基线：画像存在且置信度 > 0.3
// 只替换心率阈值，血压阈值仍取手动设置或默认值
type LearnedStrategy struct{}

func (LearnedStrategy) Provenance() models.Provenance { return models.ProvenanceLearned }

func (LearnedStrategy) Resolve(ctx context.Context, cache *ProfileCache, subjectID string) *models.ThresholdSet {
	profile := cache.Profile(ctx, subjectID)
	if profile == nil || profile.ConfidenceScore <= LearnedConfidenceThreshold {
		return nil
	}

	set := bloodPressureFrom(cache.Settings(ctx, subjectID))
	set.HeartRateLow = profile.LearnedHRLow
	set.HeartRateHigh = profile.LearnedHRHigh
	set.HeartRateMean = profile.LearnedHRMean
	set.Provenance = models.ProvenanceLearned
	return &set
}

// ManualStrategy 监护人手动设置
type ManualStrategy struct{}

func (ManualStrategy) Provenance() models.Provenance { return models.ProvenanceManual }

func (ManualStrategy) Resolve(ctx context.Context, cache *ProfileCache, subjectID string) *models.ThresholdSet {
	settings := cache.Settings(ctx, subjectID)
	if settings == nil {
		return nil
	}

	set := bloodPressureFrom(settings)
	set.HeartRateLow = float64(settings.HeartRateLow)
	set.HeartRateHigh = float64(settings.HeartRateHigh)
	set.HeartRateMean = models.DefaultHeartRateMean
	set.Provenance = models.ProvenanceManual
	return &set
}

// DefaultStrategy 系统默认值，总是有结果
type DefaultStrategy struct{}

func (DefaultStrategy) Provenance() models.Provenance { return models.ProvenanceDefault }

func (DefaultStrategy) Resolve(context.Context, *ProfileCache, string) *models.ThresholdSet {
	set := models.DefaultThresholdSet()
	return &set
}

// bloodPressureFrom 血压阈值：有手动设置用手动设置，否则默认；舒张压上限固定
func bloodPressureFrom(settings *models.ThresholdSettings) models.ThresholdSet {
	set := models.DefaultThresholdSet()
	if settings != nil {
		set.SystolicHigh = settings.SystolicHigh
		set.SystolicLow = settings.SystolicLow
		set.BloodPressureProvenance = models.ProvenanceManual
	}
	return set
}

// Resolver 按顺序尝试各策略，取第一个有结果的
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewResolver 创建解析器，默认顺序：个人基线 -> 手动设置 -> 系统默认
func NewResolver(logger *zap.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = []Strategy{LearnedStrategy{}, ManualStrategy{}, DefaultStrategy{}}
	}
	return &Resolver{
		strategies: strategies,
		logger:     logger,
	}
}

// Resolve 解析生效阈值，不返回错误；所有策略都没有结果时使用默认值
func (r *Resolver) Resolve(ctx context.Context, cache *ProfileCache, subjectID string) models.ThresholdSet {
	for _, strategy := range r.strategies {
		set := strategy.Resolve(ctx, cache, subjectID)
		if set == nil {
			continue
		}

		r.logger.Debug("Thresholds resolved",
			zap.String("subject_id", subjectID),
			zap.String("provenance", string(set.Provenance)),
			zap.Float64("hr_low", set.HeartRateLow),
			zap.Float64("hr_high", set.HeartRateHigh),
		)
		metrics.RecordThresholdResolution(string(set.Provenance))
		return *set
	}

	metrics.RecordThresholdResolution(string(models.ProvenanceDefault))
	return models.DefaultThresholdSet()
}
