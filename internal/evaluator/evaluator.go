package evaluator

import (
	"time"

	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// Evaluator 多维度异常评估器
// 无状态，可在多个被监护人之间并发使用
type Evaluator struct {
	location *time.Location // 判断作息时段使用的时区
	logger   *zap.Logger
}

// NewEvaluator 创建评估器，location 为 nil 时按 UTC 计算时段
func NewEvaluator(location *time.Location, logger *zap.Logger) *Evaluator {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		location: location,
		logger:   logger,
	}
}

// Evaluate 评估一条样本，总是返回完整结果，不返回错误
// history 为同一被监护人的近期样本（最新在前），用于趋势判断
func (e *Evaluator) Evaluate(sample models.Sample, history []models.Sample, zones []models.Zone, thresholds models.ThresholdSet) models.AnalysisResult {
	hour := sample.RecordedAt.In(e.location).Hour()

	result := models.AnalysisResult{
		SubjectID:  sample.SubjectID,
		SampleTime: sample.RecordedAt,

		// 心率
		HeartRate: AnalyzeHeartRate(sample.HeartRate, thresholds),
		// 血压
		BloodPressure: AnalyzeBloodPressure(sample.SystolicBP, sample.DiastolicBP, thresholds),
		// 位置
		Location: AnalyzeLocation(sample.Point(), zones),
		// 作息
		Activity: AnalyzeActivity(hour, sample.HeartRate, sample.Steps),

		Thresholds:     thresholds,
		UsingBaseline:  thresholds.IsLearned(),
		HeartRateTrend: HeartRateTrend(history),
	}

	Aggregate(&result)

	e.logger.Debug("Sample evaluated",
		zap.String("subject_id", sample.SubjectID),
		zap.Int("hour", hour),
		zap.String("overall_status", string(result.OverallStatus)),
		zap.Int("anomaly_count", result.AnomalyCount),
		zap.String("provenance", string(thresholds.Provenance)),
	)

	return result
}
