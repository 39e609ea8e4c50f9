package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"wisefido-guardian/internal/baseline"
	"wisefido-guardian/internal/metrics"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

const narrativeSystemPrompt = "你是老年健康监护助手，擅长结合个人基线做多维度关联分析。只输出 JSON。"

// Narrator 叙述生成协作方，失败时由调用方使用确定性文本
type Narrator interface {
	Narrate(ctx context.Context, payload models.NarrativePayload) (string, error)
}

// BuildNarrativePayload 构建固定结构的叙述输入
func BuildNarrativePayload(subjectName string, sample models.Sample, result *models.AnalysisResult, profile *models.BaselineProfile) models.NarrativePayload {
	baselineCtx := models.NewBaselineContext(profile)
	_, deviation := baseline.HeartRateDeviation(sample.HeartRate, baselineCtx.LearnedHRLow, baselineCtx.LearnedHRHigh)

	locationStatus := "正常"
	if result.Location.IsAnomaly {
		locationStatus = "偏离常规区域"
	}

	return models.NarrativePayload{
		SubjectID:   sample.SubjectID,
		SubjectName: subjectName,
		Hour:        result.Activity.Hour,
		Current: models.NarrativeCurrent{
			HeartRate:   sample.HeartRate,
			SystolicBP:  sample.SystolicBP,
			DiastolicBP: sample.DiastolicBP,
			Steps:       sample.Steps,
			Location:    result.Location.LocationName,
			Activity:    result.Activity.Activity,
		},
		Baseline:                  baselineCtx,
		Thresholds:                result.Thresholds,
		HeartRateDeviationPercent: round1(deviation),
		LocationStatus:            locationStatus,
		HeartRateTrend:            result.HeartRateTrend,
		HeartRate:                 result.HeartRate.DimensionResult,
		BloodPressure:             result.BloodPressure.DimensionResult,
		Location:                  result.Location.DimensionResult,
		Activity:                  result.Activity.DimensionResult,
		OverallStatus:             result.OverallStatus,
		OverallRisk:               result.OverallRisk,
		AnomalyCount:              result.AnomalyCount,
		Message:                   result.Message,
	}
}

// LLMNarrator 通过文本生成服务生成给监护人看的解释
type LLMNarrator struct {
	client *ChatClient
}

// NewLLMNarrator 创建叙述生成器
func NewLLMNarrator(client *ChatClient) *LLMNarrator {
	return &LLMNarrator{client: client}
}

type narrativeResponse struct {
	RiskLevel   string `json:"risk_level"`
	Explanation string `json:"explanation"`
}

// Narrate 生成叙述文本
func (n *LLMNarrator) Narrate(ctx context.Context, payload models.NarrativePayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal narrative payload: %w", err)
	}

	prompt := "以下为实时数据、个人基线与规则引擎判定（JSON）：\n" + string(data) +
		"\n请结合与平时的对比做关联分析，输出 JSON：" +
		`{"risk_level": "低|中|高|紧急", "explanation": "给监护人看的通俗解释，80字内"}`

	content, err := n.client.Complete(ctx, "narrative", narrativeSystemPrompt, prompt)
	if err != nil {
		return "", err
	}

	var response narrativeResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &response); err != nil {
		return "", fmt.Errorf("failed to parse narrative: %w", err)
	}
	if strings.TrimSpace(response.Explanation) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(response.Explanation), nil
}

// 确定性叙述文案
const (
	narrativeSafe    = "目前各项指标在个人正常范围内，状态良好。"
	narrativeConcern = "检测到部分指标偏离正常范围，建议保持关注。"
)

// FallbackNarrative 确定性叙述文本，与判定结果保持一致
// safe 给出安心文案；心率未判为异常时沿用判定文案；心率异常时按判定所用阈值说明偏离，再补充其他异常维度
func FallbackNarrative(payload models.NarrativePayload) string {
	if payload.OverallStatus == models.StatusSafe {
		return narrativeSafe
	}
	if !payload.HeartRate.IsAnomaly {
		if payload.Message != "" {
			return payload.Message
		}
		return narrativeConcern
	}

	text := heartRateNarrative(payload)
	if payload.Location.IsAnomaly {
		text += "且位置偏离常规区域，建议立即确认安全。"
	}
	for _, d := range []models.DimensionResult{payload.BloodPressure, payload.Activity} {
		if d.IsAnomaly && d.Message != "" {
			text += d.Message + "。"
		}
	}
	return text
}

// heartRateNarrative 心率偏离说明，阈值取判定时实际生效的阈值
func heartRateNarrative(payload models.NarrativePayload) string {
	hr := payload.Current.HeartRate
	thresholds := payload.Thresholds
	if thresholds.HeartRateHigh <= 0 {
		return payload.HeartRate.Message + "。"
	}

	label := "设定"
	if thresholds.IsLearned() {
		label = "平时"
	}

	if float64(hr) < thresholds.HeartRateLow {
		return fmt.Sprintf("心率%dbpm，低于%s下限(%.0fbpm)，请关注。", hr, label, thresholds.HeartRateLow)
	}
	deviation := (float64(hr) - thresholds.HeartRateHigh) / thresholds.HeartRateHigh * 100
	return fmt.Sprintf("心率%dbpm，比%s上限(%.0fbpm)高出%.0f%%。", hr, label, thresholds.HeartRateHigh, deviation)
}

// ResilientNarrator 在限定时间内调用叙述生成器，失败时使用确定性文本
type ResilientNarrator struct {
	primary Narrator
	timeout time.Duration
	logger  *zap.Logger
}

// NewResilientNarrator primary 可以为 nil（始终使用确定性文本）
func NewResilientNarrator(primary Narrator, timeout time.Duration, logger *zap.Logger) *ResilientNarrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientNarrator{
		primary: primary,
		timeout: timeout,
		logger:  logger,
	}
}

// Narrate 总是返回文本
func (r *ResilientNarrator) Narrate(ctx context.Context, payload models.NarrativePayload) string {
	if r.primary == nil {
		return FallbackNarrative(payload)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.primary.Narrate(ctx, payload)
	if err != nil {
		r.logger.Warn("Narrative generation failed, using deterministic text",
			zap.String("subject_id", payload.SubjectID),
			zap.Error(err),
		)
		metrics.RecordDegradation("narrator")
		return FallbackNarrative(payload)
	}
	return text
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
