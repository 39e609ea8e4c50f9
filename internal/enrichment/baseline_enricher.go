package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wisefido-guardian/internal/models"
)

const baselineSystemPrompt = "你是老年健康数据分析师，根据历史统计数据给出个性化健康基线。只输出 JSON。"

// BaselineEnricher 通过文本生成服务细化画像字段（实现 baseline.Enricher）
type BaselineEnricher struct {
	client *ChatClient
}

// NewBaselineEnricher 创建画像增强器
func NewBaselineEnricher(client *ChatClient) *BaselineEnricher {
	return &BaselineEnricher{client: client}
}

// Enrich 返回解析后的增强字段，字段合法性由学习器校验
func (e *BaselineEnricher) Enrich(ctx context.Context, summary models.BaselineSummary) (*models.BaselineEnrichment, error) {
	content, err := e.client.Complete(ctx, "baseline", baselineSystemPrompt, baselinePrompt(summary))
	if err != nil {
		return nil, err
	}

	var enrichment models.BaselineEnrichment
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &enrichment); err != nil {
		return nil, fmt.Errorf("failed to parse baseline enrichment: %w", err)
	}
	return &enrichment, nil
}

func baselinePrompt(s models.BaselineSummary) string {
	name := s.SubjectName
	if name == "" {
		name = "被监护人"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s 近 %d 天健康数据统计：\n", name, s.Days)
	fmt.Fprintf(&b, "记录 %d 条，覆盖 %d 天\n", s.TotalRecords, s.DaysWithData)
	fmt.Fprintf(&b, "心率 均值 %.1f 标准差 %.1f 范围 %d-%d bpm\n", s.HRMean, s.HRStd, s.HRMin, s.HRMax)
	fmt.Fprintf(&b, "收缩压 均值 %.1f 范围 %d-%d mmHg，舒张压 均值 %.1f mmHg\n",
		s.SystolicMean, s.SystolicMin, s.SystolicMax, s.DiastolicMean)
	fmt.Fprintf(&b, "日均步数 %d 标准差 %d，最活跃时段 %v\n", s.StepsMean, s.StepsStd, s.ActiveHours)
	fmt.Fprintf(&b, "在家比例 %.0f%%，常去位置 %s\n", s.HomeRatio*100, strings.Join(s.FrequentLocations, "、"))
	b.WriteString(`
输出如下 JSON：
{"learned_hr_low": 数值, "learned_hr_high": 数值, "resting_hr": 数值, "exercise_hr_max": 数值,
 "wake_time": "HH:MM", "sleep_time": "HH:MM", "outdoor_preference": "morning|afternoon|evening",
 "health_summary": "30字内", "risk_factors": ["..."], "personalized_advice": ["..."],
 "confidence_score": 0到1}`)
	return b.String()
}
