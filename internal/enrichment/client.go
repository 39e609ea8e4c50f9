package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wisefido-guardian/internal/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrEmptyCompletion 文本生成服务返回空内容
var ErrEmptyCompletion = errors.New("empty completion")

// ClientConfig 文本生成服务（OpenAI 兼容 chat completions 接口）配置
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration // 单次 HTTP 请求超时
	RetryCount int
	RateLimit  float64 // 每秒请求数，<= 0 表示不限
	RateBurst  int
}

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest chat completions 请求
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatResponse chat completions 响应
type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ChatClient 文本生成服务客户端
type ChatClient struct {
	httpClient *resty.Client
	model      string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewChatClient 创建客户端
func NewChatClient(cfg ClientConfig, logger *zap.Logger) *ChatClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// 限流和服务端错误重试，其他 4xx 不重试
			return r != nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
		}).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	burst := cfg.RateBurst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if burst <= 0 {
		burst = 1
	}

	return &ChatClient{
		httpClient: client,
		model:      cfg.Model,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// Complete 发送一次对话请求，返回第一条回复的内容
// kind 仅用于指标和日志（narrative / baseline）
func (c *ChatClient) Complete(ctx context.Context, kind, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	request := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}

	start := time.Now()
	var response ChatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		SetError(&response).
		Post("/chat/completions")
	if err != nil {
		metrics.RecordEnrichmentRequest(kind, false, time.Since(start))
		return "", fmt.Errorf("failed to call chat completions: %w", err)
	}

	if resp.IsError() {
		metrics.RecordEnrichmentRequest(kind, false, time.Since(start))
		msg := resp.Status()
		if response.Error != nil && response.Error.Message != "" {
			msg = response.Error.Message
		}
		c.logger.Debug("Chat completions returned error",
			zap.String("kind", kind),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", msg),
		)
		return "", fmt.Errorf("chat completions error: %s (status: %d)", msg, resp.StatusCode())
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		metrics.RecordEnrichmentRequest(kind, false, time.Since(start))
		return "", ErrEmptyCompletion
	}

	metrics.RecordEnrichmentRequest(kind, true, time.Since(start))
	return response.Choices[0].Message.Content, nil
}

// stripCodeFence 去掉回复外层的 markdown 代码块标记（```json ... ```）
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		parts := strings.Split(content, "```")
		if len(parts) > 1 {
			content = parts[1]
		}
		content = strings.TrimPrefix(content, "json")
	}
	return strings.TrimSpace(content)
}
