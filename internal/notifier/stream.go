package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-guardian/internal/models"

	"github.com/go-redis/redis/v8"
)

// StreamChannel 发布告警到 Redis Streams
type StreamChannel struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

// NewStreamChannel 创建 Stream 通道，maxLen > 0 时按近似长度裁剪
func NewStreamChannel(client *redis.Client, stream string, maxLen int64) *StreamChannel {
	return &StreamChannel{
		client: client,
		stream: stream,
		maxLen: maxLen,
		now:    time.Now,
	}
}

// Name 通道名称
func (s *StreamChannel) Name() string {
	return "redis_stream"
}

// Publish 以 data / event_id / subject_id / severity / timestamp 字段写入一条消息
func (s *StreamChannel) Publish(ctx context.Context, event *models.AlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"event_id":   event.EventID,
			"subject_id": event.SubjectID,
			"severity":   event.Severity,
			"timestamp":  s.now().Unix(),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", s.stream, err)
	}
	return nil
}
