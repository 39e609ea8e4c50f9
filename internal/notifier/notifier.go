package notifier

import (
	"context"
	"errors"

	"wisefido-guardian/internal/metrics"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// Channel 单个告警推送通道
type Channel interface {
	Name() string
	Publish(ctx context.Context, event *models.AlertEvent) error
}

// Notifier 告警扇出：依次推送到全部通道，单个通道失败不影响其他通道
type Notifier struct {
	channels []Channel
	logger   *zap.Logger
}

// NewNotifier 创建告警扇出，nil 通道会被忽略
func NewNotifier(logger *zap.Logger, channels ...Channel) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{logger: logger}
	for _, ch := range channels {
		if ch != nil {
			n.channels = append(n.channels, ch)
		}
	}
	return n
}

// Publish 推送告警，返回所有失败通道的错误
func (n *Notifier) Publish(ctx context.Context, event *models.AlertEvent) error {
	if event == nil {
		return nil
	}

	var errs []error
	for _, ch := range n.channels {
		err := ch.Publish(ctx, event)
		metrics.RecordAlertPublished(ch.Name(), err)
		if err != nil {
			n.logger.Warn("Failed to publish alert",
				zap.String("channel", ch.Name()),
				zap.String("event_id", event.EventID),
				zap.String("subject_id", event.SubjectID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		n.logger.Debug("Published alert",
			zap.String("channel", ch.Name()),
			zap.String("event_id", event.EventID),
		)
	}
	return errors.Join(errs...)
}
