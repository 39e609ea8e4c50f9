package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SubjectLister 被监护人列表来源（repository.SubjectRepository 实现）
type SubjectLister interface {
	ListActiveSubjects(ctx context.Context, tenantID string, limit int) ([]models.Subject, error)
}

// Evaluator 单个被监护人的评估入口
type Evaluator interface {
	EvaluateSubject(ctx context.Context, subject models.Subject) (*models.AnalysisResult, error)
}

// Learner 单个被监护人的基线学习入口
type Learner interface {
	LearnBaseline(ctx context.Context, subject models.Subject, days int) (*models.BaselineProfile, error)
}

// SubjectConsumer 轮询消费者：定期评估全部被监护人，并按间隔重新学习基线
type SubjectConsumer struct {
	config   *config.Config
	subjects SubjectLister
	logger   *zap.Logger
	tenantID string
}

// NewSubjectConsumer 创建消费者
func NewSubjectConsumer(
	cfg *config.Config,
	subjects SubjectLister,
	logger *zap.Logger,
	tenantID string,
) *SubjectConsumer {
	return &SubjectConsumer{
		config:   cfg,
		subjects: subjects,
		logger:   logger,
		tenantID: tenantID,
	}
}

// Start 启动消费者（轮询模式），ctx 取消后返回
// learner 为 nil 或 RelearnInterval <= 0 时不定时学习
func (c *SubjectConsumer) Start(ctx context.Context, evaluator Evaluator, learner Learner) error {
	pollInterval := time.Duration(c.config.Guardian.PollInterval) * time.Second
	if pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	c.logger.Info("Subject consumer started",
		zap.String("tenant_id", c.tenantID),
		zap.Int("poll_interval", c.config.Guardian.PollInterval),
		zap.Int("relearn_interval_hours", c.config.Guardian.RelearnInterval),
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var relearn <-chan time.Time
	if learner != nil && c.config.Guardian.RelearnInterval > 0 {
		relearnTicker := time.NewTicker(time.Duration(c.config.Guardian.RelearnInterval) * time.Hour)
		defer relearnTicker.Stop()
		relearn = relearnTicker.C
	}

	// 立即执行一次
	if err := c.EvaluateAll(ctx, evaluator); err != nil {
		c.logger.Error("Failed to evaluate subjects on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Subject consumer stopped")
			return nil
		case <-ticker.C:
			if err := c.EvaluateAll(ctx, evaluator); err != nil {
				c.logger.Error("Failed to evaluate subjects", zap.Error(err))
			}
		case <-relearn:
			if err := c.LearnAll(ctx, learner); err != nil {
				c.logger.Error("Failed to relearn baselines", zap.Error(err))
			}
		}
	}
}

// EvaluateAll 评估一轮，单个被监护人失败只记录日志
func (c *SubjectConsumer) EvaluateAll(ctx context.Context, evaluator Evaluator) error {
	subjects, err := c.subjects.ListActiveSubjects(ctx, c.tenantID, c.config.Guardian.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}

	c.logger.Debug("Evaluating subjects", zap.Int("subject_count", len(subjects)))

	return c.forEach(ctx, subjects, func(ctx context.Context, subject models.Subject) {
		_, err := evaluator.EvaluateSubject(ctx, subject)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrNotFound):
			// 还没有样本
			c.logger.Debug("Skipped subject evaluation",
				zap.String("subject_id", subject.SubjectID),
				zap.Error(err),
			)
		default:
			c.logger.Error("Failed to evaluate subject",
				zap.String("subject_id", subject.SubjectID),
				zap.Error(err),
			)
		}
	})
}

// LearnAll 为全部被监护人重新学习基线
// 数据不足与学习进行中属于正常情况，只记 Debug
func (c *SubjectConsumer) LearnAll(ctx context.Context, learner Learner) error {
	subjects, err := c.subjects.ListActiveSubjects(ctx, c.tenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}

	return c.forEach(ctx, subjects, func(ctx context.Context, subject models.Subject) {
		_, err := learner.LearnBaseline(ctx, subject, c.config.Guardian.WindowDays)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInsufficientData), errors.Is(err, ErrLearningInProgress):
			c.logger.Debug("Skipped baseline learning",
				zap.String("subject_id", subject.SubjectID),
				zap.Error(err),
			)
		default:
			c.logger.Error("Failed to learn baseline",
				zap.String("subject_id", subject.SubjectID),
				zap.Error(err),
			)
		}
	})
}

func (c *SubjectConsumer) forEach(ctx context.Context, subjects []models.Subject, fn func(context.Context, models.Subject)) error {
	concurrency := c.config.Guardian.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, subject := range subjects {
		if gctx.Err() != nil {
			break
		}
		subject := subject
		g.Go(func() error {
			fn(gctx, subject)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
