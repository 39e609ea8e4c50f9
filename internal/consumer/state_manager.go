package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wisefido-guardian/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLearningInProgress 同一被监护人的基线学习正在进行
var ErrLearningInProgress = errors.New("baseline learning already in progress")

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// StateManager 跨进程状态管理器（基线学习锁）
type StateManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewStateManager 创建状态管理器
func NewStateManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *StateManager {
	return &StateManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// LockKey 构建学习锁键
func (s *StateManager) LockKey(subjectID string) string {
	return s.config.Guardian.Cache.LockKeyPrefix + subjectID
}

// AcquireLearningLock 获取学习锁，已被持有时返回 ErrLearningInProgress
// 返回的 release 可重复调用
func (s *StateManager) AcquireLearningLock(ctx context.Context, subjectID string) (func(), error) {
	key := s.LockKey(subjectID)
	token := uuid.New().String()
	ttl := time.Duration(s.config.Guardian.Cache.LockTTL) * time.Second

	ok, err := s.redisClient.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire learning lock: %w", err)
	}
	if !ok {
		return nil, ErrLearningInProgress
	}

	release := func() {
		// 调用方的 ctx 可能已取消，释放锁使用独立的短超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, s.redisClient, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn("Failed to release learning lock",
				zap.String("subject_id", subjectID),
				zap.Error(err),
			)
		}
	}
	return release, nil
}
