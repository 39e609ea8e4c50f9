package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheManager Redis 缓存管理器（最近一次评估结果）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// AnalysisKey 构建评估结果缓存键
func (c *CacheManager) AnalysisKey(subjectID string) string {
	return c.config.Guardian.Cache.AnalysisKeyPrefix + subjectID
}

// SetAnalysis 写入评估结果（设置 TTL）
func (c *CacheManager) SetAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}

	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	key := c.AnalysisKey(result.SubjectID)
	ttl := time.Duration(c.config.Guardian.Cache.AnalysisTTL) * time.Second
	if err := c.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set analysis cache: %w", err)
	}

	c.logger.Debug("Updated analysis cache",
		zap.String("subject_id", result.SubjectID),
		zap.String("key", key),
		zap.String("overall_status", string(result.OverallStatus)),
	)
	return nil
}

// GetAnalysis 读取最近一次评估结果
func (c *CacheManager) GetAnalysis(ctx context.Context, subjectID string) (*models.AnalysisResult, error) {
	val, err := c.redisClient.Get(ctx, c.AnalysisKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("analysis", subjectID)
		}
		return nil, fmt.Errorf("failed to get analysis cache: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis result: %w", err)
	}
	return &result, nil
}

// InvalidateAnalysis 删除缓存的评估结果（阈值或画像变化后调用）
func (c *CacheManager) InvalidateAnalysis(ctx context.Context, subjectID string) error {
	if err := c.redisClient.Del(ctx, c.AnalysisKey(subjectID)).Err(); err != nil {
		return fmt.Errorf("failed to delete analysis cache: %w", err)
	}
	return nil
}
