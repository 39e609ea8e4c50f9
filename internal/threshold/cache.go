package threshold

import (
	"context"
	"sync"

	"wisefido-guardian/internal/metrics"
	"wisefido-guardian/internal/models"

	"go.uber.org/zap"
)

// ProfileSource 画像读取接口（repository.ProfileRepository 实现）
// 不存在时返回 (nil, nil)
type ProfileSource interface {
	GetProfile(ctx context.Context, subjectID string) (*models.BaselineProfile, error)
}

// SettingsSource 手动阈值读取接口（repository.SettingsRepository 实现）
// 不存在时返回 (nil, nil)
type SettingsSource interface {
	GetSettings(ctx context.Context, subjectID string) (*models.ThresholdSettings, error)
}

// ProfileCache 单次评估范围内的画像/设置缓存
// 每次评估新建一个，用完即弃，不在请求之间共享
type ProfileCache struct {
	profiles ProfileSource
	settings SettingsSource
	logger   *zap.Logger

	mu           sync.Mutex
	profileDone  map[string]bool
	profileVals  map[string]*models.BaselineProfile
	settingsDone map[string]bool
	settingsVals map[string]*models.ThresholdSettings
}

// NewProfileCache 创建单次评估缓存，profiles / settings 可以为 nil
func NewProfileCache(profiles ProfileSource, settings SettingsSource, logger *zap.Logger) *ProfileCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileCache{
		profiles:     profiles,
		settings:     settings,
		logger:       logger,
		profileDone:  make(map[string]bool),
		profileVals:  make(map[string]*models.BaselineProfile),
		settingsDone: make(map[string]bool),
		settingsVals: make(map[string]*models.ThresholdSettings),
	}
}

// Profile 获取画像，存储不可用时记录警告并当作没有画像
func (c *ProfileCache) Profile(ctx context.Context, subjectID string) *models.BaselineProfile {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.profileDone[subjectID] {
		return c.profileVals[subjectID]
	}
	c.profileDone[subjectID] = true

	if c.profiles == nil {
		return nil
	}

	profile, err := c.profiles.GetProfile(ctx, subjectID)
	if err != nil {
		c.logger.Warn("Profile store unavailable, continuing without baseline",
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		metrics.RecordDegradation("profile_store")
		return nil
	}

	c.profileVals[subjectID] = profile
	return profile
}

// Settings 获取手动设置，存储不可用时记录警告并当作没有设置
func (c *ProfileCache) Settings(ctx context.Context, subjectID string) *models.ThresholdSettings {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settingsDone[subjectID] {
		return c.settingsVals[subjectID]
	}
	c.settingsDone[subjectID] = true

	if c.settings == nil {
		return nil
	}

	settings, err := c.settings.GetSettings(ctx, subjectID)
	if err != nil {
		c.logger.Warn("Settings store unavailable, continuing with defaults",
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		metrics.RecordDegradation("settings_store")
		return nil
	}

	c.settingsVals[subjectID] = settings
	return settings
}
