package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/baseline"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/consumer"
	"wisefido-guardian/internal/enrichment"
	"wisefido-guardian/internal/evaluator"
	"wisefido-guardian/internal/metrics"
	"wisefido-guardian/internal/models"
	"wisefido-guardian/internal/notifier"
	"wisefido-guardian/internal/repository"
	"wisefido-guardian/internal/threshold"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SubjectStore 被监护人读取
type SubjectStore interface {
	consumer.SubjectLister
	GetSubject(ctx context.Context, tenantID, subjectID string) (*models.Subject, error)
}

// SampleStore 样本读取
type SampleStore interface {
	GetLatestSample(ctx context.Context, subjectID string) (*models.Sample, error)
	ListRecentSamples(ctx context.Context, subjectID string, limit int) ([]models.Sample, error)
	ListSamplesSince(ctx context.Context, subjectID string, since time.Time) ([]models.Sample, error)
}

// ZoneStore 安全区域读取
type ZoneStore interface {
	ListActiveZones(ctx context.Context, subjectID string) ([]models.Zone, error)
}

// SettingsStore 手动阈值读写
type SettingsStore interface {
	threshold.SettingsSource
	UpsertSettings(ctx context.Context, s *models.ThresholdSettings) error
	DeleteSettings(ctx context.Context, subjectID string) error
}

// ProfileStore 画像读写
type ProfileStore interface {
	threshold.ProfileSource
	UpsertProfile(ctx context.Context, p *models.BaselineProfile) error
}

// AlertStore 告警写入
type AlertStore interface {
	CreateAlertEvent(ctx context.Context, tenantID string, event *models.AlertEvent) error
}

// AlertPublisher 告警推送
type AlertPublisher interface {
	Publish(ctx context.Context, event *models.AlertEvent) error
}

// Components 服务依赖的各层组件
type Components struct {
	Subjects SubjectStore
	Samples  SampleStore
	Zones    ZoneStore
	Settings SettingsStore
	Profiles ProfileStore
	Alerts   AlertStore

	Cache     *consumer.CacheManager
	State     *consumer.StateManager
	Publisher AlertPublisher
	Narrator  *enrichment.ResilientNarrator
	Learner   *baseline.Learner
}

// GuardianService 监护服务（整合各层）
type GuardianService struct {
	config   *config.Config
	logger   *zap.Logger
	tenantID string

	subjects SubjectStore
	samples  SampleStore
	zones    ZoneStore
	settings SettingsStore
	profiles ProfileStore
	alerts   AlertStore

	cache     *consumer.CacheManager
	state     *consumer.StateManager
	publisher AlertPublisher
	narrator  *enrichment.ResilientNarrator
	learner   *baseline.Learner

	resolver     *threshold.Resolver
	evaluator    *evaluator.Evaluator
	alertBuilder *evaluator.AlertEventBuilder
	consumer     *consumer.SubjectConsumer
	now          func() time.Time

	// 由 NewGuardianService 打开，Stop 时关闭
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *notifier.MQTTClient
}

// NewGuardianService 连接数据库、Redis、MQTT 并创建服务
func NewGuardianService(cfg *config.Config, logger *zap.Logger, tenantID string) (*GuardianService, error) {
	// 1. 连接数据库
	db, err := repository.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 告警通道：Stream 必选，MQTT 可选
	channels := []notifier.Channel{
		notifier.NewStreamChannel(redisClient, cfg.Guardian.Cache.AlertStream, 10000),
	}
	var mqttClient *notifier.MQTTClient
	if cfg.MQTT.Broker != "" {
		mqttClient, err = notifier.NewMQTTClient(&cfg.MQTT, logger)
		if err != nil {
			db.Close()
			redisClient.Close()
			return nil, err
		}
		channels = append(channels, notifier.NewMQTTChannel(mqttClient, cfg.MQTT.Topic, cfg.MQTT.QoS))
	}

	// 4. 文本生成服务：未配置 API key 时只使用确定性文本
	var primary enrichment.Narrator
	var enricher baseline.Enricher
	if cfg.LLM.APIKey != "" {
		client := enrichment.NewChatClient(enrichment.ClientConfig{
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.RequestTimeout,
			RetryCount: cfg.LLM.RetryCount,
			RateLimit:  cfg.LLM.RateLimit,
			RateBurst:  cfg.LLM.RateBurst,
		}, logger)
		primary = enrichment.NewLLMNarrator(client)
		enricher = enrichment.NewBaselineEnricher(client)
	} else {
		logger.Info("DEEPSEEK_API_KEY not set, using deterministic narratives")
	}

	s := newGuardianService(cfg, logger, tenantID, Components{
		Subjects:  repository.NewSubjectRepository(db, logger),
		Samples:   repository.NewSampleRepository(db, logger),
		Zones:     repository.NewZoneRepository(db, logger),
		Settings:  repository.NewSettingsRepository(db, logger),
		Profiles:  repository.NewProfileRepository(db, logger),
		Alerts:    repository.NewAlertRepository(db, logger),
		Cache:     consumer.NewCacheManager(cfg, redisClient, logger),
		State:     consumer.NewStateManager(cfg, redisClient, logger),
		Publisher: notifier.NewNotifier(logger, channels...),
		Narrator:  enrichment.NewResilientNarrator(primary, cfg.LLM.NarrativeTimeout, logger),
		Learner:   baseline.NewLearner(enricher, cfg.LLM.EnrichTimeout, logger),
	})
	s.db = db
	s.redisClient = redisClient
	s.mqttClient = mqttClient
	return s, nil
}

func newGuardianService(cfg *config.Config, logger *zap.Logger, tenantID string, c Components) *GuardianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianService{
		config:       cfg,
		logger:       logger,
		tenantID:     tenantID,
		subjects:     c.Subjects,
		samples:      c.Samples,
		zones:        c.Zones,
		settings:     c.Settings,
		profiles:     c.Profiles,
		alerts:       c.Alerts,
		cache:        c.Cache,
		state:        c.State,
		publisher:    c.Publisher,
		narrator:     c.Narrator,
		learner:      c.Learner,
		resolver:     threshold.NewResolver(logger),
		evaluator:    evaluator.NewEvaluator(cfg.Location(), logger),
		alertBuilder: evaluator.NewAlertEventBuilder(tenantID),
		consumer:     consumer.NewSubjectConsumer(cfg, c.Subjects, logger, tenantID),
		now:          time.Now,
	}
}

// Start 启动服务，阻塞到 ctx 取消
func (s *GuardianService) Start(ctx context.Context) error {
	s.logger.Info("Starting guardian service",
		zap.String("tenant_id", s.tenantID),
	)

	if err := s.consumer.Start(ctx, s, s); err != nil {
		return fmt.Errorf("failed to start subject consumer: %w", err)
	}
	return nil
}

// Stop 停止服务
func (s *GuardianService) Stop() error {
	s.logger.Info("Stopping guardian service")

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	return nil
}

// EvaluateSubject 评估被监护人的最新样本
// 同一样本已有缓存结果时直接返回，不重复告警
func (s *GuardianService) EvaluateSubject(ctx context.Context, subject models.Subject) (*models.AnalysisResult, error) {
	start := time.Now()
	subjectID := subject.SubjectID

	sample, err := s.samples.GetLatestSample(ctx, subjectID)
	if err != nil {
		metrics.RecordEvaluation("error", time.Since(start))
		return nil, apperrors.DependencyUnavailable("database", err)
	}
	if sample == nil {
		return nil, apperrors.NotFound("sample", subjectID)
	}
	if err := sample.Validate(); err != nil {
		s.logger.Warn("Skipping invalid sample",
			zap.String("subject_id", subjectID),
			zap.Int64("sample_id", sample.SampleID),
			zap.Error(err),
		)
		metrics.RecordEvaluation("invalid", time.Since(start))
		return nil, err
	}

	zones := s.activeZones(ctx, subjectID)
	fingerprint := models.ZonesFingerprint(zones)

	if cached := s.cachedResult(ctx, subjectID, sample, fingerprint); cached != nil {
		return cached, nil
	}

	history, err := s.samples.ListRecentSamples(ctx, subjectID, s.config.Guardian.HistoryLimit)
	if err != nil {
		s.degraded("database", subjectID, "Failed to load sample history, skipping trend", err)
		history = nil
	}

	// 每次评估新建画像缓存，同一次评估内画像只读取一次
	profileCache := threshold.NewProfileCache(s.profiles, s.settings, s.logger)
	thresholds := s.resolver.Resolve(ctx, profileCache, subjectID)

	result := s.evaluator.Evaluate(*sample, history, zones, thresholds)

	profile := profileCache.Profile(ctx, subjectID)
	comparison := baseline.Compare(profile, *sample, result.Activity.Hour)
	result.Comparison = &comparison

	payload := enrichment.BuildNarrativePayload(subject.DisplayName, *sample, &result, profile)
	if result.OverallStatus == models.StatusSafe {
		result.Narrative = enrichment.FallbackNarrative(payload)
	} else {
		result.Narrative = s.narrator.Narrate(ctx, payload)
	}
	result.ZonesFingerprint = fingerprint
	result.EvaluatedAt = s.now().UTC()

	if err := s.cache.SetAnalysis(ctx, &result); err != nil {
		s.degraded("redis", subjectID, "Failed to cache analysis result", err)
	}

	s.raiseAlert(ctx, *sample, &result)

	for _, d := range result.Dimensions() {
		if d.IsAnomaly {
			metrics.RecordAnomaly(string(d.Dimension), d.Severity.String())
		}
	}
	metrics.RecordEvaluation(string(result.OverallStatus), time.Since(start))

	return &result, nil
}

// cachedResult 同一样本且区域未变化时返回缓存结果
func (s *GuardianService) cachedResult(ctx context.Context, subjectID string, sample *models.Sample, zonesFingerprint string) *models.AnalysisResult {
	cached, err := s.cache.GetAnalysis(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.degraded("redis", subjectID, "Failed to read analysis cache", err)
		}
		return nil
	}
	if !cached.SampleTime.Equal(sample.RecordedAt) || cached.ZonesFingerprint != zonesFingerprint {
		return nil
	}
	return cached
}

// activeZones 被监护人的启用区域，没有或读取失败时使用默认区域
func (s *GuardianService) activeZones(ctx context.Context, subjectID string) []models.Zone {
	zones, err := s.zones.ListActiveZones(ctx, subjectID)
	if err != nil {
		s.degraded("database", subjectID, "Failed to load zones, using fallback zones", err)
		return s.config.Guardian.FallbackZones
	}
	if len(zones) == 0 {
		return s.config.Guardian.FallbackZones
	}
	return zones
}

func (s *GuardianService) raiseAlert(ctx context.Context, sample models.Sample, result *models.AnalysisResult) {
	event, err := s.alertBuilder.BuildAlertEvent(sample, result)
	if err != nil {
		s.logger.Error("Failed to build alert event",
			zap.String("subject_id", result.SubjectID),
			zap.Error(err),
		)
		return
	}
	if event == nil {
		return
	}

	if err := s.alerts.CreateAlertEvent(ctx, s.tenantID, event); err != nil {
		s.degraded("database", result.SubjectID, "Failed to persist alert event", err)
	}
	if s.publisher != nil {
		// 各通道的失败已由 publisher 记录
		_ = s.publisher.Publish(ctx, event)
	}

	s.logger.Info("Alert raised",
		zap.String("subject_id", result.SubjectID),
		zap.String("event_id", event.EventID),
		zap.String("severity", event.Severity),
		zap.String("overall_risk", event.OverallRisk),
	)
}

// LearnBaseline 学习并保存个人基线
// 其他实例正在学习同一被监护人时返回 consumer.ErrLearningInProgress
func (s *GuardianService) LearnBaseline(ctx context.Context, subject models.Subject, days int) (*models.BaselineProfile, error) {
	subjectID := subject.SubjectID
	if days <= 0 {
		days = s.config.Guardian.WindowDays
	}

	release, err := s.state.AcquireLearningLock(ctx, subjectID)
	if err != nil {
		if errors.Is(err, consumer.ErrLearningInProgress) {
			metrics.RecordLearning("locked")
			return nil, err
		}
		return nil, apperrors.DependencyUnavailable("redis", err)
	}
	defer release()

	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	samples, err := s.samples.ListSamplesSince(ctx, subjectID, since)
	if err != nil {
		metrics.RecordLearning("error")
		return nil, apperrors.DependencyUnavailable("database", err)
	}

	valid := make([]models.Sample, 0, len(samples))
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			s.logger.Warn("Skipping invalid sample for learning",
				zap.String("subject_id", subjectID),
				zap.Int64("sample_id", sample.SampleID),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, sample)
	}

	profile, err := s.learner.Learn(ctx, baseline.LearnRequest{
		SubjectID:   subjectID,
		SubjectName: subject.DisplayName,
		Samples:     valid,
		Zones:       s.activeZones(ctx, subjectID),
		Days:        days,
	})
	if err != nil {
		return nil, err
	}

	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		metrics.RecordLearning("error")
		return nil, apperrors.DependencyUnavailable("database", err)
	}

	s.invalidate(ctx, subjectID)
	return profile, nil
}

// GetSubject 按 ID 获取本租户的被监护人
func (s *GuardianService) GetSubject(ctx context.Context, subjectID string) (*models.Subject, error) {
	subject, err := s.subjects.GetSubject(ctx, s.tenantID, subjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.DependencyUnavailable("database", err)
	}
	return subject, nil
}

// GetProfile 获取已学习的个人基线
func (s *GuardianService) GetProfile(ctx context.Context, subjectID string) (*models.BaselineProfile, error) {
	profile, err := s.profiles.GetProfile(ctx, subjectID)
	if err != nil {
		return nil, apperrors.DependencyUnavailable("database", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("baseline profile", subjectID)
	}
	return profile, nil
}

// GetSettings 获取手动设置，没有时返回默认设置
func (s *GuardianService) GetSettings(ctx context.Context, subjectID string) (*models.ThresholdSettings, error) {
	settings, err := s.settings.GetSettings(ctx, subjectID)
	if err != nil {
		return nil, apperrors.DependencyUnavailable("database", err)
	}
	if settings == nil {
		defaults := models.DefaultThresholdSettings(subjectID)
		return &defaults, nil
	}
	return settings, nil
}

// UpdateSettings 校验并保存手动设置，非法设置返回 *apperrors.ValidationError
func (s *GuardianService) UpdateSettings(ctx context.Context, settings models.ThresholdSettings) (*models.ThresholdSettings, error) {
	if settings.SubjectID == "" {
		return nil, apperrors.Validation("subject_id", "subject_id is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settings.UpdatedAt = s.now().UTC()
	if err := s.settings.UpsertSettings(ctx, &settings); err != nil {
		return nil, apperrors.DependencyUnavailable("database", err)
	}

	s.logger.Info("Threshold settings updated",
		zap.String("subject_id", settings.SubjectID),
		zap.Int("hr_low", settings.HeartRateLow),
		zap.Int("hr_high", settings.HeartRateHigh),
	)
	s.invalidate(ctx, settings.SubjectID)
	return &settings, nil
}

// ResetSettings 删除手动设置，恢复默认阈值
func (s *GuardianService) ResetSettings(ctx context.Context, subjectID string) (*models.ThresholdSettings, error) {
	if err := s.settings.DeleteSettings(ctx, subjectID); err != nil {
		return nil, apperrors.DependencyUnavailable("database", err)
	}

	s.logger.Info("Threshold settings reset", zap.String("subject_id", subjectID))
	s.invalidate(ctx, subjectID)

	defaults := models.DefaultThresholdSettings(subjectID)
	return &defaults, nil
}

// invalidate 阈值或画像变化后删除缓存结果，下一轮重新评估
func (s *GuardianService) invalidate(ctx context.Context, subjectID string) {
	if err := s.cache.InvalidateAnalysis(ctx, subjectID); err != nil {
		s.degraded("redis", subjectID, "Failed to invalidate analysis cache", err)
	}
}

func (s *GuardianService) degraded(dependency, subjectID, msg string, err error) {
	s.logger.Warn(msg,
		zap.String("subject_id", subjectID),
		zap.String("dependency", dependency),
		zap.Error(err),
	)
	metrics.RecordDegradation(dependency)
}
