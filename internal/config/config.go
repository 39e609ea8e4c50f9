package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"wisefido-guardian/internal/models"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置，Broker 为空时不发布 MQTT 告警
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	Topic    string // 告警发布主题前缀，如 "guardian/alerts"
}

// LLMConfig 文本生成服务配置，APIKey 为空时只使用确定性文本
type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	RequestTimeout   time.Duration // 单次 HTTP 请求超时
	NarrativeTimeout time.Duration // 评估路径上叙述生成的总预算
	EnrichTimeout    time.Duration // 学习路径上画像增强的总预算
	RetryCount       int
	RateLimit        float64 // 每秒请求数
	RateBurst        int
}

// Config 监护服务配置
type Config struct {
	TenantID string

	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	LLM      LLMConfig

	// 监护服务特定配置
	Guardian struct {
		// Redis 缓存配置
		Cache struct {
			AnalysisKeyPrefix string // 评估结果缓存键前缀，如 "guardian:analysis:"
			AnalysisTTL       int    // 评估结果 TTL（秒），默认 300秒
			LockKeyPrefix     string // 学习锁键前缀，如 "guardian:learning:"
			LockTTL           int    // 学习锁 TTL（秒），默认 120秒
			AlertStream       string // 告警 Stream 名称
		}

		PollInterval    int // 轮询间隔（秒），默认 10秒
		BatchSize       int // 每轮评估的被监护人数量上限，默认 50
		Concurrency     int // 单轮并发评估数，默认 8
		HistoryLimit    int // 趋势判断使用的历史样本数，默认 3
		WindowDays      int // 基线学习窗口（天），默认 30
		RelearnInterval int // 定时重新学习间隔（小时），0 表示不定时学习

		Timezone      string // 小时段判定使用的时区，默认 UTC
		FallbackZones []models.Zone
	}

	Metrics struct {
		Addr string // 为空时不启动 /metrics
	}

	Log struct {
		Level  string
		Format string
	}
}

// DefaultFallbackZones 被监护人没有配置安全区域时使用的默认区域（家在首位）
func DefaultFallbackZones() []models.Zone {
	return []models.Zone{
		{Name: "家", Latitude: 30.2741, Longitude: 120.1551, Radius: 200, Active: true, Priority: 0},
		{Name: "幸福社区公园", Latitude: 30.2761, Longitude: 120.1581, Radius: 300, Active: true, Priority: 1},
		{Name: "幸福社区菜市场", Latitude: 30.2721, Longitude: 120.1531, Radius: 200, Active: true, Priority: 2},
		{Name: "社区医院", Latitude: 30.2701, Longitude: 120.1601, Radius: 200, Active: true, Priority: 3},
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TenantID = getEnv("TENANT_ID", "")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-guardian")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.Topic = getEnv("MQTT_ALERT_TOPIC", "guardian/alerts")

	cfg.LLM.APIKey = getEnv("DEEPSEEK_API_KEY", "")
	cfg.LLM.BaseURL = getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	cfg.LLM.Model = getEnv("DEEPSEEK_MODEL", "deepseek-chat")
	cfg.LLM.RetryCount = getEnvInt("LLM_RETRY_COUNT", 1)
	cfg.LLM.RateBurst = getEnvInt("LLM_RATE_BURST", 2)

	var err error
	if cfg.LLM.RequestTimeout, err = getEnvDuration("LLM_REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLM.NarrativeTimeout, err = getEnvDuration("LLM_NARRATIVE_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLM.EnrichTimeout, err = getEnvDuration("LLM_ENRICH_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLM.RateLimit, err = strconv.ParseFloat(getEnv("LLM_RATE_LIMIT", "1"), 64); err != nil {
		return nil, fmt.Errorf("invalid LLM_RATE_LIMIT: %w", err)
	}

	// 监护服务配置
	cfg.Guardian.Cache.AnalysisKeyPrefix = getEnv("CACHE_ANALYSIS_PREFIX", "guardian:analysis:")
	cfg.Guardian.Cache.AnalysisTTL = getEnvInt("CACHE_ANALYSIS_TTL", 300)
	cfg.Guardian.Cache.LockKeyPrefix = getEnv("CACHE_LOCK_PREFIX", "guardian:learning:")
	cfg.Guardian.Cache.LockTTL = getEnvInt("CACHE_LOCK_TTL", 120)
	cfg.Guardian.Cache.AlertStream = getEnv("ALERT_STREAM", "guardian:alerts")

	cfg.Guardian.PollInterval = getEnvInt("POLL_INTERVAL", 10)
	cfg.Guardian.BatchSize = getEnvInt("BATCH_SIZE", 50)
	cfg.Guardian.Concurrency = getEnvInt("EVAL_CONCURRENCY", 8)
	cfg.Guardian.HistoryLimit = getEnvInt("HISTORY_LIMIT", 3)
	cfg.Guardian.WindowDays = getEnvInt("BASELINE_WINDOW_DAYS", 30)
	cfg.Guardian.RelearnInterval = getEnvInt("RELEARN_INTERVAL_HOURS", 24)

	cfg.Guardian.Timezone = getEnv("GUARDIAN_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(cfg.Guardian.Timezone); err != nil {
		return nil, fmt.Errorf("invalid GUARDIAN_TIMEZONE: %w", err)
	}

	cfg.Guardian.FallbackZones = DefaultFallbackZones()
	if raw := os.Getenv("GUARDIAN_FALLBACK_ZONES"); raw != "" {
		var zones []models.Zone
		if err := json.Unmarshal([]byte(raw), &zones); err != nil {
			return nil, fmt.Errorf("invalid GUARDIAN_FALLBACK_ZONES: %w", err)
		}
		for i := range zones {
			if zones[i].Radius <= 0 {
				return nil, fmt.Errorf("invalid GUARDIAN_FALLBACK_ZONES: zone %q radius must be positive", zones[i].Name)
			}
			zones[i].Active = true
		}
		cfg.Guardian.FallbackZones = zones
	}

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9102")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// Location 返回配置的时区
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Guardian.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
