package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "", cfg.TenantID)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "owlrd", cfg.Database.Database)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=owlrd sslmode=disable", cfg.Database.GetDSN())

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "", cfg.MQTT.Broker)
	assert.Equal(t, "guardian/alerts", cfg.MQTT.Topic)

	assert.Equal(t, "", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.deepseek.com", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 8*time.Second, cfg.LLM.NarrativeTimeout)
	assert.Equal(t, 1.0, cfg.LLM.RateLimit)

	assert.Equal(t, "guardian:analysis:", cfg.Guardian.Cache.AnalysisKeyPrefix)
	assert.Equal(t, 300, cfg.Guardian.Cache.AnalysisTTL)
	assert.Equal(t, "guardian:learning:", cfg.Guardian.Cache.LockKeyPrefix)
	assert.Equal(t, 10, cfg.Guardian.PollInterval)
	assert.Equal(t, 30, cfg.Guardian.WindowDays)
	assert.Equal(t, 3, cfg.Guardian.HistoryLimit)
	assert.Equal(t, time.UTC, cfg.Location())

	require.Len(t, cfg.Guardian.FallbackZones, 4)
	assert.Equal(t, "家", cfg.Guardian.FallbackZones[0].Name)
	assert.Equal(t, 200.0, cfg.Guardian.FallbackZones[0].Radius)
	assert.Equal(t, "幸福社区公园", cfg.Guardian.FallbackZones[1].Name)
	assert.Equal(t, 300.0, cfg.Guardian.FallbackZones[1].Radius)
	for _, z := range cfg.Guardian.FallbackZones {
		assert.True(t, z.Active)
	}

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("TENANT_ID", "test-tenant")
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("LLM_NARRATIVE_TIMEOUT", "3s")
	t.Setenv("GUARDIAN_TIMEZONE", "Asia/Shanghai")
	t.Setenv("GUARDIAN_FALLBACK_ZONES", `[{"name":"家","lat":31.2,"lng":121.5,"radius":150}]`)
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-tenant", cfg.TenantID)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 3*time.Second, cfg.LLM.NarrativeTimeout)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
	assert.Equal(t, 30, cfg.Guardian.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.Len(t, cfg.Guardian.FallbackZones, 1)
	assert.Equal(t, 31.2, cfg.Guardian.FallbackZones[0].Latitude)
	assert.True(t, cfg.Guardian.FallbackZones[0].Active)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"GUARDIAN_TIMEZONE":       "Mars/Olympus",
		"GUARDIAN_FALLBACK_ZONES": `not-json`,
		"LLM_REQUEST_TIMEOUT":     "soon",
		"LLM_RATE_LIMIT":          "fast",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			os.Clearenv()
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("zero radius", func(t *testing.T) {
		os.Clearenv()
		t.Setenv("GUARDIAN_FALLBACK_ZONES", `[{"name":"家","lat":31.2,"lng":121.5,"radius":0}]`)

		_, err := Load()
		assert.Error(t, err)
	})
}
