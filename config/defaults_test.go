package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, LLMConfig{}, cfg.LLM)
	assert.NotEqual(t, FlowConfig{}, cfg.Flow)
	assert.NotEqual(t, HatsConfig{}, cfg.Hats)
	assert.NotEqual(t, MemoryConfig{}, cfg.Memory)
	assert.NotEqual(t, SessionsConfig{}, cfg.Sessions)
	assert.NotEqual(t, MissionsConfig{}, cfg.Missions)
	assert.NotEqual(t, RedisConfig{}, cfg.Redis)
	assert.NotEqual(t, DatabaseConfig{}, cfg.Database)
	assert.NotEqual(t, NATSConfig{}, cfg.NATS)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestDefaultFlowConfig(t *testing.T) {
	cfg := DefaultFlowConfig()
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 3, cfg.MemoryTopK)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AnalystModel)
}

func TestDefaultBackends(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "file", cfg.Hats.Store)
	assert.Equal(t, "memory", cfg.Memory.Backend)
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.Equal(t, "file", cfg.Missions.Backend)
	assert.False(t, cfg.UsesRedis())
	assert.False(t, cfg.UsesDatabase())
	assert.False(t, cfg.NATS.Enabled)
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.APIKeys)
	assert.Empty(t, cfg.JWTSecret)
}
