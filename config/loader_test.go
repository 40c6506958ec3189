// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "hatflow.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  api_keys: ["k1", "k2"]

llm:
  provider: "ollama"
  base_url: "http://localhost:11434/v1"
  default_model: "llama3"

flow:
  generation_timeout: 90s
  memory_top_k: 5

memory:
  backend: "redis"
  max_entries: 50

redis:
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

database:
  driver: "postgres"

missions:
  backend: "database"

log:
  level: "debug"
  format: "console"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.DefaultModel)
	assert.Equal(t, 90*time.Second, cfg.Flow.GenerationTimeout)
	assert.Equal(t, 5, cfg.Flow.MemoryTopK)

	assert.Equal(t, "redis", cfg.Memory.Backend)
	assert.Equal(t, 50, cfg.Memory.MaxEntries)
	assert.True(t, cfg.UsesRedis())
	assert.True(t, cfg.UsesDatabase())

	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未在 YAML 中出现的字段保留默认值
	assert.Equal(t, "missions", cfg.Missions.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("HATFLOW_SERVER_HTTP_PORT", "7777")
	t.Setenv("HATFLOW_LLM_API_KEY", "sk-test")
	t.Setenv("HATFLOW_FLOW_GENERATION_TIMEOUT", "15s")
	t.Setenv("HATFLOW_SESSIONS_BACKEND", "redis")
	t.Setenv("HATFLOW_NATS_ENABLED", "true")
	t.Setenv("HATFLOW_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("HATFLOW_LLM_TEMPERATURE", "0.2")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Flow.GenerationTimeout)
	assert.Equal(t, "redis", cfg.Sessions.Backend)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "hatflow.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
server:
  http_port: 8888
llm:
  default_model: "yaml-model"
  provider: "vllm"
`), 0644))

	t.Setenv("HATFLOW_SERVER_HTTP_PORT", "9999")
	t.Setenv("HATFLOW_LLM_PROVIDER", "openai")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "yaml-model", cfg.LLM.DefaultModel)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestLoader_InvalidInput(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0644))
	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)

	t.Setenv("HATFLOW_SERVER_HTTP_PORT", "not-a-number")
	_, err = NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_Validator(t *testing.T) {
	t.Setenv("HATFLOW_HATS_STORE", "s3")
	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hats.store")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"negative timeout", func(c *Config) { c.Flow.GenerationTimeout = -time.Second }, "generation_timeout"},
		{"file store without dir", func(c *Config) { c.Hats.Dir = "" }, "hats.dir"},
		{"unknown memory backend", func(c *Config) { c.Memory.Backend = "etcd" }, "memory.backend"},
		{"unknown driver", func(c *Config) { c.Missions.Backend = "database"; c.Database.Driver = "oracle" }, "database.driver"},
		{"nats without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }, "nats.url"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.Driver = "mysql"
	d.Port = 3306
	assert.Equal(t, "u:p@tcp(db:3306)/n?parseTime=true", d.DSN())

	d.Driver = "sqlite"
	assert.Equal(t, "n", d.DSN())

	d.Driver = "oracle"
	assert.Empty(t, d.DSN())
}
