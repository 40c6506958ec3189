// =============================================================================
// 📦 HatFlow 默认配置
// =============================================================================
// 默认值面向单机运行：内存存储、文件归档、不依赖外部服务
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Flow:      DefaultFlowConfig(),
		Hats:      DefaultHatsConfig(),
		Memory:    DefaultMemoryConfig(),
		Sessions:  DefaultSessionsConfig(),
		Missions:  DefaultMissionsConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		NATS:      DefaultNATSConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:     "openai",
		DefaultModel: "gpt-3.5-turbo",
		Timeout:      2 * time.Minute,
		Temperature:  0.7,
		MaxTokens:    1000,
	}
}

// DefaultFlowConfig 返回默认团队流程配置
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		GenerationTimeout: 60 * time.Second,
		MemoryTopK:        3,
		AnalystModel:      "gpt-3.5-turbo",
	}
}

// DefaultHatsConfig 返回默认 Hat 存储配置
func DefaultHatsConfig() HatsConfig {
	return HatsConfig{
		Store: "file",
		Dir:   "hats",
	}
}

// DefaultMemoryConfig 返回默认记忆配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend:    "memory",
		MaxEntries: 500,
		KeyPrefix:  "hatflow:",
	}
}

// DefaultSessionsConfig 返回默认会话配置
func DefaultSessionsConfig() SessionsConfig {
	return SessionsConfig{
		Backend:     "memory",
		SnapshotTTL: 24 * time.Hour,
		KeyPrefix:   "hatflow:",
	}
}

// DefaultMissionsConfig 返回默认归档配置
func DefaultMissionsConfig() MissionsConfig {
	return MissionsConfig{
		Backend: "file",
		Dir:     "missions",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "hatflow",
		Name:            "hatflow.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultNATSConfig 返回默认 NATS 配置
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Enabled:       false,
		URL:           "nats://localhost:4222",
		SubjectPrefix: "hatflow.sessions",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "hatflow",
		SampleRate:   0.1,
	}
}
