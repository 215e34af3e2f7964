package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config clinic-intake 配置
type Config struct {
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Call CallConfig
	// SnapshotTTLHours 会话快照在 KV 里的保留时长（小时）
	SnapshotTTLHours int
}

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

// CallConfig 外呼 webhook 配置
type CallConfig struct {
	WebhookURL     string // 外呼工作流 webhook 地址，空则禁用外呼触发
	TimeoutSeconds int
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}

	// Default to true for local dev: if DB is unavailable, clinic-intake will fall back
	// to the in-memory repository instead of refusing to start.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "clinic")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 外呼配置（默认关闭，只有配置了 webhook 地址才会触发外呼）
	cfg.Call.WebhookURL = getEnv("CALL_WEBHOOK_URL", "")
	cfg.Call.TimeoutSeconds = parseInt(getEnv("CALL_TIMEOUT_SECONDS", "30"), 30)

	cfg.SnapshotTTLHours = parseInt(getEnv("SNAPSHOT_TTL_HOURS", "24"), 24)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
