// Package config 加载服务配置（YAML文件 + 环境变量覆盖）
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPort 未配置时的监听端口
const DefaultPort = 8000

// Config 服务配置
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Model   ModelConfig   `yaml:"model"`
	Log     LogConfig     `yaml:"log"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// ModelConfig 模型文件配置
type ModelConfig struct {
	Path string `yaml:"path"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`        // 为空则只输出到控制台
	MaxSizeMB  int    `yaml:"max_size_mb"` // 单个日志文件大小上限
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuditConfig 预测审计配置
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	CacheSize     int    `yaml:"cache_size"`
	RetentionDays int    `yaml:"retention_days"`
	PurgeSchedule string `yaml:"purge_schedule"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default 默认配置
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:         DefaultPort,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			MaxBodyBytes: 64 << 10,
		},
		Model: ModelConfig{
			Path: "fraud_detection_package.json",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        "data/predictions.db",
			CacheSize:     1024,
			RetentionDays: 30,
			PurgeSchedule: "@daily",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load 读取配置文件并应用环境变量覆盖。文件不存在时使用默认配置。
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyEnv(config *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		config.HTTP.Port = port
	}
	envOverride(&config.Model.Path, "MODEL_PATH")
	envOverride(&config.Log.Level, "LOG_LEVEL")
	envOverride(&config.Audit.DBPath, "AUDIT_DB_PATH")
	return nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	if c.Audit.Enabled && c.Audit.DBPath == "" {
		return errors.New("audit.db_path is required when audit is enabled")
	}
	if c.Audit.CacheSize <= 0 {
		return errors.New("audit.cache_size must be positive")
	}
	return nil
}

// Addr 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
