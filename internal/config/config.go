package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	AI       AIConfig
	Pipeline PipelineConfig
	Export   ExportConfig
	Metrics  MetricsConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// StorageConfig 存储配置
// sqlite 下每次运行一个文件；postgres 下每次运行一个 schema
type StorageConfig struct {
	Driver       string
	Dir          string
	Baseline     string
	Postgres     PostgresConfig
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// PostgresConfig Postgres 连接配置
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig Redis配置（运行锁）
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	LockTTL  int
}

// AIConfig AI配置
type AIConfig struct {
	Provider string
	OpenAI   OpenAIConfig
	DeepSeek DeepSeekConfig
	Creative ProfileConfig
	Fast     ProfileConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ByAzure    bool
	APIVersion string
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
}

// ProfileConfig 生成模型档位配置（creative / fast）
type ProfileConfig struct {
	Model       string
	Temperature float32
	Seed        int
	MaxTokens   int
	Timeout     int
}

// PipelineConfig 流水线配置
type PipelineConfig struct {
	MaxAttempts   int
	Fallback      string
	Concurrency   int
	FailurePolicy string
	BatchSize     int
	MaxRunSteps   int
}

// ExportConfig 导出配置
type ExportConfig struct {
	Dir string
	// Normalize 替换弯引号和长破折号，默认关闭
	Normalize bool
	Summary   bool
	Storage   string
	MinIO     MinIOConfig
}

// MinIOConfig MinIO 镜像上传配置
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLPrefix string
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Textfile string
}

// Load 加载配置
// 文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_DATASET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	switch c.Pipeline.Fallback {
	case "reject", "accept_last":
	default:
		return fmt.Errorf("unsupported fallback policy: %s", c.Pipeline.Fallback)
	}
	switch c.Pipeline.FailurePolicy {
	case "abort", "partial":
	default:
		return fmt.Errorf("unsupported failure policy: %s", c.Pipeline.FailurePolicy)
	}
	switch c.Export.Storage {
	case "local", "minio":
	default:
		return fmt.Errorf("unsupported export storage: %s", c.Export.Storage)
	}
	if c.Pipeline.MaxAttempts < 0 {
		return fmt.Errorf("pipeline.maxAttempts must not be negative")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batchSize must be positive")
	}
	return nil
}

// GetDSN 获取 Postgres 连接字符串，schema 作为 search_path
func (c *PostgresConfig) GetDSN(schema string) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	if schema != "" {
		dsn += " search_path=" + schema
	}
	return dsn
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-dataset")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dir", "./db")
	v.SetDefault("storage.baseline", "base_dataset")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "next_dataset")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.maxOpenConns", 5)
	v.SetDefault("storage.maxIdleConns", 2)
	v.SetDefault("storage.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lockTTL", 6*3600)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.apiKey", "")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.byAzure", false)
	v.SetDefault("ai.openai.apiVersion", "2025-03-01-preview")
	v.SetDefault("ai.deepseek.apiKey", "")
	v.SetDefault("ai.deepseek.baseUrl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.creative.model", "gpt-4o")
	v.SetDefault("ai.creative.temperature", 0.6)
	v.SetDefault("ai.creative.timeout", 120)
	v.SetDefault("ai.fast.model", "gpt-4o-mini")
	v.SetDefault("ai.fast.temperature", 0)
	v.SetDefault("ai.fast.seed", 69)
	v.SetDefault("ai.fast.timeout", 60)

	// Pipeline
	v.SetDefault("pipeline.maxAttempts", 10)
	v.SetDefault("pipeline.fallback", "reject")
	v.SetDefault("pipeline.concurrency", 0)
	v.SetDefault("pipeline.failurePolicy", "abort")
	v.SetDefault("pipeline.batchSize", 5)
	v.SetDefault("pipeline.maxRunSteps", 100000)

	// Export
	v.SetDefault("export.dir", "./output")
	v.SetDefault("export.normalize", false)
	v.SetDefault("export.summary", false)
	v.SetDefault("export.storage", "local")
	v.SetDefault("export.minio.endpoint", "")
	v.SetDefault("export.minio.accessKey", "")
	v.SetDefault("export.minio.secretKey", "")
	v.SetDefault("export.minio.bucket", "datasets")
	v.SetDefault("export.minio.useSSL", false)

	// Metrics
	v.SetDefault("metrics.textfile", "")
}
