// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// EnvPrefix 是环境变量覆盖配置时使用的前缀，例如 SUVIDHA_LLM_API_KEY。
const EnvPrefix = "SUVIDHA"

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Log         LogConfig         `mapstructure:"log"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	MinIO       MinIOConfig       `mapstructure:"minio"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Chat        ChatConfig        `mapstructure:"chat"`
	Eligibility EligibilityConfig `mapstructure:"eligibility"`
	CORS        CORSConfig        `mapstructure:"cors"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用缓存。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时知识库重建任务在进程内执行。
type KafkaConfig struct {
	Brokers     string        `mapstructure:"brokers"`
	Topic       string        `mapstructure:"topic"`
	GroupID     string        `mapstructure:"group_id"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// Enabled 报告是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool { return strings.TrimSpace(k.Brokers) != "" }

// MinIOConfig 存储 MinIO 对象存储的配置，用于知识库快照。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	SnapshotPrefix  string `mapstructure:"snapshot_prefix"`
}

// Enabled 报告是否配置了 MinIO。
func (m MinIOConfig) Enabled() bool { return strings.TrimSpace(m.Endpoint) != "" }

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	Endpoint      string        `mapstructure:"endpoint"`
	Model         string        `mapstructure:"model"`
	Dimensions    int           `mapstructure:"dimensions"`
	MaxInputChars int           `mapstructure:"max_input_chars"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LLMConfig 存储大语言模型相关的配置，Provider 选择具体的调用策略。
type LLMConfig struct {
	Provider   string              `mapstructure:"provider"`
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Prompt     LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示，为空时使用内置提示。
type LLMPromptConfig struct {
	System string `mapstructure:"system"`
}

// ChatConfig 控制对话编排行为。
type ChatConfig struct {
	HistoryWindow    int           `mapstructure:"history_window"`
	GroundingTopK    int           `mapstructure:"grounding_top_k"`
	FallbackTopK     int           `mapstructure:"fallback_top_k"`
	UseKnowledgeBase bool          `mapstructure:"use_knowledge_base"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// EligibilityConfig 控制资格评估。
type EligibilityConfig struct {
	StrictUnknownTypes bool `mapstructure:"strict_unknown_types"`
}

// CORSConfig 存储跨域配置。
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.mysql.auto_migrate", true)
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_expire_hours", 24)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "knowledge-ingest")
	v.SetDefault("kafka.group_id", "suvidha-knowledge-consumer")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("kafka.retry_delay", "5s")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "suvidha")
	v.SetDefault("minio.snapshot_prefix", "knowledge/snapshots")

	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.endpoint", "")
	v.SetDefault("embedding.model", "amazon.titan-embed-text-v1")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.max_input_chars", 8000)
	v.SetDefault("embedding.max_attempts", 3)
	v.SetDefault("embedding.retry_backoff", 500*time.Millisecond)
	v.SetDefault("embedding.timeout", 60*time.Second)

	v.SetDefault("llm.provider", "bedrock-titan")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "amazon.titan-text-express-v1")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.top_p", 0.9)
	v.SetDefault("llm.generation.max_tokens", 2048)
	v.SetDefault("llm.prompt.system", "")

	v.SetDefault("chat.history_window", 20)
	v.SetDefault("chat.grounding_top_k", 5)
	v.SetDefault("chat.fallback_top_k", 3)
	v.SetDefault("chat.use_knowledge_base", true)
	v.SetDefault("chat.cache_ttl", 7*24*time.Hour)

	v.SetDefault("eligibility.strict_unknown_types", false)

	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
}

// Load 读取 YAML 配置文件并应用默认值与环境变量覆盖。
// configPath 为空或文件不存在时仅使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init 初始化配置加载，并将结果保存到全局变量 Conf 中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}

func (c *Config) validate() error {
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions 必须为正数: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.MaxAttempts <= 0 {
		return fmt.Errorf("embedding.max_attempts 必须为正数: %d", c.Embedding.MaxAttempts)
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("chat.history_window 必须为正数: %d", c.Chat.HistoryWindow)
	}
	switch c.LLM.Provider {
	case "openai", "bedrock-titan":
	default:
		return fmt.Errorf("不支持的 llm.provider: %q", c.LLM.Provider)
	}
	return nil
}
