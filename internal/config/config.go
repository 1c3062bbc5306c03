package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	Knowledge    KnowledgeConfig    `mapstructure:"knowledge"`
	Verification VerificationConfig `mapstructure:"verification"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// KnowledgeConfig points at the OpenAI-compatible service that judges
// open-ended answers against reference material.
type KnowledgeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type VerificationConfig struct {
	QuestionTimeout time.Duration `mapstructure:"question_timeout_seconds"`
	WorkerLimit     int           `mapstructure:"worker_limit"`
}

type LedgerConfig struct {
	// IN_PROGRESS attempts older than this are swept to failed.
	SessionTimeout time.Duration `mapstructure:"session_timeout_minutes"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ANCHOR_GATE")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Knowledge lookup
	viper.BindEnv("knowledge.base_url", "KNOWLEDGE_BASE_URL")
	viper.BindEnv("knowledge.api_key", "KNOWLEDGE_API_KEY")
	viper.BindEnv("knowledge.model", "KNOWLEDGE_MODEL")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	viper.SetDefault("verification.question_timeout_seconds", 8)
	viper.SetDefault("verification.worker_limit", 4)
	viper.SetDefault("ledger.session_timeout_minutes", 120)
	viper.SetDefault("ledger.sweep_interval_minutes", 5)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Verification.QuestionTimeout = cfg.Verification.QuestionTimeout * time.Second
	cfg.Ledger.SessionTimeout = cfg.Ledger.SessionTimeout * time.Minute
	cfg.Ledger.SweepInterval = cfg.Ledger.SweepInterval * time.Minute

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
