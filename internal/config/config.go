package config

import (
	"strings"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Media      MediaConfig      `mapstructure:"media"`
	Email      EmailConfig      `mapstructure:"email"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Task       TaskConfig       `mapstructure:"task"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Currencies map[string]int32 `mapstructure:"currencies"` // 币种代码 -> 小数位数
}

type ServerConfig struct {
	Port string   `mapstructure:"port"`
	Mode string   `mapstructure:"mode"`
	Cors []string `mapstructure:"cors"` // 允许的来源
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig 钱包登录与令牌配置
type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	TokenTTLMinutes  int    `mapstructure:"token_ttl_minutes"`
	NonceTTLSeconds  int    `mapstructure:"nonce_ttl_seconds"`
	GovernanceSecret string `mapstructure:"governance_secret"` // 治理事件回调共享密钥
}

// MediaConfig Cloudinary 配置
type MediaConfig struct {
	CloudName  string `mapstructure:"cloud_name"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	RootFolder string `mapstructure:"root_folder"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AppURL   string `mapstructure:"app_url"` // 邮件中链接的前缀
}

// NotifyConfig 通知分发协程池配置
type NotifyConfig struct {
	PoolSize       int `mapstructure:"pool_size"`
	QueueSize      int `mapstructure:"queue_size"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// SetDefaults 设置默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "titaflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	// 密钥类配置也需要默认值，环境变量才能参与 Unmarshal
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.governance_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 60*24)
	v.SetDefault("auth.nonce_ttl_seconds", 300)
	v.SetDefault("media.cloud_name", "")
	v.SetDefault("media.api_key", "")
	v.SetDefault("media.api_secret", "")
	v.SetDefault("media.root_folder", "titaflow")
	v.SetDefault("media.max_bytes", 50<<20)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.user", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.app_url", "https://beta.setita.com")
	v.SetDefault("notify.pool_size", 16)
	v.SetDefault("notify.queue_size", 1024)
	v.SetDefault("notify.timeout_seconds", 10)
	v.SetDefault("task.interval", 60)
	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("currencies", map[string]int32{"USDC": 6, "SOL": 9})
}

// Load 读取配置文件与环境变量
func Load() *Config {
	// .env 不存在时忽略
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/titaflow")

	SetDefaults(v)

	// 自动读取环境变量，例如 TITAFLOW_DATABASE_HOST
	v.SetEnvPrefix("titaflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Could not read config file: %v", err)
	}

	cfg, err := Decode(v)
	if err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}
	return cfg
}

// Decode 将 viper 中的配置解析为结构体
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 币种代码统一大写
	currencies := make(map[string]int32, len(cfg.Currencies))
	for code, decimals := range cfg.Currencies {
		currencies[strings.ToUpper(code)] = decimals
	}
	cfg.Currencies = currencies

	return &cfg, nil
}
