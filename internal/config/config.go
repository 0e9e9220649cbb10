package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Cache    CacheConfig
	Progress ProgressConfig
	Log      LogConfig
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8080"`
	GinMode     string   `envconfig:"GIN_MODE" default:"release"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	// SessionSecret 会话 cookie 签名密钥，为空时每次启动随机生成
	SessionSecret string `envconfig:"SESSION_SECRET" default:""`
}

// UpstreamConfig 分析服务配置
type UpstreamConfig struct {
	BaseURL   string        `envconfig:"ANALYSIS_SERVICE_URL" default:"http://localhost:8000"`
	Timeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"120s"`
	Retry     int           `envconfig:"UPSTREAM_RETRY" default:"1"`       // 失败重试次数
	StaleTime time.Duration `envconfig:"UPSTREAM_STALE_TIME" default:"5m"` // 列表类查询缓存时间
	RPS       float64       `envconfig:"UPSTREAM_RPS" default:"5"`
	Burst     int           `envconfig:"UPSTREAM_BURST" default:"5"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Driver        string `envconfig:"CACHE_DRIVER" default:"memory"` // memory, redis, sqlite
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"data/cache.db"`
}

// ProgressConfig 进度展示与会话配置
type ProgressConfig struct {
	Schedule        []time.Duration `envconfig:"PROGRESS_SCHEDULE" default:"1s,1200ms,1500ms,2s"`
	CompleteDelay   time.Duration   `envconfig:"PROGRESS_COMPLETE_DELAY" default:"1s"`
	HideDelay       time.Duration   `envconfig:"PROGRESS_HIDE_DELAY" default:"500ms"`
	SessionTTL      time.Duration   `envconfig:"SESSION_TTL" default:"30m"`
	JanitorInterval time.Duration   `envconfig:"JANITOR_INTERVAL" default:"1m"`
	SubmitRPS       float64         `envconfig:"SUBMIT_RPS" default:"0.5"`
	SubmitBurst     int             `envconfig:"SUBMIT_BURST" default:"3"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load 加载配置：先读取 .env 文件（不存在时忽略），再从环境变量解析
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("ANALYSIS_SERVICE_URL 不能为空")
	}
	if c.Upstream.Retry < 0 {
		return fmt.Errorf("UPSTREAM_RETRY 不能为负数: %d", c.Upstream.Retry)
	}
	switch c.Cache.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("不支持的缓存类型: %s", c.Cache.Driver)
	}
	for _, d := range c.Progress.Schedule {
		if d <= 0 {
			return fmt.Errorf("PROGRESS_SCHEDULE 中的间隔必须大于0")
		}
	}
	return nil
}
