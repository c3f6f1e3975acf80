package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 服务运行所需的全部配置，从环境变量解析
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"host=localhost user=postgres password=postgres dbname=oaforum port=5432 sslmode=disable TimeZone=UTC"`

	JWTSecret     string        `env:"JWT_SECRET" envDefault:"change_me"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"secret_key_change_me"`
	ClientURL     string        `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	AdminEmails   []string      `env:"ADMIN_EMAILS" envSeparator:","`

	RedisAddr    string        `env:"REDIS_ADDR"`
	CacheSize    int           `env:"CACHE_SIZE" envDefault:"500"`
	InsightsTTL  time.Duration `env:"INSIGHTS_TTL" envDefault:"60s"`
	TipTTL       time.Duration `env:"TIP_TTL" envDefault:"6h"`
	FeedPreview  int           `env:"FEED_PREVIEW_LIMIT" envDefault:"3"`
	RateLimitRPS float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"10"`

	SMTP   SMTPConfig
	Google GoogleConfig
	Push   PushConfig
	LLM    LLMConfig
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM"`
}

// Enabled 所有必填项齐全时才发送邮件
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.Username != "" && c.Password != "" && c.From != ""
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/google/callback"`
}

func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type PushConfig struct {
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	Subscriber      string `env:"VAPID_SUBSCRIBER" envDefault:"mailto:support@oaforum.dev"`
}

func (c PushConfig) Enabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

type LLMConfig struct {
	BaseURL string        `env:"LLM_BASE_URL"`
	Token   string        `env:"LLM_TOKEN"`
	Model   string        `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant"`
	Timeout time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
}

// Load 解析环境变量。调用前应先由 godotenv 加载 .env
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for i, e := range cfg.AdminEmails {
		cfg.AdminEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive")
	}
	return nil
}
