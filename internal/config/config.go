package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumit771/1-2-1/pkg/log"
)

type Config struct {
	Server        ServerConfig
	JWT           JWTConfig
	Chat          ChatConfig
	Upload        UploadConfig
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	AuthRateLimit AuthRateLimitConfig `mapstructure:"auth_rate_limit"`
	CORS          CORSConfig
	Admin         AdminConfig
	Store         StoreConfig
	DB            DBConfig
	Log           log.Config
	WebSocket     WebSocketConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

func (s ServerConfig) IsDevelopment() bool { return s.Env == "development" }

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration `mapstructure:"expires_in"`
}

type ChatConfig struct {
	MessageTTL       time.Duration `mapstructure:"message_ttl"`
	ImageTTL         time.Duration `mapstructure:"image_ttl"`
	MaxContentLength int           `mapstructure:"max_content_length"`
	ReaperInterval   time.Duration `mapstructure:"reaper_interval"`
	TypingClearDelay time.Duration `mapstructure:"typing_clear_delay"`
	TypingDebounce   time.Duration `mapstructure:"typing_debounce"`
}

type UploadConfig struct {
	Dir       string
	MaxSize   int64 `mapstructure:"max_size"`
	MaxWidth  int   `mapstructure:"max_width"`
	MaxHeight int   `mapstructure:"max_height"`
	Quality   int
	PerMinute int `mapstructure:"per_minute"`
}

// RateLimitConfig limits API requests per client IP.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type AuthRateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

type CORSConfig struct {
	Origin string
}

type AdminConfig struct {
	Token string
}

// StoreConfig selects the identity store backend.
type StoreConfig struct {
	Driver    string
	SeedUsers int `mapstructure:"seed_users"`
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

const (
	devRateLimit  = 50
	prodRateLimit = 5
)

// Load reads config.yaml from ./config or the working directory, if
// present, and applies environment overrides on top.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = prodRateLimit
		if cfg.Server.IsDevelopment() {
			cfg.RateLimit.RPS = devRateLimit
		}
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = int(cfg.RateLimit.RPS)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.env", "development")
	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.expires_in", "24h")
	v.SetDefault("chat.message_ttl", "1h")
	v.SetDefault("chat.image_ttl", "1h")
	v.SetDefault("chat.max_content_length", 5000)
	v.SetDefault("chat.reaper_interval", "5m")
	v.SetDefault("chat.typing_clear_delay", "3s")
	v.SetDefault("chat.typing_debounce", "2s")
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.max_size", 2*1024*1024)
	v.SetDefault("upload.max_width", 1280)
	v.SetDefault("upload.max_height", 1280)
	v.SetDefault("upload.quality", 80)
	v.SetDefault("upload.per_minute", 10)
	v.SetDefault("auth_rate_limit.per_minute", 3)
	v.SetDefault("cors.origin", "http://localhost:5173")
	v.SetDefault("admin.token", "admin-secret")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.seed_users", 10)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "chat")
	v.SetDefault("db.password", "chat")
	v.SetDefault("db.name", "chat")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chat-server")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 64*1024)
	v.SetDefault("websocket.send_buffer", 256)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.env", "APP_ENV", "NODE_ENV")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expires_in", "JWT_EXPIRES_IN")
	v.BindEnv("chat.message_ttl", "MESSAGE_TTL")
	v.BindEnv("chat.image_ttl", "IMAGE_TTL")
	v.BindEnv("chat.max_content_length", "MAX_CONTENT_LENGTH")
	v.BindEnv("chat.reaper_interval", "REAPER_INTERVAL")
	v.BindEnv("chat.typing_clear_delay", "TYPING_CLEAR_DELAY")
	v.BindEnv("chat.typing_debounce", "TYPING_DEBOUNCE")
	v.BindEnv("upload.dir", "UPLOAD_DIR")
	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	v.BindEnv("upload.max_width", "UPLOAD_MAX_WIDTH")
	v.BindEnv("upload.max_height", "UPLOAD_MAX_HEIGHT")
	v.BindEnv("upload.quality", "UPLOAD_QUALITY")
	v.BindEnv("upload.per_minute", "UPLOAD_RATE_LIMIT")
	v.BindEnv("rate_limit.rps", "RATE_LIMIT_RPS")
	v.BindEnv("rate_limit.burst", "RATE_LIMIT_BURST")
	v.BindEnv("auth_rate_limit.per_minute", "AUTH_RATE_LIMIT")
	v.BindEnv("cors.origin", "CORS_ORIGIN")
	v.BindEnv("admin.token", "ADMIN_TOKEN")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.seed_users", "SEED_USERS")
	v.BindEnv("db.host", "DB_HOST")
	v.BindEnv("db.port", "DB_PORT")
	v.BindEnv("db.user", "DB_USER")
	v.BindEnv("db.password", "DB_PASSWORD")
	v.BindEnv("db.name", "DB_NAME")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")
	v.BindEnv("websocket.ping_interval", "WS_PING_INTERVAL")
	v.BindEnv("websocket.write_wait", "WS_WRITE_WAIT")
	v.BindEnv("websocket.max_message_size", "WS_MAX_MESSAGE_SIZE")
	v.BindEnv("websocket.send_buffer", "WS_SEND_BUFFER")
}

func (c *Config) validate() error {
	switch {
	case c.Chat.MessageTTL <= 0:
		return fmt.Errorf("chat.message_ttl must be positive")
	case c.Chat.ImageTTL <= 0:
		return fmt.Errorf("chat.image_ttl must be positive")
	case c.Chat.MaxContentLength <= 0:
		return fmt.Errorf("chat.max_content_length must be positive")
	case c.Chat.ReaperInterval <= 0:
		return fmt.Errorf("chat.reaper_interval must be positive")
	case c.Store.Driver != "memory" && c.Store.Driver != "postgres":
		return fmt.Errorf("store.driver must be memory or postgres, got %q", c.Store.Driver)
	case c.Upload.Quality < 1 || c.Upload.Quality > 100:
		return fmt.Errorf("upload.quality must be between 1 and 100")
	}
	return nil
}
