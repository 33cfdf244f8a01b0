// Package config loads the portal configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is read when PORTAL_CONFIG is unset.
const ConfigPath = "config.yaml"

// StorageConfig selects the snapshot backend of the persisted stores.
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	Dir            string `yaml:"dir"`
	SQLitePath     string `yaml:"sqlitePath"`
	RedisPrefix    string `yaml:"redisPrefix"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
}

// AIConfig selects the language model provider. An empty provider disables
// the analyzer and the assistant.
type AIConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"baseURL"`
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	DatabaseURL   string        `yaml:"databaseURL"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	Storage       StorageConfig `yaml:"storage"`

	SessionSecret string `yaml:"sessionSecret"`
	SessionTTL    string `yaml:"sessionTTL"`
	JWTIssuer     string `yaml:"jwtIssuer"`
	JWTAudience   string `yaml:"jwtAudience"`
	JWTLeeway     string `yaml:"jwtLeeway"`

	AI AIConfig `yaml:"ai"`

	AMQPURL            string `yaml:"amqpURL"`
	AMQPExchange       string `yaml:"amqpExchange"`
	NotificationStream string `yaml:"notificationStream"`

	LoginRateLimitPerMinute    int `yaml:"loginRateLimitPerMinute"`
	RegisterRateLimitPerMinute int `yaml:"registerRateLimitPerMinute"`

	CORSOrigins    []string `yaml:"corsOrigins"`
	TrustedProxies []string `yaml:"trustedProxies"`

	SeedDemoData   bool `yaml:"seedDemoData"`
	DisplayPadding bool `yaml:"displayPadding"`
}

// Load reads config from path. An empty path means PORTAL_CONFIG, then
// config.yaml; a missing default file falls back to built-in defaults.
// A .env file in the working directory is loaded first when present.
func Load(path string) (FileConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return FileConfig{}, fmt.Errorf("load .env: %w", err)
	}
	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv("PORTAL_CONFIG"))
		explicit = path != ""
	}
	if path == "" {
		path = ConfigPath
	}

	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() FileConfig {
	return FileConfig{
		Port:                       "8080",
		LogLevel:                   "info",
		LogFormat:                  "json",
		SessionTTL:                 "24h",
		LoginRateLimitPerMinute:    10,
		RegisterRateLimitPerMinute: 5,
		SeedDemoData:               true,
		DisplayPadding:             true,
	}
}

func applyEnv(cfg *FileConfig) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString(&cfg.Port, "PORTAL_PORT")
	setString(&cfg.LogLevel, "PORTAL_LOG_LEVEL")
	setString(&cfg.LogFormat, "PORTAL_LOG_FORMAT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Storage.Driver, "PORTAL_STORAGE_DRIVER")
	setString(&cfg.Storage.Dir, "PORTAL_STORAGE_DIR")
	setString(&cfg.Storage.SQLitePath, "PORTAL_SQLITE_PATH")
	setString(&cfg.SessionSecret, "PORTAL_SESSION_SECRET")
	setString(&cfg.SessionTTL, "PORTAL_SESSION_TTL")
	setString(&cfg.AI.Provider, "PORTAL_AI_PROVIDER")
	setString(&cfg.AI.BaseURL, "PORTAL_AI_BASE_URL")
	setString(&cfg.AI.Model, "PORTAL_AI_MODEL")
	setString(&cfg.AMQPURL, "PORTAL_AMQP_URL")
	setInt(&cfg.LoginRateLimitPerMinute, "PORTAL_LOGIN_RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.RegisterRateLimitPerMinute, "PORTAL_REGISTER_RATE_LIMIT_PER_MINUTE")
	setBool(&cfg.SeedDemoData, "PORTAL_SEED_DEMO_DATA")
	setBool(&cfg.DisplayPadding, "PORTAL_DISPLAY_PADDING")
	if v := strings.TrimSpace(os.Getenv("PORTAL_CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	// Provider keys only apply to their own provider.
	if cfg.AI.APIKey == "" {
		switch strings.ToLower(cfg.AI.Provider) {
		case "openai":
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return errors.New("config: sessionSecret must be at least 32 bytes (set PORTAL_SESSION_SECRET)")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "memory":
	case "file":
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			return errors.New("config: storage.dir is required for the file driver")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
			return errors.New("config: storage.sqlitePath is required for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres driver")
		}
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis driver")
		}
	case "minio":
		if cfg.Storage.MinioEndpoint == "" || cfg.Storage.MinioBucket == "" {
			return errors.New("config: storage.minioEndpoint and storage.minioBucket are required for the minio driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", cfg.Storage.Driver)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.AI.Provider)) {
	case "", "ollama":
	case "openai", "gemini":
		if strings.TrimSpace(cfg.AI.APIKey) == "" {
			return fmt.Errorf("config: ai.apiKey is required for provider %q", cfg.AI.Provider)
		}
	default:
		return fmt.Errorf("config: unknown ai provider %q", cfg.AI.Provider)
	}
	if cfg.LoginRateLimitPerMinute < 0 || cfg.RegisterRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	return nil
}

// ParseSessionTTL parses the session TTL, defaulting to 24h.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("invalid sessionTTL duration %q", ttlStr)
	}
	return dur, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
