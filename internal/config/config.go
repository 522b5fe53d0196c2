package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port               int              `json:"port"`
	HomePageURL        string           `json:"home_page_url"`
	JWTSecret          string           `json:"jwt_secret"`
	JWTTTLHours        int              `json:"jwt_ttl_hours"`
	InboundToken       string           `json:"inbound_token"`
	CORSAllowlist      []string         `json:"cors_allowlist"`
	SaveRateLimitMs    int              `json:"save_rate_limit_ms"`
	MaxImportFileBytes int64            `json:"max_import_file_bytes"`
	Database           DatabaseConfig   `json:"database"`
	LogConfig          logger.LogConfig `json:"log_config"`
	FileStore          FileStoreConfig  `json:"file_store"`
	PubSub             PubSubConfig     `json:"pubsub"`
	UserCache          UserCacheConfig  `json:"user_cache"`
	ImportCleanup      CleanupConfig    `json:"import_cleanup"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type PubSubConfig struct {
	Type         string `json:"type"`
	URL          string `json:"url"`
	Exchange     string `json:"exchange"`
	ExchangeType string `json:"exchange_type"`
	RoutingKey   string `json:"routing_key"`
}

type UserCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type CleanupConfig struct {
	Spec       string `json:"spec"`
	MaxAgeHour int    `json:"max_age_hour"`
}

const (
	envDBDSN        = "READLATER_DB_DSN"
	envJWTSecret    = "READLATER_JWT_SECRET"
	envAMQPURL      = "READLATER_AMQP_URL"
	envInboundToken = "READLATER_INBOUND_TOKEN"
)

// Load reads the json config at path. When envFiles are given they are
// loaded first and the READLATER_* variables override the file values.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(envDBDSN); ok && v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv(envJWTSecret); ok && v != "" {
		cfg.JWTSecret = v
	}
	if v, ok := os.LookupEnv(envAMQPURL); ok && v != "" {
		cfg.PubSub.URL = v
	}
	if v, ok := os.LookupEnv(envInboundToken); ok && v != "" {
		cfg.InboundToken = v
	}
}

func (cfg *Config) normalize() error {
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.HomePageURL == "" {
		return fmt.Errorf("home_page_url is required")
	}
	cfg.HomePageURL = strings.TrimSuffix(cfg.HomePageURL, "/")
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.MaxImportFileBytes == 0 {
		cfg.MaxImportFileBytes = 20 * 1024 * 1024
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.ImportCleanup.Spec == "" {
		cfg.ImportCleanup.Spec = "30 3 * * *"
	}
	if cfg.ImportCleanup.MaxAgeHour == 0 {
		cfg.ImportCleanup.MaxAgeHour = 24 * 7
	}
	if cfg.UserCache.Size == 0 {
		cfg.UserCache.Size = 1024
	}
	if cfg.UserCache.TTLSeconds == 0 {
		cfg.UserCache.TTLSeconds = 300
	}
	switch cfg.PubSub.Type {
	case "":
		cfg.PubSub.Type = "log"
	case "log":
	case "amqp":
		if cfg.PubSub.URL == "" {
			return fmt.Errorf("pubsub.url is required for amqp")
		}
		if cfg.PubSub.ExchangeType == "" {
			cfg.PubSub.ExchangeType = "topic"
		}
	default:
		return fmt.Errorf("pubsub.type must be log or amqp")
	}
	if cfg.PubSub.RoutingKey == "" {
		cfg.PubSub.RoutingKey = "page.save.requested"
	}
	return nil
}
