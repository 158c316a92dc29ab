package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Trash    TrashConfig    `yaml:"trash"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	PublicURL      string   `yaml:"public_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Mode           string   `yaml:"mode"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	SQLitePath   string `yaml:"sqlite_path"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	LogSQL       bool   `yaml:"log_sql"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Driver          string   `yaml:"driver"`
	// BasePath is the root directory of the local driver.
	BasePath        string   `yaml:"base_path"`
	MaxFileSize     int64    `yaml:"max_file_size"`
	UploadTicketTTL int      `yaml:"upload_ticket_ttl"`
	S3              S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UsePathStyle  bool   `yaml:"use_path_style"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type AuthConfig struct {
	// Secret verifies HS256 session tokens minted by the identity provider.
	Secret         string `yaml:"secret"`
	Issuer         string `yaml:"issuer"`
	WebhookSecret  string `yaml:"webhook_secret"`
	InternalSecret string `yaml:"internal_secret"`
}

type TrashConfig struct {
	RetentionDays    int `yaml:"retention_days"`
	SweepInterval    int `yaml:"sweep_interval"`
	SweepConcurrency int `yaml:"sweep_concurrency"`
	SweepBatchSize   int `yaml:"sweep_batch_size"`
	SweepLockTTL     int `yaml:"sweep_lock_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var AppConfig *Config

// LoadConfig reads .env (if present), the YAML file at path and the
// BDRIVE_* environment overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	AppConfig = &cfg
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"BDRIVE_DB_PASSWORD":     &cfg.Database.Password,
		"BDRIVE_REDIS_PASSWORD":  &cfg.Redis.Password,
		"BDRIVE_AUTH_SECRET":     &cfg.Auth.Secret,
		"BDRIVE_WEBHOOK_SECRET":  &cfg.Auth.WebhookSecret,
		"BDRIVE_INTERNAL_SECRET": &cfg.Auth.InternalSecret,
		"BDRIVE_S3_ACCESS_KEY":   &cfg.Storage.S3.AccessKey,
		"BDRIVE_S3_SECRET_KEY":   &cfg.Storage.S3.SecretKey,
		"BDRIVE_STORAGE_DRIVER":  &cfg.Storage.Driver,
		"BDRIVE_DATABASE_DRIVER": &cfg.Database.Driver,
	}
	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "bdrive.db"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./data"
	}
	if cfg.Storage.MaxFileSize == 0 {
		cfg.Storage.MaxFileSize = 20 << 20
	}
	if cfg.Storage.UploadTicketTTL == 0 {
		cfg.Storage.UploadTicketTTL = 900
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
	if cfg.Trash.RetentionDays == 0 {
		cfg.Trash.RetentionDays = 30
	}
	if cfg.Trash.SweepInterval == 0 {
		cfg.Trash.SweepInterval = 3600
	}
	if cfg.Trash.SweepConcurrency == 0 {
		cfg.Trash.SweepConcurrency = 4
	}
	if cfg.Trash.SweepBatchSize == 0 {
		cfg.Trash.SweepBatchSize = 500
	}
	if cfg.Trash.SweepLockTTL == 0 {
		cfg.Trash.SweepLockTTL = 600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c TrashConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c TrashConfig) Interval() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

func (c TrashConfig) LockTTL() time.Duration {
	return time.Duration(c.SweepLockTTL) * time.Second
}

func (c StorageConfig) TicketTTL() time.Duration {
	return time.Duration(c.UploadTicketTTL) * time.Second
}
