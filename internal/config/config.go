package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkglogger "github.com/damoang/angple-bugreport/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config 전체 설정
type Config struct {
	Env        string           `yaml:"env"`
	Reporter   ReporterConfig   `yaml:"reporter"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Search     SearchConfig     `yaml:"elasticsearch"`
	CORS       CORSConfig       `yaml:"cors"`
	JWT        JWTConfig        `yaml:"jwt"`
}

// ReporterConfig 클라이언트 리포트 파이프라인 설정
type ReporterConfig struct {
	Endpoint             string           `yaml:"endpoint"`
	SourceApp            string           `yaml:"source_app"`
	Locale               string           `yaml:"locale"`
	DedupWindow          time.Duration    `yaml:"dedup_window"`
	RateLimit            RateLimitConfig  `yaml:"rate_limit"`
	TrailCapacity        int              `yaml:"trail_capacity"`
	ToastDuration        time.Duration    `yaml:"toast_duration"`
	ErrorToastDuration   time.Duration    `yaml:"error_toast_duration"`
	MinDescriptionLength int              `yaml:"min_description_length"`
	Screenshot           ScreenshotConfig `yaml:"screenshot"`
	Queue                QueueConfig      `yaml:"queue"`
	Probe                ProbeConfig      `yaml:"probe"`
}

// RateLimitConfig 제출 횟수 제한
type RateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
	Shared bool          `yaml:"shared"` // true: Redis sorted set 사용
}

// ScreenshotConfig 스크린샷 크기/품질 제한
type ScreenshotConfig struct {
	Enabled         bool          `yaml:"enabled"`
	MaxViewportW    int           `yaml:"max_viewport_width"`
	MaxViewportH    int           `yaml:"max_viewport_height"`
	MaxWidth        int           `yaml:"max_width"`
	Quality         float64       `yaml:"quality"`
	FallbackQuality float64       `yaml:"fallback_quality"`
	MaxBytes        int           `yaml:"max_bytes"`
	Timeout         time.Duration `yaml:"timeout"`
	PageURL         string        `yaml:"page_url"`
}

// QueueConfig 오프라인 큐 저장소
type QueueConfig struct {
	Backend    string `yaml:"backend"` // memory, file, redis
	Dir        string `yaml:"dir"`
	Key        string `yaml:"key"`
	QuotaBytes int    `yaml:"quota_bytes"`
}

// ProbeConfig 연결 상태 확인
type ProbeConfig struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig ingest 서버
type ServerConfig struct {
	Port             int           `yaml:"port"`
	Mode             string        `yaml:"mode"`
	RateLimit        int           `yaml:"rate_limit"`
	RateLimitWindow  time.Duration `yaml:"rate_limit_window"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	ScreenshotPrefix string        `yaml:"screenshot_prefix"`
}

// DatabaseConfig MySQL
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN returns the MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// RedisConfig Redis
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// StorageConfig S3 호환 스토리지 (스크린샷 업로드)
type StorageConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	CDNURL          string `yaml:"cdn_url"`
	BasePath        string `yaml:"base_path"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// ClickHouseConfig 에러 로그 분석 저장소
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SearchConfig Elasticsearch
type SearchConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// CORSConfig CORS
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// JWTConfig damoang_jwt 검증용
type JWTConfig struct {
	DamoangSecret string `yaml:"damoang_secret"`
	CookieName    string `yaml:"cookie_name"`
}

// Default returns a config populated with the pipeline constants
func Default() *Config {
	return &Config{
		Env: "local",
		Reporter: ReporterConfig{
			Endpoint:             "http://localhost:8090/api/v1/bug-reports",
			SourceApp:            "angple-web",
			Locale:               "ko",
			DedupWindow:          60 * time.Second,
			RateLimit:            RateLimitConfig{Max: 5, Window: 5 * time.Minute},
			TrailCapacity:        10,
			ToastDuration:        5 * time.Second,
			ErrorToastDuration:   30 * time.Second,
			MinDescriptionLength: 10,
			Screenshot: ScreenshotConfig{
				Enabled:         true,
				MaxViewportW:    1920,
				MaxViewportH:    1080,
				MaxWidth:        1280,
				Quality:         0.7,
				FallbackQuality: 0.4,
				MaxBytes:        500_000,
				Timeout:         15 * time.Second,
			},
			Queue: QueueConfig{
				Backend:    "file",
				Dir:        ".bugreport",
				Key:        "angple:bug-report-queue",
				QuotaBytes: 5 * 1024 * 1024,
			},
			Probe: ProbeConfig{
				URL:      "http://localhost:8090/health",
				Interval: 10 * time.Second,
			},
		},
		Server: ServerConfig{
			Port:             8090,
			Mode:             "debug",
			RateLimit:        30,
			RateLimitWindow:  time.Minute,
			MaxBodyBytes:     4 << 20,
			ShutdownTimeout:  10 * time.Second,
			ScreenshotPrefix: "bug-reports",
		},
		Database: DatabaseConfig{
			Host: "localhost", Port: 3306, DBName: "angple",
			MaxIdleConns: 5, MaxOpenConns: 20, ConnMaxLifetime: 300,
		},
		Redis:      RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10},
		ClickHouse: ClickHouseConfig{Port: 9000, Database: "error_logs"},
		Search:     SearchConfig{Index: "bug-reports"},
		CORS:       CORSConfig{AllowOrigins: "http://localhost:3000"},
		JWT:        JWTConfig{CookieName: "damoang_jwt"},
	}
}

// Load reads the YAML file at path over the defaults, then applies env overrides.
// A missing file is not an error; defaults and env still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config 파싱 실패 (%s): %w", path, err)
		}
	case os.IsNotExist(err):
		// 파일 없으면 기본값 사용
	default:
		return nil, fmt.Errorf("config 읽기 실패 (%s): %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the pipeline cannot run without
func (c *Config) Validate() error {
	r := c.Reporter
	if r.RateLimit.Max <= 0 || r.RateLimit.Window <= 0 {
		return fmt.Errorf("config: rate_limit must be positive (max=%d window=%s)", r.RateLimit.Max, r.RateLimit.Window)
	}
	if r.TrailCapacity <= 0 {
		return fmt.Errorf("config: trail_capacity must be positive")
	}
	if r.DedupWindow <= 0 {
		return fmt.Errorf("config: dedup_window must be positive")
	}
	if r.Screenshot.Quality <= 0 || r.Screenshot.Quality > 1 ||
		r.Screenshot.FallbackQuality <= 0 || r.Screenshot.FallbackQuality > 1 {
		return fmt.Errorf("config: screenshot quality must be in (0,1]")
	}
	switch r.Queue.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("config: unknown queue backend %q", r.Queue.Backend)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("BUGREPORT_ENDPOINT"); v != "" {
		cfg.Reporter.Endpoint = v
	}
	if v := os.Getenv("BUGREPORT_SOURCE_APP"); v != "" {
		cfg.Reporter.SourceApp = v
	}
	if v := os.Getenv("BUGREPORT_QUEUE_BACKEND"); v != "" {
		cfg.Reporter.Queue.Backend = v
	}
	if v := os.Getenv("BUGREPORT_QUEUE_DIR"); v != "" {
		cfg.Reporter.Queue.Dir = v
	}
	if v := os.Getenv("BUGREPORT_PROBE_URL"); v != "" {
		cfg.Reporter.Probe.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		cfg.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ClickHouse.Port = p
		}
	}
	if v := os.Getenv("CLICKHOUSE_USER"); v != "" {
		cfg.ClickHouse.User = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		cfg.ClickHouse.Password = v
	}
	if v := os.Getenv("ELASTICSEARCH_ADDRESSES"); v != "" {
		cfg.Search.Enabled = true
		cfg.Search.Addresses = strings.Split(v, ",")
	}
	if v := os.Getenv("S3_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKeyID = v
	}
	if v := os.Getenv("S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("DAMOANG_JWT_SECRET"); v != "" {
		cfg.JWT.DamoangSecret = v
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		cfg.CORS.AllowOrigins = v
	}
}

// LogResolved prints the effective config without secrets
func LogResolved(cfg *Config) {
	r := cfg.Reporter
	pkglogger.GetLogger().Info().
		Str("env", cfg.Env).
		Str("endpoint", r.Endpoint).
		Str("source_app", r.SourceApp).
		Str("queue_backend", r.Queue.Backend).
		Dur("dedup_window", r.DedupWindow).
		Int("rate_limit", r.RateLimit.Max).
		Dur("rate_limit_window", r.RateLimit.Window).
		Int("server_port", cfg.Server.Port).
		Str("db_host", cfg.Database.Host).
		Str("redis_host", cfg.Redis.Host).
		Str("clickhouse_host", cfg.ClickHouse.Host).
		Bool("storage_enabled", cfg.Storage.Enabled).
		Bool("search_enabled", cfg.Search.Enabled).
		Msg("config resolved")
}

// Path returns configs/config.<env>.yaml for APP_ENV (default local)
func Path() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}
