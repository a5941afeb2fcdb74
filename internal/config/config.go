package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Security SecurityConfig
	Uploads  UploadConfig
	Badges   BadgeConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
}

// DatabaseConfig holds Postgres connection and pool settings
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	ConnectTimeout     time.Duration
	ConnectRetries     int
}

// CacheConfig selects the cache backend
type CacheConfig struct {
	Type       string // memory | redis
	RedisURL   string
	DefaultTTL time.Duration
	KeyPrefix  string
}

// SecurityConfig holds per-resource password and abuse settings
type SecurityConfig struct {
	BCryptCost         int
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	// TrustedProxies are the peers allowed to set X-Forwarded-For / X-Real-IP
	TrustedProxies []string
}

// UploadConfig controls image storage
type UploadConfig struct {
	Provider    string // local | cloudinary
	Dir         string
	PublicPath  string
	BaseURL     string
	MaxBytes    int64
	Cloudinary  CloudinaryConfig
	UploadRetry int
}

// CloudinaryConfig holds cloudinary credentials
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// BadgeConfig controls when badge evaluation runs
type BadgeConfig struct {
	EvaluationMode   string // async | sync
	SweepEnabled     bool
	SweepSchedule    string
	SweepConcurrency int
	SweepBatchSize   int
	LookbackDays     int
	EvaluateTimeout  time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads .env.<GO_ENV> (or .env) and builds the configuration.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	config := &Config{
		Server:   loadServerConfig(env),
		Database: loadDatabaseConfig(env),
		Cache:    loadCacheConfig(),
		Security: loadSecurityConfig(env),
		Uploads:  loadUploadConfig(),
		Badges:   loadBadgeConfig(),
		Logging:  loadLoggingConfig(env),
		Metrics:  loadMetricsConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:            getEnv("PORT", "3000"),
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Environment:     env,
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
	}

	if env == "development" {
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 10*time.Second)
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	var defaultMaxOpen, defaultMaxIdle int
	var defaultConnLifetime time.Duration

	switch env {
	case "production":
		defaultMaxOpen = 50
		defaultMaxIdle = 20
		defaultConnLifetime = 15 * time.Minute
	default:
		defaultMaxOpen = 10
		defaultMaxIdle = 5
		defaultConnLifetime = 5 * time.Minute
	}

	return DatabaseConfig{
		URL:                os.Getenv("DATABASE_URL"),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdle),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		ConnectTimeout:     getDurationEnv("DB_CONNECT_TIMEOUT", 30*time.Second),
		ConnectRetries:     getIntEnv("DB_CONNECT_RETRIES", 5),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Type:       getEnv("CACHE_TYPE", "memory"),
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DefaultTTL: getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
		KeyPrefix:  getEnv("CACHE_KEY_PREFIX", "memorybox:"),
	}
}

func loadSecurityConfig(env string) SecurityConfig {
	defaultOrigins := "*"
	if env == "production" {
		defaultOrigins = ""
	}
	return SecurityConfig{
		BCryptCost:         getIntEnv("BCRYPT_COST", 10),
		RateLimitRPS:       getFloat64Env("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 20),
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", defaultOrigins),
		TrustedProxies:     getListEnv("TRUSTED_PROXIES", ""),
	}
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		Provider:    getEnv("UPLOAD_PROVIDER", "local"),
		Dir:         getEnv("UPLOAD_DIR", "./uploads"),
		PublicPath:  getEnv("UPLOAD_PUBLIC_PATH", "/uploads"),
		BaseURL:     getEnv("UPLOAD_BASE_URL", ""),
		MaxBytes:    getInt64Env("UPLOAD_MAX_BYTES", 10*1024*1024),
		UploadRetry: getIntEnv("UPLOAD_MAX_RETRIES", 3),
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    getEnv("CLOUDINARY_FOLDER", "memories"),
		},
	}
}

func loadBadgeConfig() BadgeConfig {
	return BadgeConfig{
		EvaluationMode:   strings.ToLower(getEnv("BADGE_EVALUATION_MODE", "async")),
		SweepEnabled:     getBoolEnv("BADGE_SWEEP_ENABLED", true),
		SweepSchedule:    getEnv("BADGE_SWEEP_SCHEDULE", "@every 15m"),
		SweepConcurrency: getIntEnv("BADGE_SWEEP_CONCURRENCY", 4),
		SweepBatchSize:   getIntEnv("BADGE_SWEEP_BATCH_SIZE", 200),
		LookbackDays:     getIntEnv("BADGE_ACTIVITY_LOOKBACK_DAYS", 7),
		EvaluateTimeout:  getDurationEnv("BADGE_EVALUATE_TIMEOUT", 10*time.Second),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

func loadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: getBoolEnv("METRICS_ENABLED", true),
		Path:    getEnv("METRICS_PATH", "/metrics"),
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("security config: %w", err)
	}
	if err := c.Uploads.Validate(); err != nil {
		return fmt.Errorf("upload config: %w", err)
	}
	if err := c.Badges.Validate(); err != nil {
		return fmt.Errorf("badge config: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}
	return nil
}

func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}
	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}
	if d.SlowQueryThreshold <= 0 {
		return fmt.Errorf("SlowQueryThreshold must be positive")
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_TYPE=redis")
		}
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q", c.Type)
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL must be positive")
	}
	return nil
}

func (s *SecurityConfig) Validate() error {
	if s.BCryptCost < 4 || s.BCryptCost > 31 {
		return fmt.Errorf("BCryptCost must be between 4 and 31")
	}
	if s.RateLimitRPS <= 0 || s.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	for _, proxy := range s.TrustedProxies {
		if _, err := netip.ParsePrefix(proxy); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is neither an IP nor a CIDR", proxy)
		}
	}
	return nil
}

func (u *UploadConfig) Validate() error {
	switch u.Provider {
	case "local":
		if u.Dir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local uploads")
		}
	case "cloudinary":
		c := u.Cloudinary
		if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("cloudinary credentials are missing")
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_PROVIDER %q", u.Provider)
	}
	if u.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

func (b *BadgeConfig) Validate() error {
	if b.EvaluationMode != "async" && b.EvaluationMode != "sync" {
		return fmt.Errorf("BADGE_EVALUATION_MODE must be async or sync, got %q", b.EvaluationMode)
	}
	if b.SweepEnabled && b.SweepSchedule == "" {
		return fmt.Errorf("BADGE_SWEEP_SCHEDULE is required when the sweep is enabled")
	}
	if b.SweepConcurrency <= 0 {
		return fmt.Errorf("BADGE_SWEEP_CONCURRENCY must be positive")
	}
	if b.SweepBatchSize <= 0 {
		return fmt.Errorf("BADGE_SWEEP_BATCH_SIZE must be positive")
	}
	if b.LookbackDays < 7 {
		return fmt.Errorf("BADGE_ACTIVITY_LOOKBACK_DAYS must cover the 7 day streak window")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat64Env(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDefaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

func getDefaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}
