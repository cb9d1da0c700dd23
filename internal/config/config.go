package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	RabbitMQ  RabbitMQConfig  `json:"rabbitmq"`
	Auth      AuthConfig      `json:"auth"`
	Broker    BrokerAPIConfig `json:"broker_api"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logger    LoggerConfig    `json:"logger"`
	Analytics AnalyticsConfig `json:"analytics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Host         string `json:"host"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig represents MongoDB configuration
type DatabaseConfig struct {
	URI            string `json:"uri"`
	Database       string `json:"database"`
	MaxPoolSize    int    `json:"max_pool_size"`
	MinPoolSize    int    `json:"min_pool_size"`
	ConnectTimeout int    `json:"connect_timeout"`
	SocketTimeout  int    `json:"socket_timeout"`
}

// CacheConfig represents Redis cache configuration
type CacheConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	MaxRetries         int           `json:"max_retries"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`

	// TTL settings
	AnalysisTTL time.Duration `json:"analysis_ttl"`
	RiskTTL     time.Duration `json:"risk_ttl"`
	DividendTTL time.Duration `json:"dividend_ttl"`
	SnapshotTTL time.Duration `json:"snapshot_ttl"`
}

// RabbitMQConfig represents RabbitMQ configuration
type RabbitMQConfig struct {
	Enabled  bool   `json:"enabled"`
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	VHost    string `json:"vhost"`

	PortfolioExchange   string `json:"portfolio_exchange"`
	PortfolioQueue      string `json:"portfolio_queue"`
	PortfolioRoutingKey string `json:"portfolio_routing_key"`

	ConsumerTag   string `json:"consumer_tag"`
	PrefetchCount int    `json:"prefetch_count"`

	Heartbeat            time.Duration `json:"heartbeat"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `json:"reconnect_delay"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret"`
	RequireAuth bool   `json:"require_auth"`
}

// BrokerAPIConfig represents the upstream brokerage API configuration
type BrokerAPIConfig struct {
	BaseURL    string        `json:"base_url"`
	APIKey     string        `json:"api_key"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// SchedulerConfig represents background job scheduling configuration
type SchedulerConfig struct {
	Enabled          bool   `json:"enabled"`
	SnapshotInterval string `json:"snapshot_interval"` // Cron expression
	TimeZone         string `json:"timezone"`
}

// LoggerConfig represents logging configuration
type LoggerConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	Filename   string `json:"filename"`
	MaxSize    int    `json:"max_size"`
	MaxAge     int    `json:"max_age"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// AnalyticsConfig carries the statistical constants of the calculators.
type AnalyticsConfig struct {
	PeriodsPerYear      int     `json:"periods_per_year"`
	RiskFreeRate        float64 `json:"risk_free_rate"`
	MinBetaObservations int     `json:"min_beta_observations"`

	SectorWeight    float64 `json:"sector_weight"`
	IndustryWeight  float64 `json:"industry_weight"`
	GeographyWeight float64 `json:"geography_weight"`
	AssetTypeWeight float64 `json:"asset_type_weight"`
	CountWeight     float64 `json:"count_weight"`

	PositionReference  int     `json:"position_reference"`
	MediumHHIThreshold float64 `json:"medium_hhi_threshold"`
	HighHHIThreshold   float64 `json:"high_hhi_threshold"`

	DriftTolerance float64 `json:"drift_tolerance"`
}

// Load loads configuration from environment variables
func Load() *Config {
	// Load .env file if exists
	godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8084),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
		},

		Database: DatabaseConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "portfolio_analytics"),
			MaxPoolSize:    getEnvInt("MONGODB_MAX_POOL_SIZE", 100),
			MinPoolSize:    getEnvInt("MONGODB_MIN_POOL_SIZE", 5),
			ConnectTimeout: getEnvInt("MONGODB_CONNECT_TIMEOUT", 10),
			SocketTimeout:  getEnvInt("MONGODB_SOCKET_TIMEOUT", 30),
		},

		Cache: CacheConfig{
			Host:               getEnv("REDIS_HOST", "localhost"),
			Port:               getEnvInt("REDIS_PORT", 6379),
			Password:           getEnv("REDIS_PASSWORD", ""),
			DB:                 getEnvInt("REDIS_DB", 0),
			MaxRetries:         getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:           getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConnections: getEnvInt("REDIS_MIN_IDLE_CONNECTIONS", 5),
			DialTimeout:        getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:        getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:       getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			AnalysisTTL:        getEnvDuration("CACHE_ANALYSIS_TTL", 10*time.Minute),
			RiskTTL:            getEnvDuration("CACHE_RISK_TTL", 15*time.Minute),
			DividendTTL:        getEnvDuration("CACHE_DIVIDEND_TTL", 30*time.Minute),
			SnapshotTTL:        getEnvDuration("CACHE_SNAPSHOT_TTL", time.Hour),
		},

		RabbitMQ: RabbitMQConfig{
			Enabled:              getEnvBool("RABBITMQ_ENABLED", true),
			URL:                  getEnv("RABBITMQ_URL", ""),
			Host:                 getEnv("RABBITMQ_HOST", "localhost"),
			Port:                 getEnvInt("RABBITMQ_PORT", 5672),
			Username:             getEnv("RABBITMQ_USERNAME", "guest"),
			Password:             getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:                getEnv("RABBITMQ_VHOST", "/"),
			PortfolioExchange:    getEnv("RABBITMQ_PORTFOLIO_EXCHANGE", "portfolio"),
			PortfolioQueue:       getEnv("RABBITMQ_PORTFOLIO_QUEUE", "analytics.portfolio"),
			PortfolioRoutingKey:  getEnv("RABBITMQ_PORTFOLIO_ROUTING_KEY", "portfolio.updated"),
			ConsumerTag:          getEnv("RABBITMQ_CONSUMER_TAG", "analytics-service"),
			PrefetchCount:        getEnvInt("RABBITMQ_PREFETCH_COUNT", 10),
			Heartbeat:            getEnvDuration("RABBITMQ_HEARTBEAT", 30*time.Second),
			MaxReconnectAttempts: getEnvInt("RABBITMQ_MAX_RECONNECT_ATTEMPTS", 5),
			ReconnectDelay:       getEnvDuration("RABBITMQ_RECONNECT_DELAY", 5*time.Second),
		},

		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "default-secret-key"),
			RequireAuth: getEnvBool("REQUIRE_AUTH", true),
		},

		Broker: BrokerAPIConfig{
			BaseURL:    getEnv("BROKER_API_URL", "http://localhost:8081"),
			APIKey:     getEnv("BROKER_API_KEY", ""),
			Timeout:    getEnvDuration("BROKER_API_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvInt("BROKER_API_MAX_RETRIES", 3),
			RetryDelay: getEnvDuration("BROKER_API_RETRY_DELAY", time.Second),
		},

		Scheduler: SchedulerConfig{
			Enabled:          getEnvBool("SCHEDULER_ENABLED", true),
			SnapshotInterval: getEnv("SCHEDULER_SNAPSHOT_INTERVAL", "0 0 * * *"), // Daily at midnight
			TimeZone:         getEnv("SCHEDULER_TIMEZONE", "UTC"),
		},

		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Filename:   getEnv("LOG_FILENAME", ""),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 28),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},

		Analytics: AnalyticsConfig{
			PeriodsPerYear:      getEnvInt("ANALYTICS_PERIODS_PER_YEAR", 252),
			RiskFreeRate:        getEnvFloat("ANALYTICS_RISK_FREE_RATE", 0.02),
			MinBetaObservations: getEnvInt("ANALYTICS_MIN_BETA_OBSERVATIONS", 10),
			SectorWeight:        getEnvFloat("ANALYTICS_SECTOR_WEIGHT", 0.30),
			IndustryWeight:      getEnvFloat("ANALYTICS_INDUSTRY_WEIGHT", 0.20),
			GeographyWeight:     getEnvFloat("ANALYTICS_GEOGRAPHY_WEIGHT", 0.20),
			AssetTypeWeight:     getEnvFloat("ANALYTICS_ASSET_TYPE_WEIGHT", 0.15),
			CountWeight:         getEnvFloat("ANALYTICS_COUNT_WEIGHT", 0.15),
			PositionReference:   getEnvInt("ANALYTICS_POSITION_REFERENCE", 10),
			MediumHHIThreshold:  getEnvFloat("ANALYTICS_MEDIUM_HHI_THRESHOLD", 0.15),
			HighHHIThreshold:    getEnvFloat("ANALYTICS_HIGH_HHI_THRESHOLD", 0.25),
			DriftTolerance:      getEnvFloat("ANALYTICS_DRIFT_TOLERANCE", 5.0),
		},
	}

	return config
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}

	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "default-secret-key" {
		logrus.Warn("Using default JWT secret key, this is not recommended for production")
	}

	if c.Broker.BaseURL == "" {
		return fmt.Errorf("broker API URL is required")
	}

	weights := c.Analytics.SectorWeight + c.Analytics.IndustryWeight +
		c.Analytics.GeographyWeight + c.Analytics.AssetTypeWeight + c.Analytics.CountWeight
	if weights < 0.999 || weights > 1.001 {
		return fmt.Errorf("diversification sub-score weights must sum to 1, got %.3f", weights)
	}

	return nil
}
