// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Cache    CacheConfig
	Queue    QueueConfig
	Engine   EngineConfig
	Tools    ToolsConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// StorageConfig points at the content-addressable file root (§4.1).
type StorageConfig struct {
	Root              string
	CacheMaxAgeHours  int
	MaxUploadBytes    int64
}

type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	Database     int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
	MaxConnAge   time.Duration
	EnableTLS    bool
}

// NATSConfig configures the optional cross-instance eventbus bridge. The
// in-process bus works without NATS; this is only consulted when
// NATS_BRIDGE_ENABLED is set.
type NATSConfig struct {
	Enabled         bool
	URL             string
	ClusterID       string
	ClientID        string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ConnectTimeout  time.Duration
	MaxPendingMsgs  int
	MaxPendingBytes int64
	EnableJetStream bool
}

type CacheConfig struct {
	EnableLevel1  bool
	EnableLevel2  bool
	SliceBankTTL  time.Duration
	MaxMemoryMB   int
	StatsInterval time.Duration
}

// QueueConfig tunes the Job Orchestrator's worker pool (§4.4).
type QueueConfig struct {
	MaxWorkers          int
	MaxQueueSize        int
	ProcessingTimeout   time.Duration
	RetryMaxAttempts    int
	RetryBackoffBase    time.Duration
	DeadLetterQueueSize int
	PollInterval        time.Duration
	ProgressMinInterval time.Duration
	ProgressMinDelta    float64
}

// EngineConfig tunes the Slice Engine and Trigger Engine (§4.2, §4.3).
type EngineConfig struct {
	DefaultFadeMs       float64
	MaxSliceHistory     int
	DefaultTemperature  float64
}

// ToolsConfig points at the external collaborator binaries the Job
// Orchestrator shells out to: heavy DSP (stem separation, BPM/key
// detection) and peaks generation are explicitly not reimplemented here.
type ToolsConfig struct {
	SeparationBinary string
	DetectorBinary   string
	AudiowaveformBinary string
}

func New() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		host := getEnv("DATABASE_HOST", "localhost")
		port := getEnv("DATABASE_PORT", "5432")
		username := getEnv("DATABASE_USER", "postgres")
		password := getEnv("DATABASE_PASSWORD", "")
		database := getEnv("DATABASE_NAME", "loopforge_dev")
		sslmode := "disable"

		databaseURL = "postgres://" + username + ":" + password + "@" + host + ":" + port + "/" + database + "?sslmode=" + sslmode
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:          databaseURL,
			Host:         getEnv("DATABASE_HOST", "localhost"),
			Port:         getEnv("DATABASE_PORT", "5432"),
			Username:     getEnv("DATABASE_USER", "postgres"),
			Password:     getEnv("DATABASE_PASSWORD", ""),
			Database:     getEnv("DATABASE_NAME", "loopforge_dev"),
			SSLMode:      "disable",
			MaxOpenConns: getIntEnv("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DATABASE_MAX_IDLE_CONNS", 10),
			MaxLifetime:  getDurationEnv("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Storage: StorageConfig{
			Root:             getEnv("LOOPFORGE_STORAGE", "./storage"),
			CacheMaxAgeHours: getIntEnv("LOOPFORGE_CACHE_MAX_AGE_HOURS", 24),
			MaxUploadBytes:   getInt64Env("LOOPFORGE_MAX_UPLOAD_BYTES", 512*1024*1024),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getIntEnv("REDIS_DATABASE", 0),
			MaxRetries:   getIntEnv("REDIS_MAX_RETRIES", 3),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 20),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 5*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			MaxConnAge:   getDurationEnv("REDIS_MAX_CONN_AGE", 10*time.Minute),
			EnableTLS:    getBoolEnv("REDIS_ENABLE_TLS", false),
		},
		NATS: NATSConfig{
			Enabled:         getBoolEnv("NATS_BRIDGE_ENABLED", false),
			URL:             getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID:       getEnv("NATS_CLUSTER_ID", "loopforge-cluster"),
			ClientID:        getEnv("NATS_CLIENT_ID", "loopforged"),
			MaxReconnects:   getIntEnv("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:   getDurationEnv("NATS_RECONNECT_WAIT", 2*time.Second),
			ConnectTimeout:  getDurationEnv("NATS_CONNECT_TIMEOUT", 5*time.Second),
			MaxPendingMsgs:  getIntEnv("NATS_MAX_PENDING_MSGS", 10000),
			MaxPendingBytes: getInt64Env("NATS_MAX_PENDING_BYTES", 64*1024*1024),
			EnableJetStream: getBoolEnv("NATS_ENABLE_JETSTREAM", true),
		},
		Cache: CacheConfig{
			EnableLevel1:  getBoolEnv("CACHE_ENABLE_L1", true),
			EnableLevel2:  getBoolEnv("CACHE_ENABLE_L2", true),
			SliceBankTTL:  getDurationEnv("CACHE_SLICE_BANK_TTL", 30*time.Minute),
			MaxMemoryMB:   getIntEnv("CACHE_MAX_MEMORY_MB", 256),
			StatsInterval: getDurationEnv("CACHE_STATS_INTERVAL", 30*time.Second),
		},
		Queue: QueueConfig{
			MaxWorkers:          getIntEnv("QUEUE_MAX_WORKERS", 4),
			MaxQueueSize:        getIntEnv("QUEUE_MAX_SIZE", 1000),
			ProcessingTimeout:   getDurationEnv("QUEUE_PROCESSING_TIMEOUT", 10*time.Minute),
			RetryMaxAttempts:    getIntEnv("QUEUE_RETRY_MAX_ATTEMPTS", 3),
			RetryBackoffBase:    getDurationEnv("QUEUE_RETRY_BACKOFF_BASE", 1*time.Second),
			DeadLetterQueueSize: getIntEnv("QUEUE_DLQ_SIZE", 200),
			PollInterval:        getDurationEnv("QUEUE_POLL_INTERVAL", 500*time.Millisecond),
			ProgressMinInterval: getDurationEnv("QUEUE_PROGRESS_MIN_INTERVAL", 500*time.Millisecond),
			ProgressMinDelta:    getFloatEnv("QUEUE_PROGRESS_MIN_DELTA", 2.0),
		},
		Engine: EngineConfig{
			DefaultFadeMs:      getFloatEnv("ENGINE_DEFAULT_FADE_MS", 2.0),
			MaxSliceHistory:    getIntEnv("ENGINE_MAX_PLAY_HISTORY", 16),
			DefaultTemperature: getFloatEnv("ENGINE_DEFAULT_TEMPERATURE", 1.0),
		},
		Tools: ToolsConfig{
			SeparationBinary:    getEnv("LOOPFORGE_SEPARATION_BINARY", ""),
			DetectorBinary:      getEnv("LOOPFORGE_DETECTOR_BINARY", ""),
			AudiowaveformBinary: getEnv("LOOPFORGE_AUDIOWAVEFORM_BINARY", "audiowaveform"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
