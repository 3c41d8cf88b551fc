package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Metadata   MetadataConfig
	Pool       PoolConfig
	Capability CapabilityConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Log        LogConfig
	Worker     WorkerConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Host             string
	Port             int
	Env              string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	TileCacheControl string
	CORSOrigins      string
}

// MetadataConfig - хранилище слоев и подключений (sqlite файл рабочего пространства или yaml каталог)
type MetadataConfig struct {
	Driver string
	Path   string
}

// PoolConfig - пулы к удаленным PostGIS базам
type PoolConfig struct {
	MaxConns       int
	MinConns       int
	ConnectTimeout time.Duration
	// AcquireTimeout - 0 означает ждать свободное соединение без ограничения
	AcquireTimeout time.Duration
}

type CapabilityConfig struct {
	MinPostgres string
	MinPostGIS  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// CacheConfig - кэш тайлов. По умолчанию выключен: каждый запрос выполняется заново.
type CacheConfig struct {
	Enabled bool
	Backend string
	TTL     time.Duration
	Size    int
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	BatchSize         int
	Streams           []string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load читает конфигурацию из .env файла и переменных окружения.
// Отсутствие файла не ошибка: в контейнере все приходит через окружение.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:             v.GetString("API_HOST"),
			Port:             v.GetInt("API_PORT"),
			Env:              v.GetString("API_ENV"),
			ReadTimeout:      time.Duration(v.GetInt("API_READ_TIMEOUT")) * time.Second,
			WriteTimeout:     time.Duration(v.GetInt("API_WRITE_TIMEOUT")) * time.Second,
			TileCacheControl: v.GetString("TILE_CACHE_CONTROL"),
			CORSOrigins:      v.GetString("CORS_ORIGINS"),
		},
		Metadata: MetadataConfig{
			Driver: v.GetString("METADATA_DRIVER"),
			Path:   v.GetString("METADATA_PATH"),
		},
		Pool: PoolConfig{
			MaxConns:       v.GetInt("REMOTE_POOL_MAX_CONNS"),
			MinConns:       v.GetInt("REMOTE_POOL_MIN_CONNS"),
			ConnectTimeout: time.Duration(v.GetInt("REMOTE_CONNECT_TIMEOUT")) * time.Second,
			AcquireTimeout: time.Duration(v.GetInt("REMOTE_ACQUIRE_TIMEOUT")) * time.Millisecond,
		},
		Capability: CapabilityConfig{
			MinPostgres: v.GetString("MIN_POSTGRES_VERSION"),
			MinPostGIS:  v.GetString("MIN_POSTGIS_VERSION"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("TILE_CACHE_ENABLED"),
			Backend: v.GetString("TILE_CACHE_BACKEND"),
			TTL:     time.Duration(v.GetInt("TILE_CACHE_TTL")) * time.Second,
			Size:    v.GetInt("TILE_CACHE_SIZE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			BatchSize:         v.GetInt("WORKER_BATCH_SIZE"),
			Streams:           splitList(v.GetString("WORKER_STREAMS")),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.TileCacheControl == "" {
		c.Server.TileCacheControl = "no-cache"
	}
	if c.Server.CORSOrigins == "" {
		c.Server.CORSOrigins = "*"
	}
	if c.Metadata.Driver == "" {
		c.Metadata.Driver = "sqlite"
	}
	if c.Metadata.Path == "" {
		c.Metadata.Path = "workspace.db"
	}
	if c.Pool.MaxConns == 0 {
		c.Pool.MaxConns = 5
	}
	if c.Pool.MinConns == 0 {
		c.Pool.MinConns = 1
	}
	if c.Pool.ConnectTimeout == 0 {
		c.Pool.ConnectTimeout = 10 * time.Second
	}
	if c.Capability.MinPostgres == "" {
		c.Capability.MinPostgres = "9.6"
	}
	if c.Capability.MinPostGIS == "" {
		c.Capability.MinPostGIS = "2.4"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 4096
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Worker.ConsumerGroup == "" {
		c.Worker.ConsumerGroup = "tile-invalidation-workers"
	}
	if c.Worker.StreamReadTimeout == 0 {
		c.Worker.StreamReadTimeout = 5000 * time.Millisecond
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 20
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
