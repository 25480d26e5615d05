package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит все настройки Catalog Service:
// HTTP сервер, PostgreSQL, Redis (кеш списков), Kafka (события отзывов), JWT и cron сверки счётчиков
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host               string
	Port               string
	CORSAllowedOrigins []string // Адреса админки (SPA)
}

// DatabaseConfig - PostgreSQL: категории, товары, отзывы, реакции и справочник пользователей
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig - TTL кеша списков "все товары" / "все категории"
type CacheConfig struct {
	ProductsTTL   time.Duration
	CategoriesTTL time.Duration
}

// KafkaConfig - топик review_events: сервис сам пишет в него и сам читает для пересчёта рейтингов
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

type JWTConfig struct {
	Secret string // Должен совпадать с Auth Service
}

// ReconcileConfig - расписание полной сверки счётчиков реакций с рёбрами
type ReconcileConfig struct {
	Schedule    string
	OnStartup   bool
	Parallelism int
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	productsTTL, err := getEnvDuration("CACHE_PRODUCTS_TTL", 60*time.Second)
	if err != nil {
		return nil, err
	}
	categoriesTTL, err := getEnvDuration("CACHE_CATEGORIES_TTL", 120*time.Second)
	if err != nil {
		return nil, err
	}

	minBytes, err := getEnvInt("KAFKA_MIN_BYTES", 1)
	if err != nil {
		return nil, err
	}
	maxBytes, err := getEnvInt("KAFKA_MAX_BYTES", 10e6)
	if err != nil {
		return nil, err
	}

	parallelism, err := getEnvInt("RECONCILE_PARALLELISM", 4)
	if err != nil {
		return nil, err
	}
	if parallelism < 1 {
		return nil, fmt.Errorf("invalid RECONCILE_PARALLELISM value: %d", parallelism)
	}

	return &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getEnv("SERVER_PORT", "8081"),
			CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "catalog_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Cache: CacheConfig{
			ProductsTTL:   productsTTL,
			CategoriesTTL: categoriesTTL,
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:    getEnv("KAFKA_TOPIC", "review_events"),
			GroupID:  getEnv("KAFKA_GROUP_ID", "catalog-rating-group"),
			MinBytes: minBytes,
			MaxBytes: maxBytes,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
		},
		Reconcile: ReconcileConfig{
			Schedule:    getEnv("RECONCILE_SCHEDULE", "0 3 * * *"),
			OnStartup:   getEnv("RECONCILE_ON_STARTUP", "true") == "true",
			Parallelism: parallelism,
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
	}, nil
}

// DSN возвращает строку подключения в формате libpq (для gorm)
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL возвращает строку подключения для pgxpool
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return v, nil
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
