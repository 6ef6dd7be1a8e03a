package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Migrations MigrationsConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr     string
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	EventRequested      string
	EventVerified       string
	RegistrationCreated string
}

type AuthConfig struct {
	// Secret signs locally issued HS256 tokens. Ignored when OIDCIssuer
	// is set, in which case tokens are verified against the issuer.
	Secret     string
	OIDCIssuer string
	TokenTTL   time.Duration
}

type MigrationsConfig struct {
	Dir         string
	AutoMigrate bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8085"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				EventRequested:      getEnv("KAFKA_TOPIC_EVENT_REQUESTED", "registry.event.requested"),
				EventVerified:       getEnv("KAFKA_TOPIC_EVENT_VERIFIED", "registry.event.verified"),
				RegistrationCreated: getEnv("KAFKA_TOPIC_REGISTRATION_CREATED", "registry.registration.created"),
			},
		},
		Auth: AuthConfig{
			Secret:     getEnv("AUTH_SECRET", ""),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			TokenTTL:   time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		},
		Migrations: MigrationsConfig{
			Dir:         getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate: getEnvBool("AUTO_MIGRATE", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
