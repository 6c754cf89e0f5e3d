package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Collab    CollabConfig
	CORS      CORSConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

// StoreConfig points at the optional CouchDB persistence collaborator.
// With Enabled false the server runs fully in-memory.
type StoreConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

// CollabConfig holds the sweep thresholds. Sweeps only run when the
// host ticks them; SweepInterval is that tick.
type CollabConfig struct {
	SessionInactivityThreshold time.Duration
	PresenceStalenessWindow    time.Duration
	PresenceCacheTTL           time.Duration
	SweepInterval              time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	sessionInactivity, err := time.ParseDuration(getEnv("SESSION_INACTIVITY_THRESHOLD", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_INACTIVITY_THRESHOLD: %w", err)
	}

	presenceStaleness, err := time.ParseDuration(getEnv("PRESENCE_STALENESS_WINDOW", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRESENCE_STALENESS_WINDOW: %w", err)
	}

	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Enabled:  getEnvAsBool("STORE_ENABLED", false),
			Host:     getEnv("STORE_HOST", "localhost"),
			Port:     getEnv("STORE_PORT", "5984"),
			User:     getEnv("STORE_USER", "admin"),
			Password: getEnv("STORE_PASSWORD", "password"),
			Name:     getEnv("STORE_NAME", "collab"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration: jwtExp,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 1048576)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		Collab: CollabConfig{
			SessionInactivityThreshold: sessionInactivity,
			PresenceStalenessWindow:    presenceStaleness,
			PresenceCacheTTL:           presenceStaleness,
			SweepInterval:              sweepInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
