package config

import (
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	Port           string
	IsProduction   bool
	LogLevel       slog.Level
	StorageDriver  string
	DatabaseURL    string
	EnableDBCheck  bool
	DBMaxConns     int32 // zero keeps the pgxpool default
	MigrationsPath string
	MasterDataFile string // items/warehouses registry for the memory driver

	AuthEnabled bool
	JWTSecret   string
	JWTIssuer   string

	RateLimit          string // ulule/limiter formatted rate, e.g. "100-S"
	CORSAllowedOrigins []string

	// Distributed order locks; empty address keeps locks in-process.
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	// Ledger events; empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string

	ReconcileInterval    time.Duration // zero disables the background job
	ReconcileRepair      bool
	ReconcileParallelism int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("DB_MAX_CONNS", 0)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("MASTER_DATA_FILE", "")
	viper.SetDefault("AUTH_ENABLED", false)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "food-erp")
	viper.SetDefault("RATE_LIMIT", "50-S")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("REDIS_ADDRESS", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOCK_TTL", "30s")
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "stock.events")
	viper.SetDefault("RECONCILE_INTERVAL", "0s")
	viper.SetDefault("RECONCILE_REPAIR", false)
	viper.SetDefault("RECONCILE_PARALLELISM", 4)

	viper.AutomaticEnv()

	cfg := &Config{
		Port:           viper.GetString("PORT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		LogLevel:       parseLogLevel(viper.GetString("LOG_LEVEL")),
		StorageDriver:  strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		DatabaseURL:    viper.GetString("PGSQL_URL"),
		EnableDBCheck:  viper.GetBool("ENABLE_DB_CHECK"),
		DBMaxConns:     viper.GetInt32("DB_MAX_CONNS"),
		MigrationsPath: viper.GetString("MIGRATIONS_PATH"),
		MasterDataFile: viper.GetString("MASTER_DATA_FILE"),
		AuthEnabled:    viper.GetBool("AUTH_ENABLED"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		JWTIssuer:      viper.GetString("JWT_ISSUER"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
		RedisAddress:   viper.GetString("REDIS_ADDRESS"),
		RedisPassword:  viper.GetString("REDIS_PASSWORD"),
		RedisDB:        viper.GetInt("REDIS_DB"),
		AMQPURL:        viper.GetString("AMQP_URL"),
		AMQPExchange:   viper.GetString("AMQP_EXCHANGE"),

		ReconcileRepair:      viper.GetBool("RECONCILE_REPAIR"),
		ReconcileParallelism: viper.GetInt("RECONCILE_PARALLELISM"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		log.Printf("Warning: unknown STORAGE_DRIVER '%s'. Defaulting to %s.\n", cfg.StorageDriver, StoragePostgres)
		cfg.StorageDriver = StoragePostgres
	}
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		log.Println("Warning: AUTH_ENABLED is set but JWT_SECRET is empty. Disabling token verification.")
		cfg.AuthEnabled = false
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.LockTTL = parseDuration("LOCK_TTL", 30*time.Second)
	cfg.ReconcileInterval = parseDuration("RECONCILE_INTERVAL", 0)

	if cfg.ReconcileParallelism < 1 {
		cfg.ReconcileParallelism = 1
	}

	return cfg, nil
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}

func parseLogLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		log.Printf("Warning: Invalid value for LOG_LEVEL ('%s'). Defaulting to info.\n", raw)
		return slog.LevelInfo
	}
	return level
}
