package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env         string
	ServerPort  string
	StoreDriver string
	MySQLDSN    string
	ResetDB     bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SwaggerHost string

	JWTSecret   string
	JWTTTL      time.Duration
	JWTAdminTTL time.Duration
	BcryptCost  int

	// StoreTimeout bounds every store call made on behalf of a request.
	StoreTimeout    time.Duration
	ProfileCacheTTL time.Duration
	AllowSelfLike   bool
}

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		Env:             getEnv("ENV", "development"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		StoreDriver:     getEnv("STORE_DRIVER", StoreMySQL),
		MySQLDSN:        getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/civicvoice?charset=utf8mb4&parseTime=True&loc=UTC"),
		ResetDB:         getEnvBool("RESET_DB", false),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		SwaggerHost:     os.Getenv("SWAGGER_HOST"),
		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		JWTTTL:          getEnvDuration("JWT_TTL", 24*time.Hour),
		JWTAdminTTL:     getEnvDuration("JWT_ADMIN_TTL", 12*time.Hour),
		BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 3*time.Second),
		ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		AllowSelfLike:   getEnvBool("ALLOW_SELF_LIKE", true),
	}
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
