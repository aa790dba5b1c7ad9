// Package config loads application configuration from environment
// variables. A .env file, if present, is read by the entry point
// before Load runs.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. Required variables are
// enforced by must(); optional ones fall back to sensible defaults.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	MinioEndpoint  string // object storage endpoint host:port
	MinioAccessKey string // object storage access key
	MinioSecretKey string // object storage secret key
	MinioBucket    string // bucket holding project files
	MinioUseSSL    bool   // whether to talk TLS to the object store

	AdminEmail    string // default admin seeded at startup (optional)
	AdminPassword string // default admin password (optional)

	CacheTTLSec int // response cache TTL in seconds (0 disables)
}

// Load reads configuration from the environment. Missing required
// variables abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		MinioEndpoint:  must("MINIO_ENDPOINT"),
		MinioAccessKey: must("MINIO_ACCESS_KEY"),
		MinioSecretKey: must("MINIO_SECRET_KEY"),
		MinioBucket:    getenv("MINIO_BUCKET", "project-hosting"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true" || os.Getenv("MINIO_USE_SSL") == "1",
		AdminEmail:     os.Getenv("DEFAULT_ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("DEFAULT_ADMIN_PASSWORD"),
		CacheTTLSec:    intOr("CACHE_TTL_SEC", 30),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
