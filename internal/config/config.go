package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Google    GoogleConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	WebAppURL      string
	PublicURL      string
	AllowedOrigins []string
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type StoreConfig struct {
	Backend string
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type RedisConfig struct {
	URL     string
	Channel string
}

// JWTConfig signs the short-lived WebSocket tickets
type JWTConfig struct {
	Secret       string
	TicketExpiry time.Duration
}

type GoogleConfig struct {
	ClientIDs    []string
	ClientSecret string
	RedirectURL  string
}

type StorageConfig struct {
	Type            string // "local" or "s3"
	LocalPath       string
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	MaxUploadBytes  int64
}

// RateLimitConfig applies per client IP to the /auth routes
type RateLimitConfig struct {
	AuthPerMinute float64
	AuthBurst     int
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port := getEnv("PORT", "8080")

	cfg := &Config{
		Server: ServerConfig{
			Port:           port,
			Env:            getEnv("ENV", "development"),
			WebAppURL:      strings.TrimRight(getEnv("WEB_APP_URL", "http://localhost:5173"), "/"),
			PublicURL:      strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+port), "/"),
			AllowedOrigins: parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreFirestore)),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("REDIS_CHANNEL", "praxis:events"),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-me-in-production"),
			TicketExpiry: getEnvDuration("WS_TICKET_EXPIRY", time.Minute),
		},
		Google: GoogleConfig{
			ClientIDs:    parseCSV(getEnv("GOOGLE_CLIENT_ID", "")), // comma separated for web + mobile clients
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:"+port+"/auth/google/callback"),
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "local"),
			LocalPath:       getEnv("UPLOAD_DIR", "./uploads"),
			Bucket:          getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			PublicURL:       strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
			MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: getEnvFloat("AUTH_RATE_PER_MINUTE", 20),
			AuthBurst:     getEnvInt("AUTH_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreFirestore, StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" || c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("R2_BUCKET_NAME and R2_ENDPOINT are required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q", c.Storage.Type))
	}

	if c.IsProduction() && c.JWT.Secret == "change-me-in-production" {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWT.TicketExpiry <= 0 {
		errs = append(errs, errors.New("WS_TICKET_EXPIRY must be positive"))
	}
	if c.RateLimit.AuthPerMinute <= 0 || c.RateLimit.AuthBurst <= 0 {
		errs = append(errs, errors.New("auth rate limit must be positive"))
	}

	return errors.Join(errs...)
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

// parseCSV parses a comma-separated string into a slice of strings
func parseCSV(value string) []string {
	result := []string{}
	for _, s := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
