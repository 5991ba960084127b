package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	// Environments is the set of policy environments this instance serves.
	Environments []string

	// PolicySource selects where policy documents load from: file, vault
	// or gcp.
	PolicySource    string
	PolicyDir       string
	PolicyCacheSecs int

	VaultAddr  string
	VaultToken string
	VaultMount string

	GCPProjectID             string
	GCPAccessToken           string
	GCPSecretManagerEndpoint string

	DirectoryEndpoint string
	DirectoryToken    string

	TokenSigningKey      string
	TokenIssuer          string
	TokenValidityMinutes int

	JustificationPattern string
	JustificationHint    string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                 addr,
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		LogLevel:                 envDefault("LOG_LEVEL", "info"),
		Environments:             envList("WARDEN_ENVIRONMENTS"),
		PolicySource:             envDefault("POLICY_SOURCE", "file"),
		PolicyDir:                envDefault("POLICY_DIR", "policies"),
		PolicyCacheSecs:          envIntDefault("POLICY_CACHE_SECONDS", 300),
		VaultAddr:                os.Getenv("VAULT_ADDR"),
		VaultToken:               os.Getenv("VAULT_TOKEN"),
		VaultMount:               envDefault("VAULT_MOUNT", "secret"),
		GCPProjectID:             os.Getenv("GCP_PROJECT_ID"),
		GCPAccessToken:           os.Getenv("GCP_ACCESS_TOKEN"),
		GCPSecretManagerEndpoint: os.Getenv("GCP_SECRET_MANAGER_ENDPOINT"),
		DirectoryEndpoint:        os.Getenv("DIRECTORY_ENDPOINT"),
		DirectoryToken:           os.Getenv("DIRECTORY_TOKEN"),
		TokenSigningKey:          os.Getenv("TOKEN_SIGNING_KEY"),
		TokenIssuer:              envDefault("TOKEN_ISSUER", "warden"),
		TokenValidityMinutes:     envIntDefault("TOKEN_VALIDITY_MINUTES", 60),
		JustificationPattern:     os.Getenv("JUSTIFICATION_PATTERN"),
		JustificationHint:        os.Getenv("JUSTIFICATION_HINT"),
		RateLimitRequests:        envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:   envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:         envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) PolicyCacheTTL() time.Duration {
	if c.PolicyCacheSecs <= 0 {
		return 0
	}
	return time.Duration(c.PolicyCacheSecs) * time.Second
}

func (c Config) TokenValidity() time.Duration {
	if c.TokenValidityMinutes <= 0 {
		return 0
	}
	return time.Duration(c.TokenValidityMinutes) * time.Minute
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
