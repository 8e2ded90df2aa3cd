package config

import (
	"fmt"
	"os"
	"strings"
)

// StoreType selects the backing implementation for persisted demo state.
type StoreType string

const (
	MemoryStore   StoreType = "memory"
	PostgresStore StoreType = "postgres"
)

// Config holds everything the provisioning service needs from the
// environment. Credential material is always injected here, never
// embedded in source.
type Config struct {
	// Demo account settings
	DemoDomain  string // domain appended to derived demo addresses
	DemoOrgUnit string // org unit path for created directory accounts

	// Directory API access
	CredentialsFile string // path to a service-account JSON key
	AdminSubject    string // admin user to impersonate for directory calls

	// Generative model
	GeminiAPIKey string
	GeminiModel  string

	// State store
	StoreType  StoreType
	DBConnStr  string
	ListenAddr string
}

// Load reads configuration from environment variables, applying the
// defaults used in local development.
func Load() Config {
	return Config{
		DemoDomain:      getEnv("DEMO_DOMAIN", "demo.example.com"),
		DemoOrgUnit:     getEnv("DEMO_ORG_UNIT", "/DemoAccounts"),
		CredentialsFile: os.Getenv("DIRECTORY_CREDENTIALS_FILE"),
		AdminSubject:    os.Getenv("DIRECTORY_ADMIN_SUBJECT"),
		GeminiAPIKey:    getAPIKey(),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash-preview-09-2025"),
		StoreType:       getStoreType(),
		DBConnStr:       getConnectionString(),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8282"),
	}
}

// Validate reports the first missing piece of required configuration.
// The store type and listen address have usable defaults; directory
// and model access do not.
func (c Config) Validate() error {
	if c.DemoDomain == "" {
		return fmt.Errorf("DEMO_DOMAIN must not be empty")
	}
	if c.CredentialsFile == "" {
		return fmt.Errorf("DIRECTORY_CREDENTIALS_FILE is required")
	}
	if c.AdminSubject == "" {
		return fmt.Errorf("DIRECTORY_ADMIN_SUBJECT is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) is required")
	}
	return nil
}

// getAPIKey looks for GEMINI_API_KEY first, then falls back to GOOGLE_API_KEY
func getAPIKey() string {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		return apiKey
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func getStoreType() StoreType {
	switch strings.ToLower(os.Getenv("DEMO_STORE_TYPE")) {
	case "memory", "mock":
		return MemoryStore
	default:
		// Default to Postgres if unset or unknown
		return PostgresStore
	}
}

// getConnectionString returns the database connection string
func getConnectionString() string {
	connStr := os.Getenv("DB_CONN_STRING")
	if connStr == "" {
		// Default connection string for local development
		return "postgres://localhost:5432/postgres?sslmode=disable"
	}
	return connStr
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
