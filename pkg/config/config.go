package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Artifact sources
const (
	ArtifactSourceFile     = "file"
	ArtifactSourcePostgres = "postgres"
)

// Policies for categorical values outside the encoder vocabulary
const (
	UnseenPolicyDegrade = "degrade"
	UnseenPolicyReject  = "reject"
)

// Policies for an empty drug name
const (
	DrugNamePolicyAllow  = "allow"
	DrugNamePolicyWarn   = "warn"
	DrugNamePolicyReject = "reject"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OTEL      OTELConfig
	Log       LogConfig
	Artifacts ArtifactsConfig
	Policy    PolicyConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout int // seconds
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	VerdictCacheTTL int // seconds
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Env   string
	Level string
}

// ArtifactsConfig says where the classifier and encoders are loaded from.
// An empty encoder path selects the built-in vocabulary for that field.
type ArtifactsConfig struct {
	Source                  string
	ModelName               string
	ModelPath               string
	PhaseEncoderPath        string
	TrialResultsEncoderPath string
}

// PolicyConfig holds the request-time input policies
type PolicyConfig struct {
	UnseenCategory string
	DrugName       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "fda_checker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:         getEnvAsBool("REDIS_ENABLED", false),
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnvAsInt("REDIS_PORT", 6379),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			VerdictCacheTTL: getEnvAsInt("VERDICT_CACHE_TTL_SECONDS", 3600),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "fda-compliance-checker"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Env:   getEnv("APP_ENV", "development"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Artifacts: ArtifactsConfig{
			Source:                  strings.ToLower(getEnv("ARTIFACT_SOURCE", ArtifactSourceFile)),
			ModelName:               getEnv("MODEL_NAME", "drug_model"),
			ModelPath:               getEnv("MODEL_PATH", "artifacts/drug_model.json"),
			PhaseEncoderPath:        getEnvAllowEmpty("PHASE_ENCODER_PATH", "artifacts/label_encoder_phase.yaml"),
			TrialResultsEncoderPath: getEnvAllowEmpty("TRIAL_RESULTS_ENCODER_PATH", "artifacts/label_encoder_trial_results.yaml"),
		},
		Policy: PolicyConfig{
			UnseenCategory: strings.ToLower(getEnv("UNSEEN_CATEGORY_POLICY", UnseenPolicyDegrade)),
			DrugName:       strings.ToLower(getEnv("DRUG_NAME_POLICY", DrugNamePolicyWarn)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values.
func (c *Config) Validate() error {
	switch c.Artifacts.Source {
	case ArtifactSourceFile, ArtifactSourcePostgres:
	default:
		return fmt.Errorf("invalid ARTIFACT_SOURCE %q (must be file or postgres)", c.Artifacts.Source)
	}
	switch c.Policy.UnseenCategory {
	case UnseenPolicyDegrade, UnseenPolicyReject:
	default:
		return fmt.Errorf("invalid UNSEEN_CATEGORY_POLICY %q (must be degrade or reject)", c.Policy.UnseenCategory)
	}
	switch c.Policy.DrugName {
	case DrugNamePolicyAllow, DrugNamePolicyWarn, DrugNamePolicyReject:
	default:
		return fmt.Errorf("invalid DRUG_NAME_POLICY %q (must be allow, warn or reject)", c.Policy.DrugName)
	}
	if c.Artifacts.Source == ArtifactSourceFile && c.Artifacts.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required when ARTIFACT_SOURCE=file")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty treats a variable that is set but empty as a value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
