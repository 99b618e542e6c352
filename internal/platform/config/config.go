package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Generator backends.
const (
	GeneratorHeuristic  = "heuristic"
	GeneratorOpenRouter = "openrouter"
	GeneratorBedrock    = "bedrock"
	GeneratorGemini     = "gemini"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	MetricsAddr    string
	RequestTimeout time.Duration
	Log            Log
	Generator      Generator
	Store          Store
	AWS            AWS
	Telemetry      Telemetry
}

// Log selects the slog handler.
type Log struct {
	Level  string
	Format string
}

// Generator selects and configures the policy generator.
type Generator struct {
	Backend          string
	OpenRouterAPIKey string
	OpenRouterModel  string
	OpenRouterURL    string
	BedrockModelID   string
	GeminiAPIKey     string
	GeminiModel      string
	Timeout          time.Duration
}

// Store selects and configures the record store.
type Store struct {
	Backend       string
	Redis         RedisConfig
	DatabaseURL   string
	DynamoTable   string
	Retention     time.Duration
	PurgeInterval time.Duration
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AWS configures the SDK clients shared by DynamoDB and Bedrock.
type AWS struct {
	Region string
}

// Telemetry configures trace export.
type Telemetry struct {
	ServiceName  string
	OTLPEndpoint string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed durations fall back to their defaults; Validate reports semantic problems.
func FromEnv() Server {
	openRouterKey := os.Getenv("OPENROUTER_API_KEY")
	backend := strings.ToLower(getEnv("GENERATOR_BACKEND", ""))
	if backend == "" {
		backend = GeneratorHeuristic
		if openRouterKey != "" {
			backend = GeneratorOpenRouter
		}
	}

	return Server{
		Addr:           getEnv("POLICY_API_ADDR", ":8080"),
		MetricsAddr:    getEnvAllowEmpty("METRICS_ADDR", ":9090"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 60*time.Second),
		Log: Log{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Generator: Generator{
			Backend:          backend,
			OpenRouterAPIKey: openRouterKey,
			OpenRouterModel:  getEnv("OPENROUTER_MODEL", "anthropic/claude-3.5-haiku"),
			OpenRouterURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			BedrockModelID:   getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
			GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:          getDuration("ORACLE_TIMEOUT", 30*time.Second),
		},
		Store: Store{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			Redis: RedisConfig{
				URL:          os.Getenv("REDIS_URL"),
				PoolSize:     10,
				MinIdleConns: 2,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			DynamoTable:   getEnv("DYNAMODB_TABLE", "iam-policies"),
			Retention:     getDuration("POLICY_RETENTION", 90*24*time.Hour),
			PurgeInterval: getDuration("PURGE_INTERVAL", time.Hour),
		},
		AWS: AWS{
			Region: getEnv("REGION", getEnv("AWS_REGION", "us-east-1")),
		},
		Telemetry: Telemetry{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ai-powered-iam"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}
}

// Validate rejects unknown backends and missing credentials.
func (c Server) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("POLICY_API_ADDR must not be empty"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format))
	}

	switch c.Generator.Backend {
	case GeneratorHeuristic, GeneratorBedrock:
	case GeneratorOpenRouter:
		if c.Generator.OpenRouterAPIKey == "" {
			errs = append(errs, errors.New("OPENROUTER_API_KEY is required for the openrouter generator"))
		}
	case GeneratorGemini:
		if c.Generator.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini generator"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GENERATOR_BACKEND %q", c.Generator.Backend))
	}

	switch c.Store.Backend {
	case StoreMemory, StoreDynamoDB:
	case StoreRedis:
		if c.Store.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis store"))
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	if c.Store.Retention <= 0 {
		errs = append(errs, errors.New("POLICY_RETENTION must be positive"))
	}
	return errors.Join(errs...)
}

// NeedsAWS reports whether any configured backend talks to AWS.
func (c Server) NeedsAWS() bool {
	return c.Generator.Backend == GeneratorBedrock || c.Store.Backend == StoreDynamoDB
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
