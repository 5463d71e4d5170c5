package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Google project and OAuth client
	GoogleProjectID     string
	GoogleCredentials   string
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURI   string
	FrontendRedirectURL string

	// Credential store
	StagingTTL           time.Duration
	StagingSweepAge      time.Duration
	FirestoreDatabaseID  string
	CredentialCollection string
	StagingCollection    string
	CursorCollection     string
	TokenEncryptionKey   string
	OAuthStateSecret     string

	// Queue
	QueueBackend       string
	PubSubTopic        string
	PubSubSubscription string
	ReadyTopic         string
	NatsURL            string
	NatsStream         string
	QueuePullEnabled   bool

	// Fetch engine
	FetchMaxPerRun         int
	FetchIncrementalPage   int
	FetchBackfillPage      int
	FetchDetailDelay       time.Duration
	FetchDetailConcurrency int
	FetchUserConcurrency   int
	FetchLabel             string
	FetchContentLimit      int
	// FetchInterval enables the in-process scheduler; 0 leaves fetching to POST /fetch.
	FetchInterval time.Duration

	// Classifier
	AIProvider         string
	GeminiAPIKey       string
	GeminiModel        string
	OllamaBaseURL      string
	OllamaModel        string
	ClassifierMaxChars int

	// Sinks
	AnalyticsSink         string
	BigQueryDataset       string
	BigQueryTable         string
	BigQueryLocation      string
	DatabaseURL           string
	DocumentExcerptLength int

	// Identity
	IdentityProvider string
	JWTSecret        string
	JWKSURL          string

	// Retry
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:   getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/gmail/callback"),
		FrontendRedirectURL: getEnv("FRONTEND_REDIRECT_URL", "http://localhost:5173/dashboard"),

		StagingTTL:           getEnvDuration("STAGING_TTL", 30*time.Minute),
		StagingSweepAge:      getEnvDuration("STAGING_SWEEP_AGE", time.Hour),
		FirestoreDatabaseID:  getEnv("FIRESTORE_DATABASE_ID", ""),
		CredentialCollection: getEnv("CREDENTIAL_COLLECTION", "gmail_auth"),
		StagingCollection:    getEnv("STAGING_COLLECTION", "temp-tokens"),
		CursorCollection:     getEnv("CURSOR_COLLECTION", "fetch_cursors"),
		TokenEncryptionKey:   getEnv("TOKEN_ENCRYPTION_KEY", ""),
		OAuthStateSecret:     getEnv("OAUTH_STATE_SECRET", ""),

		QueueBackend:       strings.ToLower(getEnv("QUEUE_BACKEND", "pubsub")),
		PubSubTopic:        shortName(getEnv("PUBSUB_TOPIC", "new-emails-topic")),
		PubSubSubscription: shortName(getEnv("PUBSUB_SUBSCRIPTION", "")),
		ReadyTopic:         shortName(getEnv("READY_TOPIC", "applications-ready-topic")),
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsStream:         getEnv("NATS_STREAM", "MAIL_INGEST"),
		QueuePullEnabled:   getEnvBool("QUEUE_PULL_ENABLED", false),

		FetchMaxPerRun:         getEnvInt("FETCH_MAX_PER_RUN", 500),
		FetchIncrementalPage:   getEnvInt("FETCH_INCREMENTAL_PAGE_SIZE", 10),
		FetchBackfillPage:      getEnvInt("FETCH_BACKFILL_PAGE_SIZE", 100),
		FetchDetailDelay:       getEnvDuration("FETCH_DETAIL_DELAY", 100*time.Millisecond),
		FetchDetailConcurrency: getEnvInt("FETCH_DETAIL_CONCURRENCY", 4),
		FetchUserConcurrency:   getEnvInt("FETCH_USER_CONCURRENCY", 4),
		FetchLabel:             getEnv("FETCH_LABEL", "INBOX"),
		FetchContentLimit:      getEnvInt("FETCH_CONTENT_LIMIT", 4000),
		FetchInterval:          getEnvDuration("FETCH_INTERVAL", 0),

		AIProvider:         strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:        getEnv("OLLAMA_MODEL", "llama3.2"),
		ClassifierMaxChars: getEnvInt("CLASSIFIER_MAX_CHARS", 4000),

		AnalyticsSink:         strings.ToLower(getEnv("ANALYTICS_SINK", "bigquery")),
		BigQueryDataset:       getEnv("BQ_DATASET_ID", "user_data"),
		BigQueryTable:         getEnv("BQ_TABLE_ID", "job_applications"),
		BigQueryLocation:      getEnv("BQ_LOCATION", "US"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DocumentExcerptLength: getEnvInt("DOCUMENT_EXCERPT_LENGTH", 500),

		IdentityProvider: strings.ToLower(getEnv("IDENTITY_PROVIDER", "firebase")),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWKSURL:          getEnv("JWKS_URL", ""),

		RetryMaxAttempts:     getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialInterval: getEnvDuration("RETRY_INITIAL_INTERVAL", 500*time.Millisecond),
		RetryMaxInterval:     getEnvDuration("RETRY_MAX_INTERVAL", 5*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// shortName strips a full resource name (projects/p/topics/t) down to its last segment.
func shortName(name string) string {
	if parts := strings.Split(name, "/"); len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return name
}
