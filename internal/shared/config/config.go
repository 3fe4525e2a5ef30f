package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MaxUploadBytes  int64

	LLMProvider   string
	LLMModel      string
	LLMTimeout    time.Duration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string

	TranscribeProvider    string
	TranscribeModel       string
	TranscribeLanguage    string
	TranscribeTimeout     time.Duration
	DiarizeBaseURL        string
	DiarizeAPIKey         string
	RoleAssignmentEnabled bool

	AnalysisConcurrency int
	HeartbeatInterval   time.Duration
	StaleAfter          time.Duration
	PendingStaleAfter   time.Duration
	ReconcileInterval   time.Duration

	TemplatesFile string

	SQSQueueURL          string
	SQSVisibilityTimeout time.Duration
	WorkerConcurrency    int
	ShutdownTimeout      time.Duration
}

const (
	minAnalysisConcurrency = 2
	maxAnalysisConcurrency = 8
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// .env.local holds per-developer overrides of the shared .env.
	loadEnvFiles(".env.local", ".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 200<<20)),

		LLMProvider:   normalizeProvider(getEnv("LLM_PROVIDER", "openai"), "openai", "ollama"),
		LLMModel:      getEnv("LLM_MODEL", ""),
		LLMTimeout:    getEnvDuration("LLM_TIMEOUT", 2*time.Minute),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		TranscribeProvider:    normalizeProvider(getEnv("TRANSCRIBE_PROVIDER", "whisper"), "whisper", "diarize"),
		TranscribeModel:       getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		TranscribeLanguage:    getEnv("TRANSCRIBE_LANGUAGE", ""),
		TranscribeTimeout:     getEnvDuration("TRANSCRIBE_TIMEOUT", 10*time.Minute),
		DiarizeBaseURL:        getEnv("DIARIZE_BASE_URL", ""),
		DiarizeAPIKey:         getEnv("DIARIZE_API_KEY", ""),
		RoleAssignmentEnabled: getEnvBool("ROLE_ASSIGNMENT_ENABLED", true),

		AnalysisConcurrency: clampInt(getEnvInt("ANALYSIS_CONCURRENCY", 4), minAnalysisConcurrency, maxAnalysisConcurrency),
		HeartbeatInterval:   getEnvDuration("ANALYSIS_HEARTBEAT_INTERVAL", 15*time.Second),
		StaleAfter:          getEnvDuration("ANALYSIS_STALE_AFTER", 10*time.Minute),
		ReconcileInterval:   getEnvDuration("RECONCILE_INTERVAL", time.Minute),

		TemplatesFile: getEnv("TEMPLATES_FILE", ""),

		SQSQueueURL:          getEnv("CA_SQS_QUEUE_URL", ""),
		SQSVisibilityTimeout: getEnvDuration("CA_SQS_VISIBILITY_TIMEOUT", 20*time.Minute),
		WorkerConcurrency:    clampInt(getEnvInt("CA_WORKER_CONCURRENCY", 2), 1, 16),
		ShutdownTimeout:      getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
	cfg.PendingStaleAfter = getEnvDuration("ANALYSIS_PENDING_STALE_AFTER", defaultPendingStaleAfter(cfg))
	return cfg
}

// defaultPendingStaleAfter: in-process runs start within seconds of submission, so a pending
// row is abandoned on the same clock as a running one. Queued rows wait for a worker and
// only heartbeat once one picks them up.
func defaultPendingStaleAfter(cfg Config) time.Duration {
	if cfg.SQSQueueURL != "" {
		return 24 * time.Hour
	}
	return cfg.StaleAfter
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// normalizeProvider maps raw onto one of known, or "none".
func normalizeProvider(raw string, known ...string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, k := range known {
		if v == k {
			return k
		}
	}
	return "none"
}
