package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string // sqlite|postgres
	DBDSN    string

	CORSOrigins []string

	// Evaluator access for the audit runner.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Audit sweep knobs.
	Auditors         []string
	GatePolicy       string // recent|consensus
	AuditInterval    time.Duration
	AuditBatchSize   int
	AuditConcurrency int
	AuditRPS         float64
	AuditMaxRetries  int

	EnableLearnerAuth bool
	JWTSecret         string
	TokenTTL          time.Duration

	QuizMaxCount int
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),

		Auditors:         csvOr("AUDITORS", ""),
		GatePolicy:       envOr("GATE_POLICY", "recent"),
		AuditInterval:    envDuration("AUDIT_INTERVAL", time.Minute),
		AuditBatchSize:   envInt("AUDIT_BATCH_SIZE", 25),
		AuditConcurrency: envInt("AUDIT_CONCURRENCY", 4),
		AuditRPS:         envFloat("AUDIT_RPS", 2),
		AuditMaxRetries:  envInt("AUDIT_MAX_RETRIES", 3),

		EnableLearnerAuth: envBool("ENABLE_LEARNER_AUTH", false),
		JWTSecret:         envOr("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:          envDuration("TOKEN_TTL", 8*time.Hour),

		QuizMaxCount: envInt("QUIZ_MAX_COUNT", 50),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
