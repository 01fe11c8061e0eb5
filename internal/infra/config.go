package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"styliq/internal/domain"
	"styliq/internal/prompt"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
	MaxUploadBytes   int64

	GeminiAPIKey       string
	GeminiModel        string
	ConsultTemperature float32
	ConsultMaxAttempts int

	ReplicateAPIToken string
	ReplicateModel    string
	ReplicateBaseURL  string
	RenderTimeout     time.Duration

	LandmarkAddr    string
	LandmarkTimeout time.Duration

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	ImageMaxWidth      int
	PersonaCatalogPath string
	PersonaFixed       string

	// Template is the parsed consultation instruction.
	Template *prompt.Template
}

// LoadDotEnv reads .env files when present. Missing files are ignored.
func LoadDotEnv() {
	_ = godotenv.Load(".env", ".env.local")
}

// LoadConfig loads configuration from environment variables and applies
// defaults. The Gemini key and the prompt template are checked here so a
// misconfigured process never starts serving.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 240)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS"),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,

		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ConsultTemperature: float32(getEnvFloat("CONSULT_TEMPERATURE", 0.2)),
		ConsultMaxAttempts: getEnvInt("CONSULT_MAX_ATTEMPTS", 2),

		ReplicateAPIToken: strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN")),
		ReplicateModel:    os.Getenv("REPLICATE_MODEL"),
		ReplicateBaseURL:  os.Getenv("REPLICATE_BASE_URL"),
		RenderTimeout:     time.Second * time.Duration(getEnvInt("RENDER_TIMEOUT_SECONDS", 180)),

		LandmarkAddr:    getEnv("LANDMARK_ADDR", "unix:///tmp/facemesh.sock"),
		LandmarkTimeout: time.Second * time.Duration(getEnvInt("LANDMARK_TIMEOUT_SECONDS", 10)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)),

		ImageMaxWidth:      getEnvInt("IMAGE_MAX_WIDTH", 1024),
		PersonaCatalogPath: os.Getenv("PERSONA_CATALOG_PATH"),
		PersonaFixed:       os.Getenv("PERSONA_FIXED"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, domain.NewError(domain.KindAuth, "GEMINI_API_KEY is required", nil)
	}
	if cfg.ConsultTemperature < 0 || cfg.ConsultTemperature > 1 {
		return nil, domain.NewError(domain.KindConfig, fmt.Sprintf("CONSULT_TEMPERATURE must be within [0, 1], got %v", cfg.ConsultTemperature), nil)
	}

	raw, err := loadTemplateSource()
	if err != nil {
		return nil, err
	}
	tpl, err := prompt.Parse(raw)
	if err != nil {
		return nil, err
	}
	cfg.Template = tpl

	return cfg, nil
}

// loadTemplateSource prefers SYSTEM_PROMPT and falls back to the file named
// by SYSTEM_PROMPT_FILE.
func loadTemplateSource() (string, error) {
	if raw := os.Getenv("SYSTEM_PROMPT"); strings.TrimSpace(raw) != "" {
		return raw, nil
	}
	path := strings.TrimSpace(os.Getenv("SYSTEM_PROMPT_FILE"))
	if path == "" {
		return "", domain.NewError(domain.KindTemplate, "SYSTEM_PROMPT or SYSTEM_PROMPT_FILE is required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewError(domain.KindConfig, "read SYSTEM_PROMPT_FILE", err)
	}
	return string(data), nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
