package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by RESEARCH_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("RESEARCH_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the process env still applies.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// LogLevel returns the log level (debug, info, warn, error).
func LogLevel() string {
	return stringEnv("LOG_LEVEL", "info")
}

// LLMProvider returns the configured model provider.
// Valid values: gemini, openai, anthropic, cerebras, mock
func LLMProvider() string {
	return strings.ToLower(stringEnv("LLM_PROVIDER", "gemini"))
}

// LLMModel overrides the provider's default model when set.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

func GeminiAPIKey() string {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMAPIKey returns the API key for the configured model provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "openai":
		return OpenAIAPIKey()
	case "anthropic":
		return AnthropicAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return GeminiAPIKey()
	}
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, gemini, mock, none
func EmbeddingProvider() string {
	return strings.ToLower(stringEnv("EMBEDDING_PROVIDER", "none"))
}

func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "openai":
		return OpenAIAPIKey()
	case "gemini":
		return GeminiAPIKey()
	}
	return ""
}

func PerplexityAPIKey() string {
	return os.Getenv("PERPLEXITY_API_KEY")
}

func TavilyAPIKey() string {
	return os.Getenv("TAVILY_API_KEY")
}

// BroadProvider is perplexity or duckduckgo.
func BroadProvider() string {
	return strings.ToLower(stringEnv("BROAD_PROVIDER", "perplexity"))
}

// VerificationProvider is tavily or duckduckgo.
func VerificationProvider() string {
	return strings.ToLower(stringEnv("VERIFICATION_PROVIDER", "tavily"))
}

// AuthoritativeProvider is tavily or duckduckgo.
func AuthoritativeProvider() string {
	return strings.ToLower(stringEnv("AUTHORITATIVE_PROVIDER", "tavily"))
}

// NewsProvider is newsfeed or none.
func NewsProvider() string {
	return strings.ToLower(stringEnv("NEWS_PROVIDER", "newsfeed"))
}

// SourceRPS is the per-provider request rate.
func SourceRPS() float64 {
	return floatEnv("SOURCE_RPS", 5)
}

func SourceBurst() int {
	return intEnv("SOURCE_BURST", 5)
}

func SourceTimeout() time.Duration {
	return durationEnv("SOURCE_TIMEOUT", 30*time.Second)
}

// SourceCacheTTL of zero disables the query cache.
func SourceCacheTTL() time.Duration {
	return durationEnv("SOURCE_CACHE_TTL", 10*time.Minute)
}

func HunterConcurrency() int {
	return intEnv("HUNTER_CONCURRENCY", 9)
}

// ReportStore is memory, postgres or sqlite.
func ReportStore() string {
	return strings.ToLower(stringEnv("REPORT_STORE", "memory"))
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func SQLitePath() string {
	return stringEnv("SQLITE_PATH", "research.db")
}

// ThreadTTL is how long an idle thread is kept before the reaper drops it.
func ThreadTTL() time.Duration {
	return durationEnv("THREAD_TTL", 2*time.Hour)
}

// RateLimitRPS returns requests per second limit.
func RateLimitRPS() float64 {
	return floatEnv("RATE_LIMIT_RPS", 10)
}

// RateLimitBurst returns the burst size for rate limiting.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// APIToken is the bearer token required on /v1 routes. Empty disables auth.
func APIToken() string {
	return os.Getenv("API_TOKEN")
}

// ReportChunkSize splits streamed report text into chunks of at most
// this many bytes. Zero sends the report as one event.
func ReportChunkSize() int {
	return intEnv("REPORT_CHUNK_SIZE", 0)
}

// ResearchConfigPath points at a YAML research template. Empty uses the
// embedded default.
func ResearchConfigPath() string {
	return os.Getenv("RESEARCH_CONFIG")
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
