package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type Config struct {
	Port        string
	Environment string

	// Worker
	PollIntervalSec int
	CredentialsDir  string
	DatasetPath     string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Knowledge base (optional)
	DatabaseURL string

	// Seen store (optional, in-memory when unset)
	RedisURL string

	// Dashboard
	EnvFilePath string
	WebDir      string

	// CORS
	AllowedOrigins []string

	mu sync.Mutex
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Worker
		PollIntervalSec: getEnvInt("POLL_INTERVAL_SEC", 10),
		CredentialsDir:  getEnv("CREDENTIALS_DIR", "."),
		DatasetPath:     getEnv("DATASET_PATH", "mtcm_intellipod.json"),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 45),

		// Knowledge base
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Seen store
		RedisURL: getEnv("REDIS_URL", ""),

		// Dashboard
		EnvFilePath: getEnv("ENV_FILE", ".env"),
		WebDir:      getEnv("WEB_DIR", "./web"),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}, nil
}

// UpdateRuntime applies a dashboard config change and persists it to the env
// file so the next start picks it up. Zero values leave fields untouched.
func (c *Config) UpdateRuntime(pollIntervalSec int, openAIKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pollIntervalSec > 0 {
		c.PollIntervalSec = pollIntervalSec
	}
	if openAIKey != "" {
		c.OpenAIAPIKey = openAIKey
	}

	return writeEnvFile(c.EnvFilePath, map[string]string{
		"POLL_INTERVAL_SEC": strconv.Itoa(c.PollIntervalSec),
		"OPENAI_API_KEY":    c.OpenAIAPIKey,
	})
}

// writeEnvFile merges updates into a KEY=VALUE env file, keeping unrelated
// lines as they are.
func writeEnvFile(path string, updates map[string]string) error {
	existing := make(map[string]string)
	var order []string

	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			key, value, found := strings.Cut(trimmed, "=")
			if !found {
				continue
			}
			key = strings.TrimSpace(key)
			if _, seen := existing[key]; !seen {
				order = append(order, key)
			}
			existing[key] = value
		}
	}

	var added []string
	for key, value := range updates {
		if _, seen := existing[key]; !seen {
			added = append(added, key)
		}
		existing[key] = value
	}
	sort.Strings(added)
	order = append(order, added...)

	var buf strings.Builder
	for _, key := range order {
		buf.WriteString(fmt.Sprintf("%s=%s\n", key, existing[key]))
	}

	return os.WriteFile(path, []byte(buf.String()), 0o600)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
