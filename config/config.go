package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`

	// Application paths
	LogDir            string `json:"log_dir"`
	DownloadDir       string `json:"download_dir"`
	TranscriptionsDir string `json:"transcriptions_dir"`

	// Middleware settings
	Middleware MiddlewareConfig `json:"middleware"`

	// CORS Configuration
	CORS CORSConfig `json:"cors"`

	// Rate Limiting
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Database settings
	Database DatabaseConfig `json:"database"`

	// Pipeline settings
	Pipeline PipelineConfig `json:"pipeline"`

	// Whisper settings
	Whisper WhisperConfig `json:"whisper"`

	// Ollama settings
	Ollama OllamaConfig `json:"ollama"`

	// Prompt overrides loaded from an optional YAML file
	Prompts PromptsConfig `json:"prompts"`

	// Application version
	Version string `json:"version"`

	// Shutdown timeout
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type MiddlewareConfig struct {
	EnableRecover   bool `json:"enable_recover"`
	EnableRequestID bool `json:"enable_request_id"`
	EnableLogger    bool `json:"enable_logger"`
	EnableCORS      bool `json:"enable_cors"`
	EnableRateLimit bool `json:"enable_rate_limit"`
	EnableCompress  bool `json:"enable_compress"`
	EnableETag      bool `json:"enable_etag"`
}

type DatabaseConfig struct {
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

type PipelineConfig struct {
	// ProcessTimeout bounds one full run: download, transcription,
	// summarization and categorization.
	ProcessTimeout time.Duration `json:"process_timeout"`

	// FetchesPerMinute paces outbound yt-dlp calls.
	FetchesPerMinute int `json:"fetches_per_minute"`
	FetchBurst       int `json:"fetch_burst"`

	// MaxConcurrent caps how many pipelines run at once. Submissions
	// beyond the cap stay queued until a slot frees.
	MaxConcurrent int `json:"max_concurrent"`
}

type WhisperConfig struct {
	Binary  string `json:"binary"`
	Model   string `json:"model"`
	Retries int    `json:"retries"`
}

type OllamaConfig struct {
	// BaseURL must carry the /v1 prefix for the OpenAI-compatible API.
	BaseURL       string        `json:"base_url"`
	Model         string        `json:"model"`
	CategoryModel string        `json:"category_model"`
	Timeout       time.Duration `json:"timeout"`
	Temperature   float32       `json:"temperature"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
}

// PromptsConfig lets operators tune the generation prompts and the suggested
// category list without rebuilding. Empty fields fall back to the compiled-in
// defaults.
type PromptsConfig struct {
	SummarySystem  string   `yaml:"summary_system"`
	CategorySystem string   `yaml:"category_system"`
	Categories     []string `yaml:"categories"`
}

func defaultDevMiddleware() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableCORS:      true,
		EnableRateLimit: false,
		EnableCompress:  false,
		EnableETag:      false,
	}
}

func defaultProdMiddleware() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableCORS:      true,
		EnableRateLimit: true,
		EnableCompress:  true,
		EnableETag:      true,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "5000"),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", false),

		LogDir:            getEnv("LOG_DIR", filepath.Join(dataDir, "logs")),
		DownloadDir:       getEnv("DOWNLOAD_DIR", filepath.Join(dataDir, "downloads")),
		TranscriptionsDir: getEnv("TRANSCRIPTIONS_DIR", filepath.Join(dataDir, "transcriptions")),

		Version: getEnv("VERSION", "1.0.0"),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		CORS: CORSConfig{
			Enabled: getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins: getEnvAsStringSlice(
				"CORS_ALLOWED_ORIGINS",
				[]string{"http://localhost:5173", "http://localhost:3000"},
			),
			AllowedMethods: getEnvAsStringSlice(
				"CORS_ALLOWED_METHODS",
				[]string{"GET", "POST", "DELETE", "OPTIONS"},
			),
			AllowedHeaders:   getEnvAsStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 120),
		},

		Database: DatabaseConfig{
			Path:               getEnv("DB_PATH", filepath.Join(dataDir, "tubescribe.db")),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		Pipeline: PipelineConfig{
			ProcessTimeout:   getEnvAsDuration("PROCESS_TIMEOUT", 30*time.Minute),
			FetchesPerMinute: getEnvAsInt("FETCHES_PER_MINUTE", 10),
			FetchBurst:       getEnvAsInt("FETCH_BURST", 3),
			MaxConcurrent:    getEnvAsInt("MAX_CONCURRENT_PIPELINES", 4),
		},

		Whisper: WhisperConfig{
			Binary:  getEnv("WHISPER_BIN", "whisper"),
			Model:   getEnv("WHISPER_MODEL", "base"),
			Retries: getEnvAsInt("WHISPER_RETRIES", 3),
		},

		Ollama: OllamaConfig{
			BaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
			Model:         getEnv("OLLAMA_MODEL", "llama3.2:1b"),
			CategoryModel: getEnv("OLLAMA_CATEGORY_MODEL", "llama3.2:1b"),
			Timeout:       getEnvAsDuration("OLLAMA_TIMEOUT", 60*time.Second),
			Temperature:   float32(getEnvAsFloat("OLLAMA_TEMPERATURE", 0.7)),
		},

		Middleware: defaultDevMiddleware(),
	}

	if os.Getenv("ENV") == "production" {
		cfg.Middleware = defaultProdMiddleware()
	}

	if promptsFile := getEnv("PROMPTS_FILE", ""); promptsFile != "" {
		if err := loadPrompts(promptsFile, &cfg.Prompts); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPrompts(path string, prompts *PromptsConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read prompts file %s", path)
	}
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return errors.Wrapf(err, "failed to parse prompts file %s", path)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}
	if err := validateTimeouts(c); err != nil {
		return err
	}
	if err := validateServices(c); err != nil {
		return err
	}
	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.DownloadDir, "download directory"},
		{c.TranscriptionsDir, "transcriptions directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.Pipeline.ProcessTimeout <= 0 {
		return fmt.Errorf("process timeout must be positive")
	}
	return nil
}

func validateServices(c *Config) error {
	if c.Whisper.Retries <= 0 {
		return fmt.Errorf("whisper retries must be positive")
	}
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base URL is required")
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent pipelines must be positive")
	}
	if c.Pipeline.FetchesPerMinute <= 0 {
		return fmt.Errorf("fetches per minute must be positive")
	}
	if c.Pipeline.FetchBurst <= 0 {
		return fmt.Errorf("fetch burst must be positive")
	}
	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}
