package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Fallback policies applied when the model path fails
const (
	FallbackSynthesize = "synthesize"
	FallbackReport     = "report"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	InferenceTimeout   time.Duration
	MaxRequestBodySize int64
	MaxRemoteImageSize int64

	// Model artifact; an empty ModelPath means the app's built-in default
	ModelPath         string
	ModelMetadataPath string
	ONNXRuntimeLib    string

	FallbackPolicy string
	// FallbackSeed seeds the fallback sampler; 0 picks a random seed
	FallbackSeed uint64

	AllowedOrigins    []string
	AllowedFetchHosts []string

	AzureStorageAccount string
	AzureStorageKey     string

	LogLevel string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob-backed fileUrl fetching is configured
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:                getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                getEnvOrDefault("PORT", "7860"),
		RequestTimeout:      parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:   parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		InferenceTimeout:    parseDurationOrDefault("INFERENCE_TIMEOUT", 10*time.Second),
		MaxRequestBodySize:  parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024),  // 10MB
		MaxRemoteImageSize:  parseIntOrDefault("MAX_REMOTE_IMAGE_SIZE", 10*1024*1024), // 10MB
		ModelPath:           strings.TrimSpace(os.Getenv("MODEL_PATH")),
		ModelMetadataPath:   strings.TrimSpace(os.Getenv("MODEL_METADATA_PATH")),
		ONNXRuntimeLib:      strings.TrimSpace(os.Getenv("ONNXRUNTIME_LIB")),
		FallbackPolicy:      strings.ToLower(getEnvOrDefault("FALLBACK_POLICY", FallbackSynthesize)),
		FallbackSeed:        uint64(parseIntOrDefault("FALLBACK_SEED", 0)),
		AllowedOrigins:      parseListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AllowedFetchHosts:   parseListOrDefault("ALLOWED_FETCH_HOSTS", nil),
		AzureStorageAccount: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureStorageKey:     strings.TrimSpace(os.Getenv("AZURE_STORAGE_KEY")),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.MaxRemoteImageSize <= 0 {
		return nil, fmt.Errorf("MAX_REMOTE_IMAGE_SIZE must be > 0 (got %d)", cfg.MaxRemoteImageSize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.InferenceTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, inference=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.InferenceTimeout)
	}
	switch cfg.FallbackPolicy {
	case FallbackSynthesize, FallbackReport:
	default:
		return nil, fmt.Errorf("invalid FALLBACK_POLICY: %q (want %q or %q)",
			cfg.FallbackPolicy, FallbackSynthesize, FallbackReport)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
