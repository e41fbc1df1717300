package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/khantimmy27/portfolio/internal/feed"
	"github.com/khantimmy27/portfolio/internal/github"
	"github.com/khantimmy27/portfolio/internal/session"
	"github.com/khantimmy27/portfolio/internal/theme"
)

// Config holds all configuration for the site.
type Config struct {
	Server   ServerConfig
	GitHub   GitHubConfig
	Feed     FeedConfig
	Content  ContentConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	Metrics         bool
}

// GitHubConfig holds the repository API settings.
type GitHubConfig struct {
	APIURL    string
	Username  string // overrides the resume's github_user when set
	UserAgent string
}

// FeedConfig holds repository feed settings.
type FeedConfig struct {
	MaxItems int
	Timeout  time.Duration
	ViewTTL  time.Duration
	MaxViews int
}

// ContentConfig holds resume and theme settings.
type ContentConfig struct {
	File      string // empty means the embedded resume
	ResumePDF string
	Theme     string
	Watch     bool
}

// Load reads configuration from the environment. A .env file, if present,
// has already been applied by godotenv's autoload.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", ""),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getEnvAsList("CORS_ORIGINS"),
			Metrics:         getEnvAsBool("METRICS_ENABLED", true),
		},
		GitHub: GitHubConfig{
			APIURL:    getEnv("GITHUB_API_URL", github.DefaultBaseURL),
			Username:  getEnv("GITHUB_USERNAME", ""),
			UserAgent: getEnv("GITHUB_USER_AGENT", "portfolio-site"),
		},
		Feed: FeedConfig{
			MaxItems: getEnvAsInt("FEED_MAX_ITEMS", feed.DefaultMaxItems),
			Timeout:  getEnvAsDuration("FEED_TIMEOUT", feed.DefaultTimeout),
			ViewTTL:  getEnvAsDuration("VIEW_TTL", session.DefaultTTL),
			MaxViews: getEnvAsInt("MAX_VIEWS", session.DefaultMaxViews),
		},
		Content: ContentConfig{
			File:      getEnv("CONTENT_FILE", ""),
			ResumePDF: getEnv("RESUME_PDF", ""),
			Theme:     getEnv("THEME", ""),
			Watch:     getEnvAsBool("CONTENT_WATCH", true),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Server.Port))
	}
	if c.Feed.MaxItems < 1 {
		errs = append(errs, fmt.Errorf("FEED_MAX_ITEMS must be at least 1, got %d", c.Feed.MaxItems))
	}
	if c.Feed.Timeout <= 0 {
		errs = append(errs, errors.New("FEED_TIMEOUT must be positive"))
	}
	if c.Feed.ViewTTL <= 0 {
		errs = append(errs, errors.New("VIEW_TTL must be positive"))
	}
	if c.Feed.MaxViews < 1 {
		errs = append(errs, fmt.Errorf("MAX_VIEWS must be at least 1, got %d", c.Feed.MaxViews))
	}
	if c.Content.Theme != "" {
		if _, err := theme.Parse(c.Content.Theme); err != nil {
			errs = append(errs, fmt.Errorf("THEME: %w", err))
		}
	}
	if !strings.HasPrefix(c.GitHub.APIURL, "http://") && !strings.HasPrefix(c.GitHub.APIURL, "https://") {
		errs = append(errs, fmt.Errorf("GITHUB_API_URL must be an http(s) URL, got %q", c.GitHub.APIURL))
	}
	return errors.Join(errs...)
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("10s") or bare seconds ("10").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
