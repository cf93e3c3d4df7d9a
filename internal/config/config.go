// Package config provides configuration loading and validation for the
// contact relay server. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the relay server.
// It is constructed once at startup and treated as immutable afterwards.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Telegram dispatch
	BotToken        string `koanf:"bot_token"`
	ChatID          string `koanf:"chat_id"`
	MessageThreadID *int   `koanf:"message_thread_id"` // optional forum thread

	// reCAPTCHA verification
	RecaptchaSecret    string  `koanf:"recaptcha_secret_key"`
	RecaptchaThreshold float64 `koanf:"recaptcha_threshold"`

	// Gatekeeper
	AllowedDomains         []string `koanf:"allowed_domains"`
	MinSubmitSeconds       int      `koanf:"min_form_submit_time"` // 0 disables the timing check
	RateLimitRequests      int      `koanf:"rate_limit_requests"`
	RateLimitWindowMinutes int      `koanf:"rate_limit_window_minutes"`

	// Audit log
	LogFile      string `koanf:"log_file"` // empty disables audit logging
	LogMaxSizeMB int    `koanf:"log_max_size_mb"`

	// Optional Redis backend for the rate-limit store
	RedisURL string `koanf:"redis_url"`
}

// Configuration validation errors.
var (
	ErrMissingBotToken        = errors.New("BOT_TOKEN is required")
	ErrMissingChatID          = errors.New("CHAT_ID is required")
	ErrMissingRecaptchaSecret = errors.New("RECAPTCHA_SECRET_KEY is required")
	ErrInvalidThreshold       = errors.New("RECAPTCHA_THRESHOLD must be between 0 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultRecaptchaThreshold     = 0.5
	DefaultMinSubmitSeconds       = 5
	DefaultLogFile                = "form_submissions.log"
	DefaultLogMaxSizeMB           = 1
	DefaultRateLimitRequests      = 20
	DefaultRateLimitWindowMinutes = 15
)

// defaultAllowedDomains is the hard-coded fallback origin allow-list used
// when ALLOWED_DOMAINS is not configured.
var defaultAllowedDomains = []string{"av3d.by", "www.av3d.by", "artbyavp.xyz", "www.artbyavp.xyz"}

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	threshold, thresholdErr := getEnvFloatOrDefault("RECAPTCHA_THRESHOLD", k.Float64("recaptcha_threshold"), DefaultRecaptchaThreshold)
	if thresholdErr != nil {
		loadErrs = append(loadErrs, thresholdErr)
	}

	minSubmit, minSubmitErr := getEnvIntOrDefault("MIN_FORM_SUBMIT_TIME", k.Int("min_form_submit_time"), DefaultMinSubmitSeconds)
	if minSubmitErr != nil {
		loadErrs = append(loadErrs, minSubmitErr)
	}

	logMaxSize, logMaxSizeErr := getEnvIntOrDefault("LOG_MAX_SIZE_MB", k.Int("log_max_size_mb"), DefaultLogMaxSizeMB)
	if logMaxSizeErr != nil {
		loadErrs = append(loadErrs, logMaxSizeErr)
	}

	rateRequests, rateRequestsErr := getEnvIntOrDefault("RATE_LIMIT_REQUESTS", k.Int("rate_limit_requests"), DefaultRateLimitRequests)
	if rateRequestsErr != nil {
		loadErrs = append(loadErrs, rateRequestsErr)
	}

	rateWindow, rateWindowErr := getEnvIntOrDefault("RATE_LIMIT_WINDOW_MINUTES", k.Int("rate_limit_window_minutes"), DefaultRateLimitWindowMinutes)
	if rateWindowErr != nil {
		loadErrs = append(loadErrs, rateWindowErr)
	}

	threadID, threadIDErr := getEnvOptionalInt("MESSAGE_THREAD_ID", k, "message_thread_id")
	if threadIDErr != nil {
		loadErrs = append(loadErrs, threadIDErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		BotToken:               getEnvOrKoanf("BOT_TOKEN", k, "bot_token"),
		ChatID:                 getEnvOrKoanf("CHAT_ID", k, "chat_id"),
		MessageThreadID:        threadID,
		RecaptchaSecret:        getEnvOrKoanf("RECAPTCHA_SECRET_KEY", k, "recaptcha_secret_key"),
		RecaptchaThreshold:     threshold,
		AllowedDomains:         getAllowedDomains(k),
		MinSubmitSeconds:       minSubmit,
		RateLimitRequests:      rateRequests,
		RateLimitWindowMinutes: rateWindow,
		LogFile:                getEnvOrDefault("LOG_FILE", k.String("log_file"), DefaultLogFile),
		LogMaxSizeMB:           logMaxSize,
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getAllowedDomains parses the comma-separated ALLOWED_DOMAINS env var,
// falling back to the file config, then the hard-coded default list.
func getAllowedDomains(k *koanf.Koanf) []string {
	if val := os.Getenv("ALLOWED_DOMAINS"); val != "" {
		return splitDomains(val)
	}
	if fileVal := k.Strings("allowed_domains"); len(fileVal) > 0 {
		return fileVal
	}
	out := make([]string, len(defaultAllowedDomains))
	copy(out, defaultAllowedDomains)
	return out
}

// splitDomains splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitDomains(s string) []string {
	var out []string
	for _, d := range strings.Split(s, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvOptionalInt returns a pointer to the parsed integer if the env var or
// file key is set, nil otherwise. An empty env value counts as unset, matching
// the original deployments.
func getEnvOptionalInt(envKey string, k *koanf.Koanf, koanfKey string) (*int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return &i, nil
	}
	if k.Exists(koanfKey) {
		i := k.Int(koanfKey)
		return &i, nil
	}
	return nil, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EffectiveAllowedDomains returns the origin allow-list with localhost
// appended in non-production environments.
func (c *Config) EffectiveAllowedDomains() []string {
	domains := make([]string, len(c.AllowedDomains))
	copy(domains, c.AllowedDomains)
	if !c.IsProduction() {
		domains = append(domains, "localhost", "127.0.0.1")
	}
	return domains
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, ErrMissingBotToken)
	}
	if c.ChatID == "" {
		errs = append(errs, ErrMissingChatID)
	}
	if c.RecaptchaSecret == "" {
		errs = append(errs, ErrMissingRecaptchaSecret)
	}
	if c.RecaptchaThreshold < 0 || c.RecaptchaThreshold > 1 {
		errs = append(errs, ErrInvalidThreshold)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	threadID := "<not set>"
	if c.MessageThreadID != nil {
		threadID = strconv.Itoa(*c.MessageThreadID)
	}
	return map[string]string{
		"port":                      fmt.Sprintf("%d", c.Port),
		"env":                       c.Env,
		"bot_token":                 maskSecret(c.BotToken),
		"chat_id":                   c.ChatID,
		"message_thread_id":         threadID,
		"recaptcha_secret_key":      maskSecret(c.RecaptchaSecret),
		"recaptcha_threshold":       fmt.Sprintf("%g", c.RecaptchaThreshold),
		"allowed_domains":           strings.Join(c.AllowedDomains, ","),
		"min_form_submit_time":      fmt.Sprintf("%d", c.MinSubmitSeconds),
		"rate_limit_requests":       fmt.Sprintf("%d", c.RateLimitRequests),
		"rate_limit_window_minutes": fmt.Sprintf("%d", c.RateLimitWindowMinutes),
		"log_file":                  c.LogFile,
		"log_max_size_mb":           fmt.Sprintf("%d", c.LogMaxSizeMB),
		"redis_url":                 maskRedisURL(c.RedisURL),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskRedisURL masks the password in a Redis URL, if any.
func maskRedisURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
