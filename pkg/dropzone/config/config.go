package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

// Option applies configuration to a ClientConfig instance.
type Option func(*ClientConfig) error

// ClientConfig represents the drop zone client configuration
type ClientConfig struct {
	// Hostname of the deployment; used for the token resource and the default endpoint
	Hostname string `yaml:"hostname" env:"DROPZONE_HOSTNAME"`
	// AppID of the registered application; used for the token resource
	AppID string `yaml:"app_id" env:"DROPZONE_APP_ID"`
	// UploadURL overrides the default https://<hostname>/api/upload
	UploadURL string `yaml:"upload_url" env:"DROPZONE_UPLOAD_URL"`

	AllowedExtensions []string `yaml:"allowed_extensions" env:"DROPZONE_ALLOWED_EXTENSIONS" env-separator:","`
	CaseSensitive     bool     `yaml:"case_sensitive" env:"DROPZONE_CASE_SENSITIVE"`

	// Timeout for a single upload request; 0 means no client timeout
	Timeout time.Duration `yaml:"timeout" env:"DROPZONE_TIMEOUT"`

	LogLevel  string `yaml:"log_level" env:"DROPZONE_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"DROPZONE_LOG_FORMAT"` // text, json
}

// Load constructs a ClientConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ClientConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ClientConfig {
	return ClientConfig{
		Hostname:          "localhost:8080",
		AllowedExtensions: append([]string(nil), dropzone.DefaultExtensions...),
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// WithEnv reads DROPZONE_* environment variables over the current values.
func WithEnv() Option {
	return func(c *ClientConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithFile reads a YAML, JSON, TOML or .env file, then the environment.
func WithFile(path string) Option {
	return func(c *ClientConfig) error {
		if path == "" {
			return nil
		}
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithHostname sets the deployment hostname.
func WithHostname(hostname string) Option {
	return func(c *ClientConfig) error {
		c.Hostname = hostname
		return nil
	}
}

// WithAppID sets the application id.
func WithAppID(appID string) Option {
	return func(c *ClientConfig) error {
		c.AppID = appID
		return nil
	}
}

// WithUploadURL overrides the upload endpoint.
func WithUploadURL(u string) Option {
	return func(c *ClientConfig) error {
		c.UploadURL = u
		return nil
	}
}

// WithAllowedExtensions replaces the extension allow-list.
func WithAllowedExtensions(caseSensitive bool, exts ...string) Option {
	return func(c *ClientConfig) error {
		c.AllowedExtensions = exts
		c.CaseSensitive = caseSensitive
		return nil
	}
}

// WithTimeout sets the upload request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ClientConfig) error {
		c.Timeout = d
		return nil
	}
}

// Validate checks the configuration.
func (c *ClientConfig) Validate() error {
	endpoint := c.Endpoint()
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid upload url %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid upload url %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid upload url %q: missing host", endpoint)
	}

	hasExt := false
	for _, ext := range c.AllowedExtensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) != "" {
			hasExt = true
			break
		}
	}
	if !hasExt {
		return errors.New("at least one allowed extension is required")
	}

	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s (use 'text' or 'json')", c.LogFormat)
	}

	return nil
}

// Resource returns the identifier the auth token is requested for.
func (c *ClientConfig) Resource() string {
	return fmt.Sprintf("api://%s/%s", c.Hostname, c.AppID)
}

// Endpoint returns the upload endpoint URL.
func (c *ClientConfig) Endpoint() string {
	if c.UploadURL != "" {
		return c.UploadURL
	}
	return fmt.Sprintf("https://%s/api/upload", c.Hostname)
}

// ExtensionPolicy builds the allow-list for dropped files.
func (c *ClientConfig) ExtensionPolicy() *dropzone.AllowList {
	return dropzone.NewAllowList(c.CaseSensitive, c.AllowedExtensions...)
}

// HTTPClient returns the client used for uploads.
func (c *ClientConfig) HTTPClient() *http.Client {
	return &http.Client{Timeout: c.Timeout}
}

// Logger builds a slog logger writing to stderr in the configured format.
func (c *ClientConfig) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
