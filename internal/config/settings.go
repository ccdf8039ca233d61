// Package config loads and validates the console's settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the fully resolved configuration.
type Settings struct {
	API      APISettings      `mapstructure:"api"`
	Database DatabaseSettings `mapstructure:"database"`
	Logging  LoggingSettings  `mapstructure:"logging"`
	UI       UISettings       `mapstructure:"ui"`
	Sandbox  SandboxSettings  `mapstructure:"sandbox"`
}

// APISettings describes the REST backend.
type APISettings struct {
	BaseURL  string `mapstructure:"base_url" validate:"required,url"`
	TokenURL string `mapstructure:"token_url" validate:"omitempty,url"`
	ClientID string `mapstructure:"client_id"`
	// CAFile is an extra PEM bundle to trust, such as the sandbox certificate.
	CAFile  string        `mapstructure:"ca_file"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// PageBase is the page index the server treats as first (0 or 1).
	PageBase int `mapstructure:"page_base" validate:"oneof=0 1"`
}

// DatabaseSettings locates the local SQLite cache.
type DatabaseSettings struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoggingSettings controls slog output.
type LoggingSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	File   string `mapstructure:"file"`
}

// UISettings tunes the collection views.
type UISettings struct {
	Theme           string        `mapstructure:"theme" validate:"oneof=default catppuccin-mocha"`
	PageSize        int           `mapstructure:"page_size" validate:"oneof=10 25 50 100"`
	SearchDebounce  time.Duration `mapstructure:"search_debounce" validate:"gt=0"`
	NotificationTTL time.Duration `mapstructure:"notification_ttl" validate:"gt=0"`
}

// SandboxSettings configures the bundled fake backend.
type SandboxSettings struct {
	Addr    string `mapstructure:"addr" validate:"required"`
	Secret  string `mapstructure:"secret" validate:"required,min=8"`
	CertDir string `mapstructure:"cert_dir"`
	TLS     bool   `mapstructure:"tls"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://127.0.0.1:8000")
	v.SetDefault("api.token_url", "")
	v.SetDefault("api.client_id", "")
	v.SetDefault("api.ca_file", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.page_base", 1)
	v.SetDefault("database.path", "$HOME/.local/share/schoolctl/schoolctl.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "$HOME/.local/state/schoolctl/console.log")
	v.SetDefault("ui.theme", "default")
	v.SetDefault("ui.page_size", 25)
	v.SetDefault("ui.search_debounce", 300*time.Millisecond)
	v.SetDefault("ui.notification_ttl", 6*time.Second)
	v.SetDefault("sandbox.addr", "127.0.0.1:8000")
	v.SetDefault("sandbox.secret", "sandbox-signing-secret")
	v.SetDefault("sandbox.tls", false)
	v.SetDefault("sandbox.cert_dir", "$HOME/.local/share/schoolctl/certs")
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	s.Database.Path = ExpandPath(s.Database.Path)
	s.Logging.File = ExpandPath(s.Logging.File)
	s.API.CAFile = ExpandPath(s.API.CAFile)
	s.Sandbox.CertDir = ExpandPath(s.Sandbox.CertDir)
	if s.API.TokenURL == "" {
		s.API.TokenURL = strings.TrimRight(s.API.BaseURL, "/") + "/auth/token"
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks s against its struct tags and reports every failing field.
func Validate(s *Settings) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Settings."), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, ", "))
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}
