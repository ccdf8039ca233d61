package tui

import (
	"context"

	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/progression"
	"github.com/Veraticus/schoolctl/internal/tui/themes"
)

// Session is everything the console needs once a user is logged in.
type Session struct {
	Registry *console.Registry
	Wizard   *progression.Wizard
}

// Connector logs in and builds a session.
type Connector func(ctx context.Context, username, password string) (Session, error)

// Authenticator is the login session the console reacts to.
type Authenticator interface {
	OnUnauthorized(fn func())
	Logout(ctx context.Context) error
}

// Config holds TUI configuration.
type Config struct {
	Theme     themes.Theme
	Auth      Authenticator
	Session   *Session
	Connect   Connector
	ExportDir string
	RecordDir string
	Width     int
	Height    int
	Record    bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:     themes.Default,
		ExportDir: ".",
		Width:     100,
		Height:    30,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithSession starts the console logged in.
func WithSession(s Session) Option {
	return func(c *Config) {
		c.Session = &s
	}
}

// WithConnector sets how the login form opens a session.
func WithConnector(connect Connector) Option {
	return func(c *Config) {
		c.Connect = connect
	}
}

// WithAuth lets the console log out and notice rejected tokens.
func WithAuth(a Authenticator) Option {
	return func(c *Config) {
		c.Auth = a
	}
}

// WithExportDir sets where exports are written.
func WithExportDir(dir string) Option {
	return func(c *Config) {
		c.ExportDir = dir
	}
}

// WithRecording writes every frame to dir for debugging. An empty dir
// records to a fresh temp directory.
func WithRecording(dir string) Option {
	return func(c *Config) {
		c.Record = true
		c.RecordDir = dir
	}
}
