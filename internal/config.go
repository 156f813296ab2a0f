package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/linksync"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app" toml:"app"`
	Storage StorageConfig     `yaml:"storage" toml:"storage"`
	Layout  LayoutConfig      `yaml:"layout" toml:"layout"`
	Links   LinksConfig       `yaml:"links" toml:"links"`
	Mirror  MirrorConfig      `yaml:"mirror" toml:"mirror"`
	Auth    AuthConfig        `yaml:"auth" toml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Storage, &c.Layout, &c.Links, &c.Mirror, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the SQLite key-value store location.
type StorageConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LayoutConfig holds node placement parameters.
type LayoutConfig struct {
	Spacing     float64 `yaml:"spacing" toml:"spacing"`
	MaxX        float64 `yaml:"max_x" toml:"max_x"`
	MaxAttempts int     `yaml:"max_attempts" toml:"max_attempts"`
	Extent      float64 `yaml:"extent" toml:"extent"`
	SnapToGrid  bool    `yaml:"snap_to_grid" toml:"snap_to_grid"`
	GridSize    float64 `yaml:"grid_size" toml:"grid_size"`
}

// Validate validates the layout configuration.
func (c *LayoutConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Spacing, validation.Required, validation.Min(1.0)),
		validation.Field(&c.MaxX, validation.Min(0.0)),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.Extent, validation.Required, validation.Min(1.0)),
		validation.Field(&c.GridSize, validation.When(c.SnapToGrid, validation.Required, validation.Min(1.0))),
	)
}

// Placer builds a placer from the configured parameters.
func (c *LayoutConfig) Placer() *layout.Placer {
	p := layout.NewPlacer(nil)
	p.Spacing = c.Spacing
	p.MaxX = c.MaxX
	p.MaxAttempts = c.MaxAttempts
	p.Extent = c.Extent
	return p
}

// SnapGrid returns the grid size used for dragged nodes, zero when off.
func (c *LayoutConfig) SnapGrid() float64 {
	if !c.SnapToGrid {
		return 0
	}
	return c.GridSize
}

// LinksConfig controls how link edits affect notes.
//
// RenameHeuristic selects how an unknown link is matched to an existing note:
//   - "prefix" (default): the longest note name that prefixes the link is renamed.
//   - "none": unknown links always create new notes.
//
// RewriteOnRename makes explicit renames rewrite [[old]] links in other notes.
type LinksConfig struct {
	RenameHeuristic string `yaml:"rename_heuristic" toml:"rename_heuristic"`
	RewriteOnRename bool   `yaml:"rewrite_on_rename" toml:"rewrite_on_rename"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	if c.RenameHeuristic == "" {
		c.RenameHeuristic = linksync.StrategyPrefix
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.RenameHeuristic, validation.In(linksync.StrategyPrefix, linksync.StrategyNone)),
	)
}

// MirrorConfig enables the on-disk Markdown mirror. An empty Path disables it.
type MirrorConfig struct {
	Path  string `yaml:"path" toml:"path"`
	Watch bool   `yaml:"watch" toml:"watch"`
}

// Enabled reports whether notes are mirrored to disk.
func (c *MirrorConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the mirror configuration.
func (c *MirrorConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("mirror: watch is enabled but path is empty")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Path: "./linkbook.db",
		},
		Layout: LayoutConfig{
			Spacing:     layout.DefaultSpacing,
			MaxX:        layout.DefaultMaxX,
			MaxAttempts: layout.DefaultMaxAttempts,
			Extent:      layout.DefaultExtent,
			SnapToGrid:  true,
			GridSize:    layout.DefaultGridSize,
		},
		Links: LinksConfig{
			RenameHeuristic: linksync.StrategyPrefix,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
