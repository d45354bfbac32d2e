// Package config loads the tb configuration from layered JSONC files, the
// environment and command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/taskboard/internal/view"
)

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrStoreDirEmpty      = errors.New("store_dir cannot be empty")
	ErrDashboardEmpty     = errors.New("dashboard cannot be empty")
	ErrBackendUnknown     = errors.New("backend must be file or sqlite")
	ErrHighlightInvalid   = errors.New("highlight_seconds must be positive")
	ErrLogLevelUnknown    = errors.New("log_level must be debug, info, warn or error")
)

// Backends accepted by the backend key.
var Backends = []string{"file", "sqlite"}

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	StoreDir         string             `json:"store_dir"`
	Backend          string             `json:"backend"`
	Dashboard        string             `json:"dashboard"`
	Records          string             `json:"records"`
	Subject          string             `json:"subject,omitempty"`
	HighlightSeconds int                `json:"highlight_seconds"`
	LogLevel         string             `json:"log_level"`
	CustomColumns    []view.KnownColumn `json:"custom_columns,omitempty"`
	CustomPriorities []string           `json:"custom_priorities,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"`
	StoreDirAbs  string `json:"-"`
	RecordsAbs   string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
	Env     []string // TB_* variables that overrode a value
}

// Highlight returns the highlight duration.
func (c Config) Highlight() time.Duration {
	return time.Duration(c.HighlightSeconds) * time.Second
}

// Level returns the slog level for LogLevel.
func (c Config) Level() slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return slog.LevelWarn
	}

	return level
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		StoreDir:         ".taskboard",
		Backend:          "file",
		Dashboard:        "tasks",
		Records:          "records.json",
		HighlightSeconds: 5,
		LogLevel:         "warn",
	}
}

// FileName is the default project config file name.
const FileName = ".tb.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TB_"

// globalPath returns $XDG_CONFIG_HOME/tb/config.json if set, otherwise
// ~/.config/tb/config.json, or "" when neither can be determined.
func globalPath(environ map[string]string) string {
	if xdg := environ["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "tb", "config.json")
	}

	if home := environ["HOME"]; home != "" {
		return filepath.Join(home, ".config", "tb", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for [Load].
type LoadInput struct {
	WorkDirOverride   string // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath        string // -c/--config flag value
	StoreDirOverride  string
	BackendOverride   string
	DashboardOverride string
	RecordsOverride   string
	SubjectOverride   string
	Env               map[string]string
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/tb/config.json or $XDG_CONFIG_HOME/tb/config.json)
// 3. Project config file (.tb.json, if it exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. TB_* environment variables
// 6. CLI overrides.
//
// Paths in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		global, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, global)
		}
	}

	projectPath := filepath.Join(workDir, FileName)
	mustExist := false

	if input.ConfigPath != "" {
		projectPath = input.ConfigPath
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		mustExist = true
	}

	project, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = merge(cfg, project)
	}

	cfg, err = applyEnv(cfg, input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg = applyOverrides(cfg, input)

	err = Validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.StoreDirAbs = absolute(workDir, cfg.StoreDir)
	cfg.RecordsAbs = absolute(workDir, cfg.Records)

	return cfg, nil
}

func absolute(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// layer is one config file's content plus which keys it set explicitly,
// so an explicit "" or 0 can be told apart from an absent key.
type layer struct {
	cfg      Config
	explicit map[string]bool
}

func loadFile(path string, mustExist bool) (layer, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return layer{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return layer{}, false, nil
		}

		return layer{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	l, err := parse(data)
	if err != nil {
		return layer{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return l, true, nil
}

func parse(data []byte) (layer, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return layer{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return layer{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]json.RawMessage

	_ = json.Unmarshal(standardized, &raw)

	explicit := make(map[string]bool, len(raw))
	for key := range raw {
		explicit[key] = true
	}

	if explicit["store_dir"] && cfg.StoreDir == "" {
		return layer{}, ErrStoreDirEmpty
	}

	if explicit["dashboard"] && cfg.Dashboard == "" {
		return layer{}, ErrDashboardEmpty
	}

	if explicit["highlight_seconds"] && cfg.HighlightSeconds <= 0 {
		return layer{}, ErrHighlightInvalid
	}

	return layer{cfg: cfg, explicit: explicit}, nil
}

func merge(base Config, overlay layer) Config {
	o := overlay.cfg

	if o.StoreDir != "" {
		base.StoreDir = o.StoreDir
	}

	if o.Backend != "" {
		base.Backend = o.Backend
	}

	if o.Dashboard != "" {
		base.Dashboard = o.Dashboard
	}

	if o.Records != "" {
		base.Records = o.Records
	}

	if overlay.explicit["subject"] {
		base.Subject = o.Subject
	}

	if o.HighlightSeconds != 0 {
		base.HighlightSeconds = o.HighlightSeconds
	}

	if o.LogLevel != "" {
		base.LogLevel = o.LogLevel
	}

	if overlay.explicit["custom_columns"] {
		base.CustomColumns = o.CustomColumns
	}

	if overlay.explicit["custom_priorities"] {
		base.CustomPriorities = o.CustomPriorities
	}

	return base
}

type envOverrides struct {
	StoreDir         string   `env:"STORE_DIR"`
	Backend          string   `env:"BACKEND"`
	Dashboard        string   `env:"DASHBOARD"`
	Records          string   `env:"RECORDS"`
	Subject          string   `env:"SUBJECT"`
	HighlightSeconds int      `env:"HIGHLIGHT_SECONDS"`
	LogLevel         string   `env:"LOG_LEVEL"`
	CustomPriorities []string `env:"CUSTOM_PRIORITIES" envSeparator:","`
}

func applyEnv(cfg Config, environ map[string]string) (Config, error) {
	var o envOverrides

	err := env.ParseWithOptions(&o, env.Options{Environment: environ, Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %w", ErrConfigInvalid, err)
	}

	set := func(name string, apply func()) {
		if _, ok := environ[EnvPrefix+name]; ok {
			apply()

			cfg.Sources.Env = append(cfg.Sources.Env, EnvPrefix+name)
		}
	}

	set("STORE_DIR", func() { cfg.StoreDir = o.StoreDir })
	set("BACKEND", func() { cfg.Backend = o.Backend })
	set("DASHBOARD", func() { cfg.Dashboard = o.Dashboard })
	set("RECORDS", func() { cfg.Records = o.Records })
	set("SUBJECT", func() { cfg.Subject = o.Subject })
	set("HIGHLIGHT_SECONDS", func() { cfg.HighlightSeconds = o.HighlightSeconds })
	set("LOG_LEVEL", func() { cfg.LogLevel = o.LogLevel })
	set("CUSTOM_PRIORITIES", func() { cfg.CustomPriorities = o.CustomPriorities })

	return cfg, nil
}

func applyOverrides(cfg Config, input LoadInput) Config {
	if input.StoreDirOverride != "" {
		cfg.StoreDir = input.StoreDirOverride
	}

	if input.BackendOverride != "" {
		cfg.Backend = input.BackendOverride
	}

	if input.DashboardOverride != "" {
		cfg.Dashboard = input.DashboardOverride
	}

	if input.RecordsOverride != "" {
		cfg.Records = input.RecordsOverride
	}

	if input.SubjectOverride != "" {
		cfg.Subject = input.SubjectOverride
	}

	return cfg
}

// Validate checks a fully merged configuration.
func Validate(cfg Config) error {
	var errs []error

	if cfg.StoreDir == "" {
		errs = append(errs, ErrStoreDirEmpty)
	}

	if cfg.Dashboard == "" {
		errs = append(errs, ErrDashboardEmpty)
	}

	if !slices.Contains(Backends, cfg.Backend) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrBackendUnknown, cfg.Backend))
	}

	if cfg.HighlightSeconds <= 0 {
		errs = append(errs, ErrHighlightInvalid)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrLogLevelUnknown, cfg.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}

	return nil
}
