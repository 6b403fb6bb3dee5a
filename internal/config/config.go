package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Output controls how commands render results.
type Output struct {
	Format string `toml:"format"` // table or json
	Style  string `toml:"style"`  // rounded, light, plain or auto
}

// Resources controls how the content command rewrites embedded resources.
type Resources struct {
	// Prefix is prepended to every generated destination.
	Prefix string `toml:"prefix"`

	// ExtractDir, when set, receives a copy of every rewritten resource.
	ExtractDir string `toml:"extract_dir"`
}

// Config encapsulates all configuration values for epubinfo.
type Config struct {
	LogLevel  string    `toml:"log_level"`
	Output    Output    `toml:"output"`
	Resources Resources `toml:"resources"`
}

const (
	defaultLogLevel     = "info"
	defaultOutputFormat = "table"
	defaultOutputStyle  = "auto"
	defaultPrefix       = "urn:uuid:"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		LogLevel: defaultLogLevel,
		Output: Output{
			Format: defaultOutputFormat,
			Style:  defaultOutputStyle,
		},
		Resources: Resources{
			Prefix: defaultPrefix,
		},
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/epubinfo/config.toml")
}

// Load parses and validates the configuration at path, or at the default
// location when path is empty. A missing file yields the defaults. The
// resolved path and whether it existed are returned alongside.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", false, err
		}
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	c.Output.Style = strings.ToLower(strings.TrimSpace(c.Output.Style))
	if c.Output.Style == "" {
		c.Output.Style = defaultOutputStyle
	}
	if strings.TrimSpace(c.Resources.ExtractDir) != "" {
		dir, err := expandPath(c.Resources.ExtractDir)
		if err != nil {
			return fmt.Errorf("resources.extract_dir: %w", err)
		}
		c.Resources.ExtractDir = dir
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unsupported value %q", c.LogLevel)
	}
	switch c.Output.Format {
	case "table", "json":
	default:
		return fmt.Errorf("output.format: unsupported value %q", c.Output.Format)
	}
	switch c.Output.Style {
	case "auto", "rounded", "light", "plain":
	default:
		return fmt.Errorf("output.style: unsupported value %q", c.Output.Style)
	}
	if strings.ContainsAny(c.Resources.Prefix, " \t\r\n\"'<>") {
		return errors.New("resources.prefix must not contain whitespace, quotes or angle brackets")
	}
	return nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
