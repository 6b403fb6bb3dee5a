package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/simp-lee/epubkit/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if !strings.HasSuffix(resolved, filepath.Join(".config", "epubinfo", "config.toml")) {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if *cfg != config.Default() {
		t.Fatalf("got %+v, want defaults %+v", *cfg, config.Default())
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
log_level = " DEBUG "

[output]
format = "JSON"
style = "light"

[resources]
prefix = "blob:"
extract_dir = "~/assets"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q, exists = %v", resolved, exists)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Output.Format != "json" || cfg.Output.Style != "light" {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if cfg.Resources.Prefix != "blob:" {
		t.Fatalf("prefix = %q", cfg.Resources.Prefix)
	}
	if want := filepath.Join(home, "assets"); cfg.Resources.ExtractDir != want {
		t.Fatalf("extract dir = %q, want %q", cfg.Resources.ExtractDir, want)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"log level", `log_level = "loud"`, "log_level"},
		{"format", "[output]\nformat = \"xml\"", "output.format"},
		{"style", "[output]\nstyle = \"fancy\"", "output.style"},
		{"prefix", "[resources]\nprefix = \"a b\"", "resources.prefix"},
		{"unknown key", `colour = "red"`, "parse config"},
		{"syntax", `log_level = `, "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := config.Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultConfigRoundTrips(t *testing.T) {
	data, err := toml.Marshal(config.Default())
	if err != nil {
		t.Fatalf("marshal defaults: %v", err)
	}
	cfg, _, _, err := config.Load(writeConfig(t, string(data)))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if *cfg != config.Default() {
		t.Fatalf("got %+v, want %+v", *cfg, config.Default())
	}
}
