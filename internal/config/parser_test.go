package config

import (
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected Format
	}{
		{"yaml extension", "config.yaml", "", FormatYAML},
		{"yml extension", "config.yml", "", FormatYAML},
		{"toml extension", "config.toml", "", FormatTOML},
		{"json extension", "config.json", "", FormatJSON},
		{"uppercase extension", "CONFIG.YAML", "", FormatYAML},
		{"json content", "config", `{"app": {"name": "x"}}`, FormatJSON},
		{"yaml content", "config", "app:\n  name: x", FormatYAML},
		{"yaml document marker", "config", "---\napp:\n  name: x", FormatYAML},
		{"toml table", "config", "[app]\nname = \"x\"", FormatTOML},
		{"toml key", "config", `app.name = "x"`, FormatTOML},
		{"yaml value with equals", "config", "dev_url: http://localhost?a=b", FormatYAML},
		{"comments skipped", "config", "# settings\n\n[window]", FormatTOML},
		{"empty", "config", "", FormatUnknown},
		{"garbage", "config", "hello world", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFormat(tt.path, []byte(tt.content))
			if got != tt.expected {
				t.Errorf("detectFormat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "${TEST_VAR}", "test_value"},
		{"var with default", "${MISSING_VAR:-default_value}", "default_value"},
		{"existing var ignores default", "${TEST_VAR:-default_value}", "test_value"},
		{"empty var uses default", "${EMPTY_VAR:-default_value}", "default_value"},
		{"missing var without default", "${MISSING_VAR}", ""},
		{"no var", "plain text", "plain text"},
		{"mixed content", "prefix ${TEST_VAR} suffix", "prefix test_value suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(expandEnvVars([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	content := []byte(`
app:
  name: notes
  version: 1.4.0
window:
  width: 1280
  height: 800
  static_dir: /opt/notes/ui
update:
  owner: acme
  repo: notes
  check_on_start: true
`)

	cfg, err := parse(content, FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.App.Name != "notes" {
		t.Errorf("App.Name = %s, want notes", cfg.App.Name)
	}
	if cfg.App.Version != "1.4.0" {
		t.Errorf("App.Version = %s, want 1.4.0", cfg.App.Version)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 800 {
		t.Errorf("Window size = %dx%d, want 1280x800", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.StaticDir != "/opt/notes/ui" {
		t.Errorf("Window.StaticDir = %s, want /opt/notes/ui", cfg.Window.StaticDir)
	}
	if !cfg.Update.CheckOnStart {
		t.Error("Update.CheckOnStart should be true")
	}

	// Unset fields keep their defaults.
	if cfg.Window.MinWidth != 400 {
		t.Errorf("Window.MinWidth = %d, want default 400", cfg.Window.MinWidth)
	}
	if cfg.Window.Listen != "127.0.0.1:0" {
		t.Errorf("Window.Listen = %s, want default", cfg.Window.Listen)
	}
	if cfg.Update.BaseURL != "https://api.github.com" {
		t.Errorf("Update.BaseURL = %s, want default", cfg.Update.BaseURL)
	}
}

func TestParseTOML(t *testing.T) {
	content := []byte(`
[app]
name = "notes"

[window]
dev_url = "http://localhost:5173"
listen = "127.0.0.1:7777"

[update]
owner = "acme"
repo = "notes"
base_url = "https://github.example.com/api/v3"
`)

	cfg, err := parse(content, FormatTOML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.App.Name != "notes" {
		t.Errorf("App.Name = %s, want notes", cfg.App.Name)
	}
	if cfg.Window.DevURL != "http://localhost:5173" {
		t.Errorf("Window.DevURL = %s", cfg.Window.DevURL)
	}
	if cfg.Window.Listen != "127.0.0.1:7777" {
		t.Errorf("Window.Listen = %s", cfg.Window.Listen)
	}
	if cfg.Update.BaseURL != "https://github.example.com/api/v3" {
		t.Errorf("Update.BaseURL = %s", cfg.Update.BaseURL)
	}
	if cfg.Window.Width != 1024 {
		t.Errorf("Window.Width = %d, want default 1024", cfg.Window.Width)
	}
}

func TestParseJSON(t *testing.T) {
	content := []byte(`{
  "app": {"name": "notes"},
  "window": {"width": 640, "height": 480, "min_width": 320, "min_height": 240},
  "update": {"owner": "acme", "repo": "notes", "token": "abc"}
}`)

	cfg, err := parse(content, FormatJSON)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.Window.Width != 640 || cfg.Window.MinHeight != 240 {
		t.Errorf("Window = %+v", cfg.Window)
	}
	if cfg.Update.Token != "abc" {
		t.Errorf("Update.Token = %q, want abc", cfg.Update.Token)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  Format
	}{
		{"bad yaml", "app: [unclosed", FormatYAML},
		{"bad toml", "[app\nname = ", FormatTOML},
		{"bad json", `{"app": `, FormatJSON},
		{"unknown format", "app: x", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse([]byte(tt.content), tt.format); err == nil {
				t.Error("parse() should fail")
			}
		})
	}
}

func TestParseEnvVarExpansion(t *testing.T) {
	t.Setenv("NOTES_DEV_URL", "http://localhost:3000")

	content := []byte(`
window:
  dev_url: ${NOTES_DEV_URL}
update:
  owner: ${NOTES_OWNER:-acme}
  repo: notes
`)

	cfg, err := parse(content, FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.Window.DevURL != "http://localhost:3000" {
		t.Errorf("Window.DevURL = %s, want http://localhost:3000", cfg.Window.DevURL)
	}
	if cfg.Update.Owner != "acme" {
		t.Errorf("Update.Owner = %s, want acme", cfg.Update.Owner)
	}
}
