package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
[monday]
api_token = "from-file"
board_id = "111"
page_size = 100

[output]
target = "local"
path = "out/tickets.json"
format = "bare"

[storage]
database_path = "data/ledger.db"
`)
	t.Setenv("MONDAY_API_TOKEN", "")
	t.Setenv("MONDAY_API_KEY", "from-env")
	t.Setenv("OUTPUT_TARGET", "")
	t.Setenv("OUTPUT_PATH", "")
	t.Setenv("MONDAY_BOARD_ID", "")
	t.Setenv("BOARD_ID", "222")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Monday.APIToken != "from-env" {
		t.Errorf("APIToken = %q, want the environment value", config.Monday.APIToken)
	}
	if config.Monday.BoardID != "222" {
		t.Errorf("BoardID = %q, want the BOARD_ID fallback", config.Monday.BoardID)
	}
	if config.Monday.PageSize != 100 || config.Output.Format != OutputFormatBare {
		t.Errorf("file values lost: page_size=%d format=%q", config.Monday.PageSize, config.Output.Format)
	}
	if config.Monday.APIURL != "https://api.monday.com/v2" {
		t.Errorf("APIURL = %q, want the default", config.Monday.APIURL)
	}
}

func TestLoadConfig_GitHubPathOnlyForGitHubTarget(t *testing.T) {
	path := writeConfig(t, `
[storage]
database_path = "data/ledger.db"
`)
	t.Setenv("OUTPUT_PATH", "")
	t.Setenv("OUTPUT_TARGET", "GitHub")
	t.Setenv("GITHUB_PATH", "exports/tickets.json")
	t.Setenv("GITHUB_REPO", "acme/tickets")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Output.Target != OutputTargetGitHub || config.Output.Path != "exports/tickets.json" {
		t.Errorf("output = %+v", config.Output)
	}
	if config.GitHub.Repo != "acme/tickets" {
		t.Errorf("repo = %q", config.GitHub.Repo)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "[monday\n")); err == nil {
		t.Error("LoadConfig() accepted malformed TOML")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadConfig() accepted a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"page size zero", func(c *Config) { c.Monday.PageSize = 0 }, "invalid_page_size"},
		{"page size too large", func(c *Config) { c.Monday.PageSize = MaxPageSize + 1 }, "invalid_page_size"},
		{"negative delay", func(c *Config) { c.Monday.PageDelayMS = -1 }, "invalid_page_delay"},
		{"negative recent", func(c *Config) { c.Monday.RecentLimit = -5 }, "invalid_recent_limit"},
		{"missing board policy", func(c *Config) { c.Monday.MissingBoard = "ignore" }, "invalid_missing_board"},
		{"target", func(c *Config) { c.Output.Target = "ftp" }, "invalid_output_target"},
		{"format", func(c *Config) { c.Output.Format = "csv" }, "invalid_output_format"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid_log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); !HasCode(err, tt.code) {
				t.Errorf("Validate() error = %v, want %s", err, tt.code)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateExport(t *testing.T) {
	valid := func() *Config {
		config := DefaultConfig()
		config.Monday.APIToken = "token"
		config.Monday.BoardID = "100"
		return config
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"token", func(c *Config) { c.Monday.APIToken = "  " }, "missing_api_token"},
		{"board", func(c *Config) { c.Monday.BoardID = "" }, "missing_board_id"},
		{"path", func(c *Config) { c.Output.Path = "" }, "missing_output_path"},
		{"github token", func(c *Config) {
			c.Output.Target = OutputTargetGitHub
			c.GitHub.Repo = "acme/tickets"
		}, "missing_github_token"},
		{"github repo", func(c *Config) {
			c.Output.Target = OutputTargetGitHub
			c.GitHub.Token = "ghp"
			c.GitHub.Repo = "acme/tickets/extra"
		}, "invalid_github_repo"},
		{"s3", func(c *Config) { c.Output.Target = OutputTargetS3 }, "missing_s3_settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)
			err := config.ValidateExport()
			if !HasCode(err, tt.code) || !IsConfiguration(err) {
				t.Errorf("ValidateExport() error = %v, want %s", err, tt.code)
			}
		})
	}

	if err := valid().ValidateExport(); err != nil {
		t.Errorf("ValidateExport() error = %v", err)
	}
}
