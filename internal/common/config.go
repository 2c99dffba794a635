package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// OutputTargetLocal writes the payload to the local filesystem
	OutputTargetLocal = "local"
	// OutputTargetGitHub upserts the payload through the GitHub contents API
	OutputTargetGitHub = "github"
	// OutputTargetS3 puts the payload into an S3-compatible bucket
	OutputTargetS3 = "s3"

	// OutputFormatEnvelope wraps records with run metadata
	OutputFormatEnvelope = "envelope"
	// OutputFormatBare writes the record array only
	OutputFormatBare = "bare"

	// MissingBoardEmpty treats an unknown board as having no items
	MissingBoardEmpty = "empty"
	// MissingBoardError fails the fetch when the board is unknown
	MissingBoardError = "error"

	// MaxPageSize is the largest items_page limit the board API accepts
	MaxPageSize = 500
)

type Config struct {
	Collector CollectorConfig `toml:"collector"`
	Monday    MondayConfig    `toml:"monday"`
	Columns   ColumnsConfig   `toml:"columns"`
	Output    OutputConfig    `toml:"output"`
	GitHub    GitHubConfig    `toml:"github"`
	S3        S3Config        `toml:"s3"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type CollectorConfig struct {
	Name           string `toml:"name"`
	Environment    string `toml:"environment"`
	Port           int    `toml:"port"`
	ExportInterval int    `toml:"export_interval"` // minutes, 0 disables scheduled exports in serve mode
}

type MondayConfig struct {
	APIURL         string `toml:"api_url"`
	APIVersion     string `toml:"api_version"`
	APIToken       string `toml:"api_token"`
	BoardID        string `toml:"board_id"`
	PageSize       int    `toml:"page_size"`
	PageDelayMS    int    `toml:"page_delay_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RecentLimit    int    `toml:"recent_limit"`
	MissingBoard   string `toml:"missing_board"`
}

type ColumnsConfig struct {
	MappingFile string            `toml:"mapping_file"`
	MappingJSON string            `toml:"mapping_json"`
	Overrides   map[string]string `toml:"overrides"`
}

type OutputConfig struct {
	Target            string `toml:"target"`
	Path              string `toml:"path"`
	Format            string `toml:"format"`
	ConflictRetries   int    `toml:"conflict_retries"`
	ConflictBackoffMS int    `toml:"conflict_backoff_ms"`
}

type GitHubConfig struct {
	APIURL        string `toml:"api_url"`
	Token         string `toml:"token"`
	Repo          string `toml:"repo"`
	Branch        string `toml:"branch"`
	CommitMessage string `toml:"commit_message"`
}

type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    *bool  `toml:"use_ssl"`
	Prefix    string `toml:"prefix"`
}

type StorageConfig struct {
	DatabasePath  string `toml:"database_path"`
	RetentionDays int    `toml:"retention_days"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

type MetricsConfig struct {
	ClosedStates       []string `toml:"closed_states"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	defaultDBPath := filepath.Join(execDir, "data", execName+".db")

	return &Config{
		Collector: CollectorConfig{
			Name:        execName,
			Environment: "development",
			Port:        8080,
		},
		Monday: MondayConfig{
			APIURL:         "https://api.monday.com/v2",
			APIVersion:     "2024-10",
			PageSize:       200,
			PageDelayMS:    200,
			TimeoutSeconds: 60,
			MissingBoard:   MissingBoardEmpty,
		},
		Columns: ColumnsConfig{
			Overrides: map[string]string{},
		},
		Output: OutputConfig{
			Target:            OutputTargetLocal,
			Path:              filepath.Join("data", "monday_tickets.json"),
			Format:            OutputFormatEnvelope,
			ConflictBackoffMS: 500,
		},
		GitHub: GitHubConfig{
			APIURL:        "https://api.github.com",
			CommitMessage: "Export monday.com tickets (%s)",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Storage: StorageConfig{
			DatabasePath:  defaultDBPath,
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			ClosedStates:       []string{"Cerrado", "Resuelto", "Completado", "Hecho", "Done"},
			RateLimitPerMinute: 12,
		},
	}
}

// LoadConfig applies defaults, then the TOML file, then .env and process
// environment overrides, then validates.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		configFile = detectConfigFile()
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func detectConfigFile() string {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	possiblePaths := []string{
		filepath.Join(execDir, execName+".toml"),
		filepath.Join(execDir, "config.toml"),
		"config.toml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// firstEnv returns the first non-empty variable among names
func firstEnv(names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}

func applyEnvOverrides(config *Config) {
	if token := firstEnv("MONDAY_API_TOKEN", "MONDAY_API_KEY", "MONDAY_TOKEN"); token != "" {
		config.Monday.APIToken = token
	}
	if boardID := firstEnv("MONDAY_BOARD_ID", "BOARD_ID"); boardID != "" {
		config.Monday.BoardID = boardID
	}
	if pageSize := firstEnv("MONDAY_PAGE_SIZE", "PAGE_SIZE"); pageSize != "" {
		if n, err := strconv.Atoi(pageSize); err == nil {
			config.Monday.PageSize = n
		}
	}
	if limit := firstEnv("MONDAY_RECENT_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Monday.RecentLimit = n
		}
	}

	if target := firstEnv("OUTPUT_TARGET"); target != "" {
		config.Output.Target = strings.ToLower(target)
	}
	if path := firstEnv("OUTPUT_PATH"); path != "" {
		config.Output.Path = path
	} else if path := firstEnv("GITHUB_PATH"); path != "" && config.Output.Target == OutputTargetGitHub {
		config.Output.Path = path
	}

	if token := firstEnv("GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	}
	if repo := firstEnv("GITHUB_REPO"); repo != "" {
		config.GitHub.Repo = repo
	}
	if branch := firstEnv("GITHUB_BRANCH"); branch != "" {
		config.GitHub.Branch = branch
	}

	if endpoint := firstEnv("S3_ENDPOINT"); endpoint != "" {
		config.S3.Endpoint = endpoint
	}
	if bucket := firstEnv("S3_BUCKET"); bucket != "" {
		config.S3.Bucket = bucket
	}
	if accessKey := firstEnv("S3_ACCESS_KEY"); accessKey != "" {
		config.S3.AccessKey = accessKey
	}
	if secretKey := firstEnv("S3_SECRET_KEY"); secretKey != "" {
		config.S3.SecretKey = secretKey
	}

	if mapping := firstEnv("COLUMN_MAPPING_JSON"); mapping != "" {
		config.Columns.MappingJSON = mapping
	}

	if dbPath := firstEnv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}

	if logLevel := firstEnv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logFormat := firstEnv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}
	if logOutput := firstEnv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}

	if port := firstEnv("SERVER_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			config.Collector.Port = portNum
		}
	}

	if closed := firstEnv("CLOSED_STATES"); closed != "" {
		config.Metrics.ClosedStates = splitList(closed)
	}
}

func splitList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// Validate checks settings every mode depends on. Export-only settings are
// checked by ValidateExport so that serve mode can start without them.
func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return NewConfigurationError("missing_database_path", "storage database_path is required")
	}

	if c.Collector.Port <= 0 {
		c.Collector.Port = 8080
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, c.Logging.Level) {
		return NewConfigurationError("invalid_log_level", fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}

	validOutputs := []string{"console", "file", "both"}
	if !contains(validOutputs, c.Logging.Output) {
		return NewConfigurationError("invalid_log_output", fmt.Sprintf("invalid log output: %s", c.Logging.Output))
	}

	if c.Monday.PageSize < 1 || c.Monday.PageSize > MaxPageSize {
		return NewConfigurationError("invalid_page_size",
			fmt.Sprintf("monday page_size must be between 1 and %d, got %d", MaxPageSize, c.Monday.PageSize))
	}
	if c.Monday.PageDelayMS < 0 {
		return NewConfigurationError("invalid_page_delay", "monday page_delay_ms must not be negative")
	}
	if c.Monday.RecentLimit < 0 {
		return NewConfigurationError("invalid_recent_limit", "monday recent_limit must not be negative")
	}
	if !contains([]string{MissingBoardEmpty, MissingBoardError}, c.Monday.MissingBoard) {
		return NewConfigurationError("invalid_missing_board",
			fmt.Sprintf("monday missing_board must be %q or %q", MissingBoardEmpty, MissingBoardError))
	}

	if !contains([]string{OutputTargetLocal, OutputTargetGitHub, OutputTargetS3}, c.Output.Target) {
		return NewConfigurationError("invalid_output_target", fmt.Sprintf("invalid output target: %s", c.Output.Target))
	}
	if !contains([]string{OutputFormatEnvelope, OutputFormatBare}, c.Output.Format) {
		return NewConfigurationError("invalid_output_format", fmt.Sprintf("invalid output format: %s", c.Output.Format))
	}
	if c.Output.ConflictRetries < 0 {
		return NewConfigurationError("invalid_conflict_retries", "output conflict_retries must not be negative")
	}

	return nil
}

// ValidateExport checks every setting an export run needs. It never touches
// the network.
func (c *Config) ValidateExport() error {
	if err := c.ValidateBoardAccess(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return NewConfigurationError("missing_output_path", "output path is required (OUTPUT_PATH)")
	}

	switch c.Output.Target {
	case OutputTargetGitHub:
		if strings.TrimSpace(c.GitHub.Token) == "" {
			return NewConfigurationError("missing_github_token", "github token is required (GITHUB_TOKEN)")
		}
		owner, repo, ok := strings.Cut(c.GitHub.Repo, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return NewConfigurationError("invalid_github_repo",
				fmt.Sprintf("github repo must be \"owner/name\", got %q", c.GitHub.Repo))
		}
	case OutputTargetS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return NewConfigurationError("missing_s3_settings", "s3 endpoint and bucket are required")
		}
	}

	return nil
}

// ValidateBoardAccess checks the settings a read-only board fetch needs.
func (c *Config) ValidateBoardAccess() error {
	if strings.TrimSpace(c.Monday.APIToken) == "" {
		return NewConfigurationError("missing_api_token", "monday api_token is required (MONDAY_API_TOKEN)")
	}
	if strings.TrimSpace(c.Monday.BoardID) == "" {
		return NewConfigurationError("missing_board_id", "monday board_id is required (MONDAY_BOARD_ID)")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Collector.Environment == "production"
}

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
