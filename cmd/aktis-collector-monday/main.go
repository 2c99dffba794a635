package main

import (
	"fmt"
	"os"
	"strings"

	"aktis-collector-monday/internal/common"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
)

const pluginName = "aktis-collector-monday"

var (
	configPath string
	modeFlag   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   pluginName,
	Short: "Export monday.com board tickets to a file, GitHub or S3",
	Long: `Fetches every item of a monday.com board, normalizes its columns into a
fixed ticket schema and publishes the result as JSON. Without a subcommand
a single export is run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress banner output and print JSON collector output")

	addExportFlags(rootCmd)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !quiet {
			common.PrintError(err.Error())
		}
		os.Exit(1)
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateExport(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s (build: %s, commit: %s)\n",
			pluginName, common.GetVersion(), common.GetBuild(), common.GetGitCommit())
	},
}

func parseMode(mode string) string {
	mode = strings.ToLower(mode)
	switch mode {
	case "prod", "production":
		return "production"
	case "dev", "development":
		return "development"
	default:
		return "development"
	}
}

// loadConfig reads the configuration and applies the persistent flags
func loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Collector.Environment = parseMode(modeFlag)
	return cfg, nil
}

// setup loads the configuration and initializes the process logger. Quiet
// mode keeps stdout for the JSON document, so logs go to the file only.
func setup() (*common.Config, arbor.ILogger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if quiet {
		cfg.Logging.Output = "file"
	}
	if err := common.InitLogger(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger := common.GetLogger()
	logger.Info().
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", cfg.Collector.Environment).
		Str("config_path", configPath).
		Msg("Starting Aktis Collector Monday")

	return cfg, logger, nil
}
