package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"
	"aktis-collector-monday/internal/services"

	"github.com/spf13/cobra"
	"github.com/ternarybob/aktis-plugin-sdk/plugin"
)

const payloadType = "monday_ticket"

var exportOptions struct {
	boardID string
	target  string
	output  string
	format  string
	recent  int
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch, normalize and publish the board once",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	addExportFlags(exportCmd)
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&exportOptions.boardID, "board", "", "Board id (overrides monday.board_id)")
	cmd.Flags().StringVar(&exportOptions.target, "target", "", "Output target: local, github or s3")
	cmd.Flags().StringVar(&exportOptions.output, "output", "", "Output path (overrides output.path)")
	cmd.Flags().StringVar(&exportOptions.format, "format", "", "Payload format: envelope or bare")
	cmd.Flags().IntVar(&exportOptions.recent, "recent", 0, "Keep only the N most recently created tickets")
}

// applyExportFlags copies explicitly set flags over the loaded configuration
func applyExportFlags(cmd *cobra.Command, cfg *common.Config) error {
	flags := cmd.Flags()
	if flags.Changed("board") {
		cfg.Monday.BoardID = exportOptions.boardID
	}
	if flags.Changed("target") {
		cfg.Output.Target = exportOptions.target
	}
	if flags.Changed("output") {
		cfg.Output.Path = exportOptions.output
	}
	if flags.Changed("format") {
		cfg.Output.Format = exportOptions.format
	}
	if flags.Changed("recent") {
		cfg.Monday.RecentLimit = exportOptions.recent
	}
	return cfg.Validate()
}

func runExport(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	environment := parseMode(modeFlag)

	cfg, logger, err := setup()
	if err != nil {
		return reportFailure(cmd, err, environment, startTime)
	}
	if err := applyExportFlags(cmd, cfg); err != nil {
		return reportFailure(cmd, err, environment, startTime)
	}

	if !quiet {
		common.PrintBanner(cfg, "Export", common.GetLogFilePath())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, err := services.BuildPipeline(cfg, logger)
	if err != nil {
		return reportFailure(cmd, err, environment, startTime)
	}

	store, err := services.NewStorage(&cfg.Storage)
	if err != nil {
		logger.Warn().Err(err).Msg("Run ledger unavailable, continuing without it")
	} else {
		defer store.Close()
		pipeline.WithStore(store)
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		return reportFailure(cmd, err, environment, startTime)
	}

	output := plugin.CollectorOutput{
		Success:   true,
		Timestamp: time.Now(),
		Payloads:  buildPayloads(result),
		Collector: collectorInfo(environment),
		Stats: plugin.CollectorStats{
			Duration:     time.Since(startTime).String(),
			PayloadCount: result.Exported,
		},
	}

	if quiet {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(output)
	}
	displayResults(cmd, result)
	return nil
}

func collectorInfo(environment string) plugin.CollectorInfo {
	return plugin.CollectorInfo{
		Name:        pluginName,
		Type:        plugin.CollectorTypeData,
		Version:     common.GetVersion(),
		Environment: environment,
	}
}

// buildPayloads turns each exported record into one collector payload
func buildPayloads(result *models.RunResult) []plugin.Payload {
	payloads := make([]plugin.Payload, 0, len(result.Records))
	for _, record := range result.Records {
		payloads = append(payloads, plugin.Payload{
			Timestamp: result.StartedAt,
			Type:      payloadType,
			Data:      record.ToMap(),
			Metadata: map[string]string{
				"board_id":      result.BoardID,
				"run_id":        result.RunID,
				"ticket_number": record.TicketNumber,
			},
		})
	}
	return payloads
}

// reportFailure prints the quiet-mode failure document and returns err so
// the process exits non-zero
func reportFailure(cmd *cobra.Command, err error, environment string, startTime time.Time) error {
	if quiet {
		output := plugin.CollectorOutput{
			Success:   false,
			Timestamp: time.Now(),
			Error:     err.Error(),
			Collector: collectorInfo(environment),
			Stats: plugin.CollectorStats{
				Duration: time.Since(startTime).String(),
			},
		}
		if encodeErr := json.NewEncoder(cmd.OutOrStdout()).Encode(output); encodeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", encodeErr)
		}
	}
	return err
}

func displayResults(cmd *cobra.Command, result *models.RunResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n📊 Export Summary\n")
	fmt.Fprintf(out, "=================\n")
	if result.BoardName != "" {
		fmt.Fprintf(out, "Board: %s (%s)\n", result.BoardName, result.BoardID)
	} else {
		fmt.Fprintf(out, "Board: %s\n", result.BoardID)
	}
	fmt.Fprintf(out, "Fetched: %d tickets\n", result.Fetched)
	fmt.Fprintf(out, "Exported: %d tickets\n", result.Exported)
	fmt.Fprintf(out, "Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Location: %s\n", result.Publish.Location)
	if result.Publish.Version != "" {
		fmt.Fprintf(out, "Version: %s\n", result.Publish.Version)
	}
	fmt.Fprintf(out, "Run: %s\n", result.RunID)

	fmt.Fprintln(out)
	common.PrintSuccess("Export completed successfully!")
}
