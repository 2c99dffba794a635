package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"aktis-collector-monday/internal/services"

	"github.com/spf13/cobra"
)

var runsOptions struct {
	limit int
	json  bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent export runs from the run ledger",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsOptions.limit, "limit", 20, "Maximum number of runs to list")
	runsCmd.Flags().BoolVar(&runsOptions.json, "json", false, "Print runs as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	storage, err := services.NewStorage(&cfg.Storage)
	if err != nil {
		return err
	}
	defer storage.Close()

	runs, err := storage.LoadRuns(runsOptions.limit)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if runsOptions.json || quiet {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tRESULT\tFETCHED\tEXPORTED\tLOCATION")
	for _, run := range runs {
		result := "ok"
		location := run.Location
		if !run.Success {
			result = "failed (" + run.ErrorType + ")"
			location = run.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			result,
			run.Fetched,
			run.Exported,
			location,
		)
	}
	return w.Flush()
}
