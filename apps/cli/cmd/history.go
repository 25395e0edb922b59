package cmd

import (
	"fmt"
	"strconv"

	"github.com/restfile/restfile/packages/core/config"
	"github.com/restfile/restfile/packages/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent request executions",
	Long: `Show recent executions recorded by 'restfile run'.

Recording is enabled with --history-db on the run command or the
historyDb config field.

Examples:
  restfile history
  restfile history --limit 50`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

var (
	historyLimitFlag    int
	historyDatabaseFlag string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "l", 20, "Maximum entries to show")
	historyCmd.Flags().StringVar(&historyDatabaseFlag, "history-db", getEnvString("RESTFILE_HISTORY_DB", ""), "SQLite file recording executions (env: RESTFILE_HISTORY_DB)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := historyDatabaseFlag
	if path == "" {
		path = fileConfig.HistoryDB
	}
	if path == "" {
		return fmt.Errorf("no history database configured (use --history-db or set historyDb in the config)")
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
		return nil
	}

	for _, e := range entries {
		outcome := strconv.Itoa(e.StatusCode)
		if !e.Success {
			outcome = e.FailureKind
		}

		line := fmt.Sprintf("%s  %-7s %-9s %5dms  %s",
			e.ExecutedAt.Format("2006-01-02 15:04:05"), e.Method, outcome, e.DurationMs, e.URL)
		if e.RequestName != "" {
			line += "  (" + e.RequestName + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	return nil
}
