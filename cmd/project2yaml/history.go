package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/project2yaml"
	"github.com/jward/project2yaml/internal/config"
)

var (
	flagLimit  int
	flagFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent regeneration runs",
	Long:  "Lists runs recorded in the history database. Runs are recorded when history is enabled in the config file or with PROJECT2YAML_HISTORY=true.",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "maximum number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&flagFormat, "format", "text", "output format: json|text")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadConfig()
	if err != nil {
		return outputError(err)
	}
	// Reading history works whether or not recording is enabled, but never
	// creates the database.
	dbPath := config.Resolve(root, cfg.HistoryPath)
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return outputRuns(cmd.OutOrStdout(), nil)
	}
	engine, err := engineFor(root, cfg, project2yaml.WithHistory(dbPath))
	if err != nil {
		return outputError(err)
	}
	defer engine.Close()

	runs, err := engine.RecentRuns(flagLimit)
	if err != nil {
		return outputError(err)
	}
	return outputRuns(cmd.OutOrStdout(), runs)
}

// HistoryResult is the JSON envelope for the history command.
type HistoryResult struct {
	Command string              `json:"command"`
	Results []*project2yaml.Run `json:"results"`
	Error   string              `json:"error,omitempty"`
}

func outputRuns(w io.Writer, runs []*project2yaml.Run) error {
	if flagFormat == "text" {
		formatRunsText(w, runs)
		return nil
	}
	if runs == nil {
		runs = []*project2yaml.Run{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(HistoryResult{Command: "history", Results: runs})
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// HistoryResult envelope. In text mode it goes to stderr.
func outputError(err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(HistoryResult{Command: "history", Error: err.Error()})
	return err
}
