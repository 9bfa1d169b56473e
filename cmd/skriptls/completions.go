package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/catalog"
)

var completionsCmd = &cobra.Command{
	Use:   "completions",
	Short: "Fetch the syntax catalog and print the completion entries",
	Args:  cobra.NoArgs,
	RunE:  runCompletions,
}

func init() {
	completionsCmd.Flags().Bool("json", false, "print entries as JSON")
	completionsCmd.Flags().Bool("offline", false, "only use the cached catalog")
	completionsCmd.Flags().String("filter", "", "only print entries whose label contains this text")
}

func runCompletions(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	store := catalog.NewStore()
	loader := newCatalogLoader(cfg, newRemoteClient(cfg, logger), store, logger)
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		if !loader.Warm() {
			return fmt.Errorf("no cached catalog")
		}
	} else if _, err := loader.Load(cmd.Context()); err != nil {
		if store.Len() == 0 {
			return err
		}
		logger.Warn("using cached catalog", zap.Error(err))
	}

	filter, _ := cmd.Flags().GetString("filter")
	var entries []catalog.CompletionEntry
	for _, e := range store.Completions() {
		if filter == "" || strings.Contains(e.Label, filter) {
			entries = append(entries, e)
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Label, e.Detail)
	}
	return tw.Flush()
}
