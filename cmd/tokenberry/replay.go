package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/tokenberry/engine"
	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/store"
)

var (
	exportDB      string
	exportWorkers int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the journal and print the resulting status",
	Args:  cobra.NoArgs,
	RunE:  runReplay,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Replay the journal and export every token to SQLite",
	Long: `Replays the journal, then writes token settings, ledger checkpoints
and proposals to a SQLite database. Existing rows of exported tokens are
replaced.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDB, "db", "tokenberry.db", "SQLite database path")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 4, "snapshots built concurrently")
}

func runReplay(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Stop()

	out := struct {
		Replay *engine.ReplayResult `json:"replay"`
		Status engine.Status        `json:"status"`
	}{eng.LastReplay(), eng.GetStatus()}
	return printJSON(cmd, out)
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Stop()

	db, err := store.Open(exportDB)
	if err != nil {
		return err
	}
	defer db.Close()

	v, _ := eng.Catalog().Voting()
	exp := store.NewExporter(db, v, logger)
	exp.SetWorkers(exportWorkers)

	// nothing applies transactions while the command runs
	height := eng.Height()
	var info store.ExportInfo
	err = eng.View(func(r *registry.Registry) error {
		info, err = exp.Export(cmd.Context(), height, r.Tokens())
		return err
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return printJSON(cmd, info)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
