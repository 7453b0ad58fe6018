package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mepuka/bsky-cli-sub001/internal/store"
	"github.com/mepuka/bsky-cli-sub001/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	dataRoot   string
	storeName  string
	jsonOutput bool

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "bsky",
	Short: "bsky - local-first ingestion and query engine for Bluesky posts",
	Long: `bsky ingests posts from Bluesky/ATProto sources into local,
filtered, queryable SQLite stores, and derives new stores from existing
ones by re-filtering their event logs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		initViperConfig(cmd)
		if dataRoot == "" {
			root, err := store.DefaultDataRoot()
			if err != nil {
				outputError(err)
				os.Exit(1)
			}
			dataRoot = root
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataRoot, "data-root", "", "Data root directory (default: $BSKY_DATA_ROOT or ~/.local/share/bsky)")
	rootCmd.PersistentFlags().StringVarP(&storeName, "store", "s", "default", "Store name")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", true, "Output in JSON format (default; output is JSON, or TOON via BSKY_OUTPUT_FORMAT, whatever this is set to)")
}

func main() {
	shutdown := telemetry.Setup()
	defer func() { _ = shutdown(context.Background()) }()
	defer func() {
		if rootCancel != nil {
			rootCancel()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
