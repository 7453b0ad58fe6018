package main

import (
	"github.com/mepuka/bsky-cli-sub001/internal/core"
	"github.com/mepuka/bsky-cli-sub001/internal/derive"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
	"github.com/spf13/cobra"
)

var (
	deriveTarget string
	deriveMode   string
	deriveReset  bool
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Project a store's event log into another store through a filter",
}

var deriveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one derivation pass",
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := resolveFilter(cmd)
		if err != nil {
			outputError(err)
			return
		}
		opts := derive.Options{
			Mode:  types.DerivationMode(deriveMode),
			Reset: deriveReset,
		}
		res, err := core.DeriveRun(rootCtx, dataRoot, storeName, deriveTarget, filter, opts)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

func init() {
	addFilterFlags(deriveRunCmd)
	deriveRunCmd.Flags().StringVar(&deriveTarget, "target", "", "Target store name")
	deriveRunCmd.Flags().StringVar(&deriveMode, "mode", string(types.ModeEventTime), "Derivation mode: event_time|derive_time")
	deriveRunCmd.Flags().BoolVar(&deriveReset, "reset", false, "Clear the target store and its derivation checkpoint before running")
	_ = deriveRunCmd.MarkFlagRequired("target")
	deriveCmd.AddCommand(deriveRunCmd)
	rootCmd.AddCommand(deriveCmd)
}
