package main

import (
	"github.com/mepuka/bsky-cli-sub001/internal/core"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage stores",
}

func init() {
	rootCmd.AddCommand(storeCmd)
}

var storeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new store",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := core.CreateStore(rootCtx, dataRoot, storeName)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stores",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := core.ListStores(dataRoot)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a store's size and lineage",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := core.StoreInfo(rootCtx, dataRoot, storeName)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

var storeRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Delete a store",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := core.DeleteStore(rootCtx, dataRoot, storeName)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

func init() {
	storeCmd.AddCommand(storeCreateCmd, storeListCmd, storeInfoCmd, storeRmCmd)
}
