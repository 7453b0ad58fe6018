package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initViperConfig wires the teacher's "flags > viper (config file + env
// vars) > defaults" precedence: persistent flags left at their zero value
// are filled in from $BSKY_* env vars or ~/.config/bsky/config.toml before
// the command body runs.
func initViperConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix("BSKY")
	viper.AutomaticEnv()

	if cfgDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(cfgDir, "bsky"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	_ = viper.ReadInConfig() // absent config file is not an error

	if !cmd.Flags().Changed("data-root") {
		if v := viper.GetString("data_root"); v != "" {
			dataRoot = v
		}
	}
	if !cmd.Flags().Changed("store") {
		if v := viper.GetString("store"); v != "" {
			storeName = v
		}
	}
	if !cmd.Flags().Changed("json") && viper.IsSet("json") {
		jsonOutput = viper.GetBool("json")
	}
}
