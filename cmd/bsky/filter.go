package main

import (
	"io"
	"os"

	"github.com/mepuka/bsky-cli-sub001/internal/core"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Compile and inspect filter expressions",
}

func init() {
	rootCmd.AddCommand(filterCmd)
}

var filterCompileCmd = &cobra.Command{
	Use:   "compile [dsl]",
	Short: "Compile a filter DSL expression to its canonical AST",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := core.CompileFilterDSL(args[0])
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

func init() {
	filterCmd.AddCommand(filterCompileCmd)
}

// addFilterFlags registers the --filter and --filter-json flags shared by
// every command that narrows a store operation to a filter expression.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("filter", "", "Filter DSL expression (e.g. `author:alice AND #tech AND NOT is_reply`)")
	cmd.Flags().String("filter-json", "", "Path to a JSON-encoded filter expression, or '-' for stdin")
}

// resolveFilter compiles whichever of --filter / --filter-json was given,
// defaulting to filterast.All() (match everything) when neither is set.
func resolveFilter(cmd *cobra.Command) (filterast.Expr, error) {
	dsl, _ := cmd.Flags().GetString("filter")
	jsonPath, _ := cmd.Flags().GetString("filter-json")

	switch {
	case dsl != "":
		res, err := core.CompileFilterDSL(dsl)
		return res.Filter, err
	case jsonPath != "":
		data, err := readFileOrStdin(jsonPath)
		if err != nil {
			return filterast.Expr{}, err
		}
		res, err := core.CompileFilterJSON(data)
		return res.Filter, err
	default:
		return filterast.All(), nil
	}
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
