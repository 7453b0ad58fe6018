package main

import (
	"github.com/mepuka/bsky-cli-sub001/internal/core"
	"github.com/mepuka/bsky-cli-sub001/internal/index"
	"github.com/spf13/cobra"
)

var (
	queryLimit  int
	querySortBy string
	queryOrder  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a filtered, paginated query against a store",
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := resolveFilter(cmd)
		if err != nil {
			outputError(err)
			return
		}
		q := index.QuerySpec{
			Filter: filter,
			SortBy: index.SortBy(querySortBy),
			Order:  index.Order(queryOrder),
			Limit:  queryLimit,
		}
		page, err := core.QueryStore(rootCtx, dataRoot, storeName, q)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(page)
	},
}

func init() {
	addFilterFlags(queryCmd)
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Page size (0 = default)")
	queryCmd.Flags().StringVar(&querySortBy, "sort", string(index.SortCreatedAt), "Sort column: created_at|like_count|repost_count|reply_count|quote_count|engagement")
	queryCmd.Flags().StringVar(&queryOrder, "order", string(index.OrderDesc), "Sort order: asc|desc")
	rootCmd.AddCommand(queryCmd)
}

var (
	searchText  string
	searchLimit int
	searchSort  string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a full-text search over a store's posts",
	Run: func(cmd *cobra.Command, args []string) {
		q := index.SearchQuery{
			Query: searchText,
			Limit: searchLimit,
			Sort:  index.SearchSort(searchSort),
		}
		page, err := core.SearchStore(rootCtx, dataRoot, storeName, q)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(page)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchText, "q", "", "Search query text")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 25, "Page size")
	searchCmd.Flags().StringVar(&searchSort, "sort", string(index.SearchRelevance), "Sort: relevance|newest|oldest")
	_ = searchCmd.MarkFlagRequired("q")
	rootCmd.AddCommand(searchCmd)
}

var threadCmd = &cobra.Command{
	Use:   "thread [uri]",
	Short: "Show every post in a thread, or summarize threads matching a filter",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			posts, err := core.ThreadRun(rootCtx, dataRoot, storeName, args[0])
			if err != nil {
				outputError(err)
				return
			}
			outputResult(posts)
			return
		}
		filter, err := resolveFilter(cmd)
		if err != nil {
			outputError(err)
			return
		}
		groups, err := core.ThreadGroupsRun(rootCtx, dataRoot, storeName, filter)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(groups)
	},
}

func init() {
	addFilterFlags(threadCmd)
	rootCmd.AddCommand(threadCmd)
}
