package main

import (
	"os"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/core"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
	"github.com/mepuka/bsky-cli-sub001/internal/syncengine"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync a store against a recorded source fixture",
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

var (
	syncFixturePath  string
	syncSourceTag    string
	syncPolicy       string
	syncLimit        int
	syncDryRun       bool
	syncMaxErrors    int
	syncBatchSize    int
	syncJetstream    bool
	syncJetstrict    bool
)

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync cycle against a fixture",
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := resolveFilter(cmd)
		if err != nil {
			outputError(err)
			return
		}
		data, err := os.ReadFile(syncFixturePath)
		if err != nil {
			outputError(err)
			return
		}

		opts := syncengine.Options{
			Policy:    syncengine.Policy(syncPolicy),
			Limit:     syncLimit,
			DryRun:    syncDryRun,
			MaxErrors: syncMaxErrors,
			BatchSize: syncBatchSize,
		}

		if syncJetstream {
			commits, err := core.FakeCommitsFromNDJSON(data)
			if err != nil {
				outputError(err)
				return
			}
			opts.Strict = syncJetstrict
			res, err := core.SyncJetstreamRun(rootCtx, dataRoot, storeName, source.Spec{Tag: source.TagJetstream}, commits, filter, opts, nil)
			if err != nil {
				outputError(err)
				return
			}
			outputResult(res)
			return
		}

		src, err := core.FakeSourceFromNDJSON(data)
		if err != nil {
			outputError(err)
			return
		}
		res, err := core.SyncRun(rootCtx, dataRoot, storeName, source.Spec{Tag: source.Tag(syncSourceTag)}, src, filter, opts, nil)
		if err != nil {
			outputError(err)
			return
		}
		outputResult(res)
	},
}

func init() {
	addFilterFlags(syncRunCmd)
	syncRunCmd.Flags().StringVar(&syncFixturePath, "fixture", "", "Path to an NDJSON fixture of raw posts (or commits, with --jetstream)")
	syncRunCmd.Flags().StringVar(&syncSourceTag, "source", string(source.TagTimeline), "Source tag: timeline|feed|list|notifications|author|thread")
	syncRunCmd.Flags().StringVar(&syncPolicy, "policy", string(syncengine.PolicyDedupe), "Commit policy: dedupe|refresh")
	syncRunCmd.Flags().IntVar(&syncLimit, "limit", 0, "Cap the number of raw posts considered (0 = unbounded)")
	syncRunCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Simulate the run without writing")
	syncRunCmd.Flags().IntVar(&syncMaxErrors, "max-errors", 0, "Abort once this many per-event errors accumulate (0 = unbounded)")
	syncRunCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "Concurrent parse/filter batch size (0 = default)")
	syncRunCmd.Flags().BoolVar(&syncJetstream, "jetstream", false, "Treat --fixture as a Jetstream commit stream")
	syncRunCmd.Flags().BoolVar(&syncJetstrict, "strict", false, "Abort on the first per-event error (jetstream only)")
	_ = syncRunCmd.MarkFlagRequired("fixture")
	syncCmd.AddCommand(syncRunCmd)
}

var (
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeat sync on a fixed interval, streaming one event per cycle",
	Run: func(cmd *cobra.Command, args []string) {
		filter, err := resolveFilter(cmd)
		if err != nil {
			outputError(err)
			return
		}
		data, err := os.ReadFile(syncFixturePath)
		if err != nil {
			outputError(err)
			return
		}
		src, err := core.FakeSourceFromNDJSON(data)
		if err != nil {
			outputError(err)
			return
		}

		opts := syncengine.Options{
			Policy:    syncengine.Policy(syncPolicy),
			Limit:     syncLimit,
			MaxErrors: syncMaxErrors,
			BatchSize: syncBatchSize,
		}
		events, err := core.WatchRun(rootCtx, dataRoot, storeName, source.Spec{Tag: source.Tag(syncSourceTag)}, src, filter, opts, nil, watchInterval)
		if err != nil {
			outputError(err)
			return
		}
		for ev := range events {
			if ev.Err != nil {
				outputError(ev.Err)
				continue
			}
			outputJSONRaw(ev.Result)
		}
	},
}

func init() {
	addFilterFlags(watchCmd)
	watchCmd.Flags().StringVar(&syncFixturePath, "fixture", "", "Path to an NDJSON fixture of raw posts")
	watchCmd.Flags().StringVar(&syncSourceTag, "source", string(source.TagTimeline), "Source tag: timeline|feed|list|notifications|author|thread")
	watchCmd.Flags().StringVar(&syncPolicy, "policy", string(syncengine.PolicyDedupe), "Commit policy: dedupe|refresh")
	watchCmd.Flags().IntVar(&syncLimit, "limit", 0, "Cap the number of raw posts considered per cycle (0 = unbounded)")
	watchCmd.Flags().IntVar(&syncMaxErrors, "max-errors", 0, "Abort a cycle once this many per-event errors accumulate (0 = unbounded)")
	watchCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "Concurrent parse/filter batch size (0 = default)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Interval between sync cycles")
	_ = watchCmd.MarkFlagRequired("fixture")
	rootCmd.AddCommand(watchCmd)
}
