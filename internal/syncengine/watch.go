package syncengine

import (
	"context"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/source"
)

// WatchConfig configures a repeating sync schedule (spec.md §4.5).
type WatchConfig struct {
	Deps     Deps
	Source   source.Source
	Spec     source.Spec
	Filter   filterast.Expr
	Options  Options
	Reporter Reporter
	Interval time.Duration
}

// Watch repeats Sync on a fixed interval, sending one Event per cycle on
// the returned channel. The channel is closed once ctx is cancelled; the
// in-flight cycle's final checkpoint save always completes first (spec.md
// §4.5: "the final checkpoint save runs in an uninterruptible finalizer").
func Watch(ctx context.Context, cfg WatchConfig) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		ticker := time.NewTicker(intervalOrDefault(cfg.Interval))
		defer ticker.Stop()

		runOnce := func() bool {
			res, err := Sync(ctx, cfg.Deps, cfg.Source, cfg.Spec, cfg.Filter, cfg.Options, cfg.Reporter)
			select {
			case out <- Event{Result: res, Err: err}:
			case <-ctx.Done():
				return false
			}
			return ctx.Err() == nil
		}

		if !runOnce() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !runOnce() {
					return
				}
			}
		}
	}()
	return out
}

func intervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
