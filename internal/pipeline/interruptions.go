package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rbright/scribe/internal/audio"
	"github.com/rbright/scribe/internal/session"
)

// RouteWatcher reports default input source changes as interruptions.
type RouteWatcher struct {
	interval time.Duration
	watch    func(ctx context.Context, interval time.Duration) (<-chan audio.SourceChange, error)
}

// NewRouteWatcher polls the Pulse default source every interval.
func NewRouteWatcher(interval time.Duration) *RouteWatcher {
	return &RouteWatcher{interval: interval, watch: audio.WatchDefaultSource}
}

// Watch implements session.InterruptionSource.
func (w *RouteWatcher) Watch(ctx context.Context) (<-chan session.Interruption, error) {
	changes, err := w.watch(ctx, w.interval)
	if err != nil {
		return nil, fmt.Errorf("watch default source: %w", err)
	}

	out := make(chan session.Interruption, 1)
	go func() {
		defer close(out)
		for change := range changes {
			interruption := session.Interruption{
				Reason: fmt.Sprintf("default input changed from %s to %s", change.From, change.To),
			}
			select {
			case out <- interruption:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
