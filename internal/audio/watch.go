package audio

import (
	"context"
	"time"
)

// DefaultWatchInterval is how often WatchDefaultSource polls Pulse.
const DefaultWatchInterval = 500 * time.Millisecond

// SourceChange reports that the Pulse default input source moved.
type SourceChange struct {
	From string
	To   string
}

// WatchDefaultSource polls the Pulse default source every interval and sends
// a SourceChange each time it differs from the previous one. The channel is
// closed when ctx ends or Pulse goes away.
func WatchDefaultSource(ctx context.Context, interval time.Duration) (<-chan SourceChange, error) {
	client, err := connect()
	if err != nil {
		return nil, err
	}
	current, err := defaultSourceID(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	return watchSource(ctx, interval, current, func() (string, error) {
		return defaultSourceID(client)
	}, client.Close), nil
}

func watchSource(ctx context.Context, interval time.Duration, current string, poll func() (string, error), closeFn func()) <-chan SourceChange {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	changes := make(chan SourceChange, 1)

	go func() {
		defer close(changes)
		defer closeFn()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			next, err := poll()
			if err != nil {
				return
			}
			if next == current {
				continue
			}
			change := SourceChange{From: current, To: next}
			current = next
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes
}
