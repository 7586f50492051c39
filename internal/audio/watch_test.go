package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu  sync.Mutex
	ids []string
}

func (s *scriptedSource) poll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return "usb-mic", nil
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, nil
}

func TestWatchSourceReportsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &scriptedSource{ids: []string{"builtin", "builtin", "usb-mic"}}
	var closed atomic.Bool
	changes := watchSource(ctx, time.Millisecond, "builtin", source.poll, func() { closed.Store(true) })

	select {
	case change := <-changes:
		require.Equal(t, SourceChange{From: "builtin", To: "usb-mic"}, change)
	case <-time.After(2 * time.Second):
		t.Fatal("no source change reported")
	}

	cancel()
	for range changes {
	}
	require.True(t, closed.Load())
}

func TestWatchSourceStopsWhenPollFails(t *testing.T) {
	var polls atomic.Int32
	changes := watchSource(context.Background(), time.Millisecond, "builtin", func() (string, error) {
		polls.Add(1)
		return "", errors.New("pulse gone")
	}, func() {})

	select {
	case _, ok := <-changes:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	require.Equal(t, int32(1), polls.Load())
}
