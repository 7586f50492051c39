package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/scribe/internal/fsm"
	"github.com/rbright/scribe/internal/speech"
	"github.com/rbright/scribe/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeIndicator struct {
	recording   atomic.Int32
	processing  atomic.Int32
	notices     atomic.Int32
	stopCues    atomic.Int32
	completeCue atomic.Int32
	cancelCues  atomic.Int32

	mu        sync.Mutex
	lastTitle string
}

func (f *fakeIndicator) ShowRecording(context.Context)  { f.recording.Add(1) }
func (f *fakeIndicator) ShowProcessing(context.Context) { f.processing.Add(1) }
func (f *fakeIndicator) ShowNotice(_ context.Context, title, _ string) {
	f.notices.Add(1)
	f.mu.Lock()
	f.lastTitle = title
	f.mu.Unlock()
}
func (f *fakeIndicator) CueStop(context.Context)     { f.stopCues.Add(1) }
func (f *fakeIndicator) CueComplete(context.Context) { f.completeCue.Add(1) }
func (f *fakeIndicator) CueCancel(context.Context)   { f.cancelCues.Add(1) }
func (*fakeIndicator) Hide(context.Context)          {}

func (f *fakeIndicator) title() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTitle
}

type fakePermissions struct {
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakePermissions) RequestPermissions(ctx context.Context) error {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

type fakeRecognizer struct {
	startErr  error
	startGate chan struct{} // blocks only the next Start
	recording Recording

	startCalls  atomic.Int32
	stopCalls   atomic.Int32
	cancelCalls atomic.Int32

	mu       sync.Mutex
	runs     []*fakeRun
	lastOpts StartOptions
}

func (f *fakeRecognizer) Start(_ context.Context, opts StartOptions) (RecognizerRun, error) {
	f.mu.Lock()
	gate := f.startGate
	f.startGate = nil
	f.mu.Unlock()
	f.startCalls.Add(1)
	if gate != nil {
		<-gate
	}
	if f.startErr != nil {
		return nil, f.startErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rn := &fakeRun{owner: f, events: make(chan speech.Event, 16)}
	f.runs = append(f.runs, rn)
	f.lastOpts = opts
	return rn, nil
}

// allRuns lists runs in the order Start created them.
func (f *fakeRecognizer) allRuns() []*fakeRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeRun(nil), f.runs...)
}

func (f *fakeRecognizer) latest() *fakeRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil
	}
	return f.runs[len(f.runs)-1]
}

func (f *fakeRecognizer) send(ev speech.Event) {
	f.latest().send(ev)
}

func (f *fakeRecognizer) closeStream() {
	if rn := f.latest(); rn != nil {
		rn.closeStream()
	}
}

type fakeRun struct {
	owner     *fakeRecognizer
	events    chan speech.Event
	closeOnce sync.Once
	stops     atomic.Int32
	cancels   atomic.Int32
}

func (r *fakeRun) Events() <-chan speech.Event { return r.events }

func (r *fakeRun) Stop(context.Context) (Recording, error) {
	r.stops.Add(1)
	r.owner.stopCalls.Add(1)
	r.closeStream()
	return r.owner.recording, nil
}

func (r *fakeRun) Cancel(context.Context) error {
	r.cancels.Add(1)
	r.owner.cancelCalls.Add(1)
	r.closeStream()
	return nil
}

func (r *fakeRun) send(ev speech.Event) { r.events <- ev }

func (r *fakeRun) closeStream() {
	r.closeOnce.Do(func() { close(r.events) })
}

type fakeInterruptions struct {
	ch chan Interruption
}

func (f *fakeInterruptions) Watch(context.Context) (<-chan Interruption, error) {
	return f.ch, nil
}

// flakyStore fails selected operations on top of an in-memory store.
type flakyStore struct {
	*store.Memory

	mu        sync.Mutex
	saveErr   error
	updateErr error
	deleteErr error
	fetchErr  error
	saves     int
	updates   int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: store.NewMemory()}
}

func (s *flakyStore) fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch op {
	case "save":
		s.saveErr = err
	case "update":
		s.updateErr = err
	case "delete":
		s.deleteErr = err
	case "fetch":
		s.fetchErr = err
	}
}

func (s *flakyStore) FetchRecent(ctx context.Context, limit int) ([]store.Transcript, error) {
	s.mu.Lock()
	err := s.fetchErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Memory.FetchRecent(ctx, limit)
}

func (s *flakyStore) Save(ctx context.Context, t store.Transcript) error {
	s.mu.Lock()
	err := s.saveErr
	s.saves++
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Save(ctx, t)
}

func (s *flakyStore) Update(ctx context.Context, t store.Transcript) error {
	s.mu.Lock()
	err := s.updateErr
	s.updates++
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Update(ctx, t)
}

func (s *flakyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Delete(ctx, id)
}

func (s *flakyStore) all(t *testing.T) []store.Transcript {
	t.Helper()
	items, err := s.Memory.FetchRecent(context.Background(), 0)
	require.NoError(t, err)
	return items
}

var errDisk = errors.New("disk full")

type harness struct {
	engine     *Engine
	recognizer *fakeRecognizer
	perms      *fakePermissions
	store      *flakyStore
	indicator  *fakeIndicator
}

func newHarness(t *testing.T, mutate func(*Config, *Deps)) *harness {
	t.Helper()
	h := &harness{
		recognizer: &fakeRecognizer{recording: Recording{AudioRef: "/tmp/take.wav", AudioChecksum: "abc123", Device: "Test Mic"}},
		perms:      &fakePermissions{},
		store:      newFlakyStore(),
		indicator:  &fakeIndicator{},
	}
	cfg := DefaultConfig()
	cfg.DrainTimeout = time.Second
	deps := Deps{
		Permissions: h.perms,
		Recognizer:  h.recognizer,
		Store:       h.store,
		Indicator:   h.indicator,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	h.engine = NewEngine(cfg, deps)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.engine.Start(context.Background()))
	require.Equal(t, fsm.StateRecording, h.engine.State())
}

func waitForState(t *testing.T, e *Engine, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.State() == want
	}, 2*time.Second, 5*time.Millisecond, "state never reached %s", want)
}
