package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/session"
	"github.com/stretchr/testify/require"
)

var _ session.Indicator = (*Desktop)(nil)

type notification struct {
	replaceID uint32
	summary   string
	body      string
	timeout   int
}

type recorder struct {
	mu        sync.Mutex
	sent      []notification
	dismissed []uint32
	cues      []cueKind
	nextID    uint32
	notifyErr error
}

func (r *recorder) notify(_ context.Context, _ string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notifyErr != nil {
		return 0, r.notifyErr
	}
	r.sent = append(r.sent, notification{replaceID: replaceID, summary: summary, body: body, timeout: timeoutMS})
	r.nextID++
	return r.nextID, nil
}

func (r *recorder) dismiss(_ context.Context, id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = append(r.dismissed, id)
	return nil
}

func (r *recorder) cue(kind cueKind, _ config.IndicatorConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, kind)
	return nil
}

func newTestDesktop(cfg config.IndicatorConfig) (*Desktop, *recorder) {
	rec := &recorder{}
	d := NewDesktop(cfg, nil)
	d.messages = catalog["en"]
	d.notify = rec.notify
	d.dismiss = rec.dismiss
	d.cue = rec.cue
	return d, rec
}

func TestDesktopReplacesNotificationAcrossStates(t *testing.T) {
	cfg := config.Default().Indicator
	d, rec := newTestDesktop(cfg)
	ctx := context.Background()

	d.ShowRecording(ctx)
	d.ShowProcessing(ctx)
	d.ShowNotice(ctx, "Save Failed", "disk full")
	d.Hide(ctx)
	d.Hide(ctx)
	d.CueStop(ctx)
	d.CueComplete(ctx)
	d.CueCancel(ctx)
	d.Wait()

	require.Equal(t, []notification{
		{replaceID: 0, summary: "Recording…", timeout: 300000},
		{replaceID: 1, summary: "Processing transcript…", timeout: 300000},
		{replaceID: 2, summary: "Save Failed", body: "disk full", timeout: 1600},
	}, rec.sent)
	require.Equal(t, []uint32{3}, rec.dismissed)
	require.ElementsMatch(t, []cueKind{cueStart, cueNotice, cueStop, cueComplete, cueCancel}, rec.cues)
}

func TestDesktopNoticeDefaults(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.ErrorTimeoutMS = 0
	d, rec := newTestDesktop(cfg)

	d.ShowNotice(context.Background(), "", "boom")
	require.Len(t, rec.sent, 1)
	require.Equal(t, "Speech recognition error", rec.sent[0].summary)
	require.Equal(t, 1200, rec.sent[0].timeout)
}

func TestDesktopDisabledSkipsDispatch(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false
	d, rec := newTestDesktop(cfg)
	ctx := context.Background()

	d.ShowRecording(ctx)
	d.ShowProcessing(ctx)
	d.ShowNotice(ctx, "Error", "ignored")
	d.Hide(ctx)
	d.CueComplete(ctx)
	d.Wait()

	require.Empty(t, rec.sent)
	require.Empty(t, rec.dismissed)
	require.Empty(t, rec.cues)
}

func TestDesktopNotifyFailureKeepsPreviousID(t *testing.T) {
	d, rec := newTestDesktop(config.Default().Indicator)
	ctx := context.Background()

	d.ShowRecording(ctx)
	rec.notifyErr = errors.New("no bus")
	d.ShowProcessing(ctx)
	d.Hide(ctx)

	require.Equal(t, []uint32{1}, rec.dismissed)
}

func TestDesktopNotifyViaBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$6" == "Notify" ]]; then
  echo "u 42"
fi
`)

	id, err := desktopNotify(context.Background(), "scribe", 7, "Recording…", "", 1500)
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)
	require.NoError(t, desktopDismiss(context.Background(), id))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "Notify susssasa{sv}i scribe 7  Recording…  0 0 1500")
	require.Contains(t, string(data), "CloseNotification u 42")
}

func TestDesktopNotifyReportsFailures(t *testing.T) {
	installBusctlStub(t, `
echo "Call failed: no notification daemon" >&2
exit 1
`)

	_, err := desktopNotify(context.Background(), "scribe", 0, "x", "", 100)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no notification daemon")
}

func TestParseNotificationID(t *testing.T) {
	id, err := parseNotificationID("u 17")
	require.NoError(t, err)
	require.Equal(t, uint32(17), id)

	_, err = parseNotificationID("s oops")
	require.Error(t, err)

	_, err = parseNotificationID("u -1")
	require.Error(t, err)
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
