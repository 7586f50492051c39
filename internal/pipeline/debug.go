package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/scribe/internal/config"
	"github.com/rbright/scribe/internal/speech"
)

// createDebugFile creates a timestamped debug artifact under the state dir.
func createDebugFile(prefix, extension string, now time.Time) (*os.File, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, now.Format("20060102-150405.000"), extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// dumpEvent appends ev to the run's event dump as one JSON line.
func (r *Recognizer) dumpEvent(rn *Run, ev speech.Event) {
	if rn.dump == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Debug("encode event dump", "error", err.Error())
		return
	}
	if _, err := rn.dump.Write(append(data, '\n')); err != nil {
		r.logger.Debug("write event dump", "error", err.Error())
	}
}

func closeDump(rn *Run) {
	if rn.dump != nil {
		_ = rn.dump.Close()
		rn.dump = nil
	}
}
