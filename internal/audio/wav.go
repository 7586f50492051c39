package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const wavHeaderSize = 44

// WAVFile writes capture-format PCM to a RIFF/WAVE file. Sizes in the header
// are patched on Close.
type WAVFile struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	data   int64
	closed bool
}

// CreateWAV creates path (and its parent directory) and writes a provisional
// header. An existing file is never overwritten; the error then matches
// os.ErrExist.
func CreateWAV(path string) (*WAVFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	w := &WAVFile{f: f, path: path}
	if err := w.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the file location.
func (w *WAVFile) Path() string {
	return w.path
}

// Write appends raw PCM samples.
func (w *WAVFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	n, err := w.f.Write(p)
	w.data += int64(n)
	return n, err
}

// DataBytes reports how many PCM bytes were written.
func (w *WAVFile) DataBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data
}

// Close finalizes the header and closes the file. Calling Close twice is a no-op.
func (w *WAVFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	headerErr := w.writeHeader()
	return errors.Join(headerErr, w.f.Close())
}

func (w *WAVFile) writeHeader() error {
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek recording header: %w", err)
	}
	if _, err := w.f.Write(wavHeader(w.data)); err != nil {
		return fmt.Errorf("write recording header: %w", err)
	}
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek recording end: %w", err)
	}
	return nil
}

func wavHeader(dataBytes int64) []byte {
	const blockAlign = Channels * BitsPerSample / 8
	const byteRate = SampleRate * blockAlign

	h := make([]byte, wavHeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+dataBytes))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], Channels)
	binary.LittleEndian.PutUint32(h[24:], SampleRate)
	binary.LittleEndian.PutUint32(h[28:], byteRate)
	binary.LittleEndian.PutUint16(h[32:], blockAlign)
	binary.LittleEndian.PutUint16(h[34:], BitsPerSample)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataBytes))
	return h
}

// PCM16 is decoded 16-bit little-endian PCM.
type PCM16 struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// ReadWAV decodes a 16-bit PCM RIFF/WAVE file. Unknown chunks are skipped.
func ReadWAV(path string) (PCM16, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PCM16{}, fmt.Errorf("read wav: %w", err)
	}
	return decodeWAV(raw)
}

func decodeWAV(raw []byte) (PCM16, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return PCM16{}, errors.New("not a RIFF/WAVE file")
	}

	var out PCM16
	var haveFormat bool
	for pos := 12; pos+8 <= len(raw); {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4:]))
		body := raw[pos+8:]
		if size > len(body) {
			size = len(body)
		}
		body = body[:size]

		switch id {
		case "fmt ":
			if size < 16 {
				return PCM16{}, errors.New("wav fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(body[0:]); format != 1 {
				return PCM16{}, fmt.Errorf("unsupported wav format %d", format)
			}
			if bits := binary.LittleEndian.Uint16(body[14:]); bits != 16 {
				return PCM16{}, fmt.Errorf("unsupported wav bit depth %d", bits)
			}
			out.Channels = int(binary.LittleEndian.Uint16(body[2:]))
			out.SampleRate = int(binary.LittleEndian.Uint32(body[4:]))
			haveFormat = true
		case "data":
			if !haveFormat {
				return PCM16{}, errors.New("wav data before fmt chunk")
			}
			out.Samples = make([]int16, size/2)
			for i := range out.Samples {
				out.Samples[i] = int16(binary.LittleEndian.Uint16(body[2*i:]))
			}
			if out.Channels <= 0 || out.SampleRate <= 0 {
				return PCM16{}, errors.New("wav format has no channels or rate")
			}
			return out, nil
		}
		// chunks are word aligned
		pos += 8 + size + size%2
	}
	return PCM16{}, errors.New("wav has no data chunk")
}
