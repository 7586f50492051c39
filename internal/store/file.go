package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File keeps every transcript in one JSON document.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File store at path. The file is created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) FetchRecent(_ context.Context, limit int) ([]Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return nil, err
	}
	return newestFirst(items, limit), nil
}

func (f *File) Save(_ context.Context, t Transcript) error {
	return f.mutate(func(items []Transcript) []Transcript {
		return upsert(items, t)
	})
}

func (f *File) Update(_ context.Context, t Transcript) error {
	return f.mutate(func(items []Transcript) []Transcript {
		return upsert(items, t)
	})
}

func (f *File) Delete(_ context.Context, id string) error {
	return f.mutate(func(items []Transcript) []Transcript {
		out := items[:0]
		for _, item := range items {
			if item.ID != id {
				out = append(out, item)
			}
		}
		return out
	})
}

func (f *File) Find(_ context.Context, id string) (Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return Transcript{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return Transcript{}, ErrNotFound
}

func (f *File) mutate(apply func([]Transcript) []Transcript) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	return f.write(apply(items))
}

func (f *File) load() ([]Transcript, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transcripts %q: %w", f.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []Transcript
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode transcripts %q: %w", f.path, err)
	}
	return items, nil
}

func (f *File) write(items []Transcript) error {
	if items == nil {
		items = []Transcript{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcripts: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".transcripts-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write transcripts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replace transcripts %q: %w", f.path, err)
	}
	return nil
}

func upsert(items []Transcript, t Transcript) []Transcript {
	for i, item := range items {
		if item.ID == t.ID {
			items[i] = merge(item, t)
			return items
		}
	}
	return append(items, t)
}
