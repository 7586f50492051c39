package store

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound reports a lookup of an unknown transcript id.
var ErrNotFound = errors.New("transcript not found")

// Gateway is the CRUD surface for finished transcripts.
//
// FetchRecent returns newest first; a missing backing store is an empty list.
// Update with an unknown id behaves like Save. Delete of an unknown id is a
// no-op.
type Gateway interface {
	FetchRecent(ctx context.Context, limit int) ([]Transcript, error)
	Save(ctx context.Context, t Transcript) error
	Update(ctx context.Context, t Transcript) error
	Delete(ctx context.Context, id string) error
}

// Finder looks up one transcript by id.
type Finder interface {
	Find(ctx context.Context, id string) (Transcript, error)
}

// Store is a Gateway that can also look up by id.
type Store interface {
	Gateway
	Finder
}

// Find looks up id through g, scanning all records when g is not a Finder.
func Find(ctx context.Context, g Gateway, id string) (Transcript, error) {
	if finder, ok := g.(Finder); ok {
		return finder.Find(ctx, id)
	}
	all, err := g.FetchRecent(ctx, 0)
	if err != nil {
		return Transcript{}, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, nil
		}
	}
	return Transcript{}, ErrNotFound
}

// newestFirst sorts by CreatedAt descending with id as tie-breaker and
// truncates to limit when limit > 0.
func newestFirst(items []Transcript, limit int) []Transcript {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
