package repository

import (
	"context"
	"sort"

	"github.com/chucky-1/moods/internal/model"
)

// Moods is the backing storage of the mood store.
// LoadAll returns entries newest first
type Moods interface {
	LoadAll(ctx context.Context) ([]model.Entry, error)
	Append(ctx context.Context, entry model.Entry) error
	Remove(ctx context.Context, id int64) error
	// Watch calls onChange every time the storage may have been changed by someone
	// else. The new state is read with LoadAll. It blocks until ctx is done
	Watch(ctx context.Context, onChange func()) error
}

// newestFirst orders entries by descending id. Ids grow with creation order
func newestFirst(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ID > entries[j].ID
	})
}
