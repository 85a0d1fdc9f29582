package repository

import (
	"context"
	"sync"
	"time"

	"github.com/chucky-1/moods/internal/model"
)

const demoOwner = "demo@example.com"

// LocalStorage keeps entries in memory. Nothing survives a restart
type LocalStorage struct {
	mu      sync.RWMutex
	entries []model.Entry
}

func NewLocalStorage(seed ...model.Entry) *LocalStorage {
	entries := make([]model.Entry, len(seed))
	copy(entries, seed)
	newestFirst(entries)
	return &LocalStorage{
		entries: entries,
	}
}

func (l *LocalStorage) LoadAll(_ context.Context) ([]model.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Entry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

func (l *LocalStorage) Append(_ context.Context, entry model.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]model.Entry{entry}, l.entries...)
	return nil
}

func (l *LocalStorage) Remove(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Watch never reports changes: only this process writes to local storage
func (l *LocalStorage) Watch(ctx context.Context, _ func()) error {
	<-ctx.Done()
	return nil
}

// DemoMoods returns the entries a fresh installation starts with, newest first
func DemoMoods() []model.Entry {
	return []model.Entry{
		{
			ID:        4,
			Mood:      model.Amazing,
			Note:      "Had an amazing day at school! Learned so much.",
			CreatedAt: time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local),
			Owner:     demoOwner,
		},
		{
			ID:        3,
			Mood:      model.Happy,
			Note:      "Finished my project ahead of schedule!",
			CreatedAt: time.Date(2024, 1, 14, 10, 15, 0, 0, time.Local),
			Owner:     demoOwner,
		},
		{
			ID:        2,
			Mood:      model.Okay,
			Note:      "Just a regular day, nothing special.",
			CreatedAt: time.Date(2024, 1, 13, 16, 45, 0, 0, time.Local),
			Owner:     demoOwner,
		},
		{
			ID:        1,
			Mood:      model.Sad,
			Note:      "Feeling a bit down today, but tomorrow will be better.",
			CreatedAt: time.Date(2024, 1, 12, 9, 20, 0, 0, time.Local),
			Owner:     demoOwner,
		},
	}
}
