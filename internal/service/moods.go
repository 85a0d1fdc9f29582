package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chucky-1/moods/internal/model"
	"github.com/chucky-1/moods/internal/repository"
)

// Observer receives the full ordered snapshot, newest entry first
type Observer func([]model.Entry)

type subscriber struct {
	id int
	fn Observer
}

// Moods owns the ordered collection of entries and notifies observers of every change.
//
// Observers receive snapshots in the order the changes were made. Without concurrent
// callers they are called before the mutating call returns. They must not block
type Moods struct {
	repo     repository.Moods
	identity Identity
	now      func() time.Time

	// writeMu serializes storage writes and reloads, mu guards the fields below
	writeMu sync.Mutex

	mu          sync.Mutex
	entries     []model.Entry
	lastID      int64
	subscribers []subscriber
	nextSubID   int
	pending     []delivery
	delivering  bool
}

// delivery is one snapshot waiting to be handed to the observers subscribed at the time of the change
type delivery struct {
	snapshot  []model.Entry
	observers []Observer
}

type Option func(*Moods)

// WithClock replaces time.Now as the source of creation times and ids
func WithClock(now func() time.Time) Option {
	return func(m *Moods) {
		m.now = now
	}
}

func NewMoods(repo repository.Moods, identity Identity, opts ...Option) *Moods {
	m := &Moods{
		repo:     repo,
		identity: identity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the snapshot with the content of the storage
func (m *Moods) Load(ctx context.Context) error {
	m.writeMu.Lock()
	entries, err := m.repo.LoadAll(ctx)
	if err != nil {
		m.writeMu.Unlock()
		return fmt.Errorf("service.Moods couldn't load entries: %w", err)
	}
	m.apply(entries)
	m.writeMu.Unlock()

	m.deliver()
	return nil
}

// Subscribe calls fn with the current snapshot and then on every change.
// The returned function cancels the subscription
func (m *Moods) Subscribe(fn Observer) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	m.pending = append(m.pending, delivery{snapshot: m.snapshot(), observers: []Observer{fn}})
	m.mu.Unlock()

	m.deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.unsubscribe(id)
		})
	}
}

func (m *Moods) unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subscribers {
		if m.subscribers[i].id == id {
			m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// Add records a new entry at the head of the collection.
// The mood is stored as given, validation belongs to the caller.
// An error is returned only when the storage rejects the entry, the snapshot is untouched then
func (m *Moods) Add(ctx context.Context, mood model.Mood, note string) (model.Entry, error) {
	m.writeMu.Lock()
	// storages keep milliseconds, a reloaded entry must compare equal
	now := m.now().Truncate(time.Millisecond)
	m.mu.Lock()
	id := m.nextID(now)
	m.mu.Unlock()

	entry := model.Entry{
		ID:        id,
		Mood:      mood,
		Note:      strings.TrimSpace(note),
		CreatedAt: now,
		Owner:     m.owner(),
	}

	if err := m.repo.Append(ctx, entry); err != nil {
		m.writeMu.Unlock()
		return model.Entry{}, fmt.Errorf("service.Moods couldn't append entry: %w", err)
	}

	m.mu.Lock()
	m.lastID = entry.ID
	m.entries = append([]model.Entry{entry}, m.entries...)
	m.enqueue()
	m.mu.Unlock()
	m.writeMu.Unlock()

	logrus.Debugf("mood %d added: %s", entry.ID, entry.Mood)
	m.deliver()
	return entry, nil
}

// Delete removes the entry with the id. It reports false when there is no such entry
func (m *Moods) Delete(ctx context.Context, id int64) (bool, error) {
	m.writeMu.Lock()
	m.mu.Lock()
	idx := m.index(id)
	m.mu.Unlock()
	if idx == -1 {
		m.writeMu.Unlock()
		return false, nil
	}

	if err := m.repo.Remove(ctx, id); err != nil {
		m.writeMu.Unlock()
		return false, fmt.Errorf("service.Moods couldn't remove entry %d: %w", id, err)
	}

	// entries only change under writeMu, idx is still valid
	m.mu.Lock()
	m.entries = append(m.entries[:idx:idx], m.entries[idx+1:]...)
	m.enqueue()
	m.mu.Unlock()
	m.writeMu.Unlock()

	logrus.Debugf("mood %d deleted", id)
	m.deliver()
	return true, nil
}

// All returns the current snapshot
func (m *Moods) All() []model.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Watch reloads the snapshot every time the storage reports a change made by another
// process, until ctx is done. A reload never overlaps a local write
func (m *Moods) Watch(ctx context.Context) error {
	logrus.Info("mood store started watching remote changes")
	err := m.repo.Watch(ctx, func() {
		if err := m.Load(ctx); err != nil && ctx.Err() == nil {
			logrus.Errorf("mood store couldn't apply remote change: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("service.Moods watch stopped: %w", err)
	}
	logrus.Infof("mood store stopped watching remote changes: %v", ctx.Err())
	return nil
}

// apply replaces the snapshot and queues a notification if anything changed.
// The caller holds writeMu
func (m *Moods) apply(entries []model.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sameEntries(m.entries, entries) {
		return
	}
	m.entries = make([]model.Entry, len(entries))
	copy(m.entries, entries)
	for _, e := range entries {
		if e.ID > m.lastID {
			m.lastID = e.ID
		}
	}
	m.enqueue()
}

// enqueue queues the current snapshot for the current observers. The caller holds mu
func (m *Moods) enqueue() {
	m.pending = append(m.pending, delivery{snapshot: m.snapshot(), observers: m.observers()})
}

// deliver hands queued snapshots to observers in order. Only one goroutine delivers at a
// time, a call made while another delivery runs returns and leaves its snapshot to it
func (m *Moods) deliver() {
	m.mu.Lock()
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true
	for len(m.pending) > 0 {
		d := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		notify(d.observers, d.snapshot)
		m.mu.Lock()
	}
	m.pending = nil
	m.delivering = false
	m.mu.Unlock()
}

func (m *Moods) index(id int64) int {
	for i := range m.entries {
		if m.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID derives the id from the wall clock but never repeats or goes back
func (m *Moods) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	return id
}

func (m *Moods) owner() string {
	if m.identity == nil {
		return ""
	}
	return m.identity.Owner()
}

func (m *Moods) snapshot() []model.Entry {
	out := make([]model.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Moods) observers() []Observer {
	out := make([]Observer, 0, len(m.subscribers))
	for _, s := range m.subscribers {
		out = append(out, s.fn)
	}
	return out
}

// notify hands every observer its own copy of the snapshot
func notify(observers []Observer, snapshot []model.Entry) {
	for i, fn := range observers {
		if i > 0 {
			snapshot = append([]model.Entry(nil), snapshot...)
		}
		fn(snapshot)
	}
}

func sameEntries(a, b []model.Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Mood != b[i].Mood || a[i].Note != b[i].Note ||
			a[i].Owner != b[i].Owner || !a[i].CreatedAt.Equal(b[i].CreatedAt) {
			return false
		}
	}
	return true
}
