package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chucky-1/moods/internal/model"
	"github.com/chucky-1/moods/internal/repository"
	"github.com/stretchr/testify/require"
)

var errStorage = errors.New("storage is down")

// failingStorage rejects every write
type failingStorage struct {
	*repository.LocalStorage
}

func (failingStorage) Append(context.Context, model.Entry) error { return errStorage }

func (failingStorage) Remove(context.Context, int64) error { return errStorage }

// remoteStorage lets a test signal changes made by another process
type remoteStorage struct {
	*repository.LocalStorage
	changes chan struct{}
}

func (r *remoteStorage) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.changes:
			onChange()
		}
	}
}

// gatedStorage stops LoadAll after it has read the entries until the test releases it
type gatedStorage struct {
	*remoteStorage
	gated   atomic.Bool
	reading chan struct{}
	release chan struct{}
}

func (g *gatedStorage) LoadAll(ctx context.Context) ([]model.Entry, error) {
	entries, err := g.LocalStorage.LoadAll(ctx)
	if g.gated.Load() {
		g.reading <- struct{}{}
		<-g.release
	}
	return entries, err
}

type staticIdentity string

func (s staticIdentity) Owner() string { return string(s) }

func frozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestMoods(opts ...Option) *Moods {
	return NewMoods(repository.NewLocalStorage(), staticIdentity("demo@example.com"), opts...)
}

func TestMoods_AddIsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := newTestMoods()

	var added []int64
	for _, mood := range []model.Mood{model.Sad, model.Okay, model.Happy, model.Amazing} {
		entry, err := m.Add(ctx, mood, "")
		if err != nil {
			t.Fatal(err)
		}
		added = append(added, entry.ID)
	}

	all := m.All()
	require.Equal(t, len(added), len(all))
	for i := range all {
		require.Equal(t, added[len(added)-1-i], all[i].ID)
	}
	require.Equal(t, model.Amazing, all[0].Mood)
}

func TestMoods_AddTrimsNote(t *testing.T) {
	ctx := context.Background()
	m := newTestMoods()

	testTable := []struct {
		name   string
		note   string
		result string
	}{
		{name: "Surrounding spaces", note: "  hello  ", result: "hello"},
		{name: "Empty", note: "", result: ""},
		{name: "Blank", note: " \t\n ", result: ""},
		{name: "Inner spaces kept", note: " good  day ", result: "good  day"},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			entry, err := m.Add(ctx, model.Happy, testCase.note)
			require.NoError(t, err)
			require.Equal(t, testCase.result, entry.Note)
		})
	}
}

func TestMoods_AddFillsEntry(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	m := newTestMoods(WithClock(frozenClock(now)))

	entry, err := m.Add(context.Background(), model.Mood("bogus"), "note")
	require.NoError(t, err)
	require.Equal(t, model.Entry{
		ID:        now.UnixMilli(),
		Mood:      model.Mood("bogus"),
		Note:      "note",
		CreatedAt: now,
		Owner:     "demo@example.com",
	}, entry)
}

func TestMoods_IDsAreUniqueWithFrozenClock(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	m := newTestMoods(WithClock(frozenClock(now)))

	seen := make(map[int64]bool)
	var last int64
	for i := 0; i < 100; i++ {
		entry, err := m.Add(context.Background(), model.Okay, "")
		require.NoError(t, err)
		require.False(t, seen[entry.ID], "duplicate id %d", entry.ID)
		require.Greater(t, entry.ID, last)
		seen[entry.ID] = true
		last = entry.ID
	}
}

func TestMoods_IDsAreAboveLoadedEntries(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UnixMilli()
	repo := repository.NewLocalStorage(model.Entry{ID: future, Mood: model.Happy})
	m := NewMoods(repo, nil)
	require.NoError(t, m.Load(ctx))

	entry, err := m.Add(ctx, model.Sad, "")
	require.NoError(t, err)
	require.Equal(t, future+1, entry.ID)
	require.Equal(t, "", entry.Owner)
}

func TestMoods_Delete(t *testing.T) {
	ctx := context.Background()
	m := newTestMoods()

	first, err := m.Add(ctx, model.Happy, "first")
	require.NoError(t, err)
	second, err := m.Add(ctx, model.Sad, "second")
	require.NoError(t, err)

	deleted, err := m.Delete(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, []model.Entry{second}, m.All())

	deleted, err = m.Delete(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, deleted)
	require.Equal(t, []model.Entry{second}, m.All())
}

func TestMoods_DeleteUnknownDoesNotNotify(t *testing.T) {
	m := newTestMoods()

	calls := 0
	m.Subscribe(func([]model.Entry) { calls++ })

	deleted, err := m.Delete(context.Background(), 12345)
	require.NoError(t, err)
	require.False(t, deleted)
	require.Equal(t, 1, calls)
}

func TestMoods_SubscribeGetsCurrentSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMoods(repository.NewLocalStorage(repository.DemoMoods()...), nil)
	require.NoError(t, m.Load(ctx))

	var got [][]model.Entry
	cancel := m.Subscribe(func(entries []model.Entry) {
		got = append(got, entries)
	})
	require.Len(t, got, 1)
	require.Equal(t, repository.DemoMoods(), got[0])

	entry, err := m.Add(ctx, model.Terrible, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, entry, got[1][0])
	require.Len(t, got[1], 5)

	_, err = m.Delete(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, repository.DemoMoods(), got[2])

	cancel()
	cancel()
	_, err = m.Add(ctx, model.Happy, "")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestMoods_NotifiesInSubscriptionOrder(t *testing.T) {
	m := newTestMoods()

	var order []string
	m.Subscribe(func([]model.Entry) { order = append(order, "first") })
	cancelSecond := m.Subscribe(func([]model.Entry) { order = append(order, "second") })
	m.Subscribe(func([]model.Entry) { order = append(order, "third") })
	cancelSecond()
	order = nil

	_, err := m.Add(context.Background(), model.Okay, "")
	require.NoError(t, err)
	require.Equal(t, []string{"first", "third"}, order)
}

func TestMoods_ObserversCannotChangeSnapshot(t *testing.T) {
	m := newTestMoods()
	m.Subscribe(func(entries []model.Entry) {
		for i := range entries {
			entries[i].Note = "tampered"
		}
	})

	var seen string
	m.Subscribe(func(entries []model.Entry) {
		if len(entries) > 0 {
			seen = entries[0].Note
		}
	})

	_, err := m.Add(context.Background(), model.Okay, "kept")
	require.NoError(t, err)
	require.Equal(t, "kept", seen)
	require.Equal(t, "kept", m.All()[0].Note)
}

func TestMoods_ObserverCanCallStore(t *testing.T) {
	m := newTestMoods()

	var sizes []int
	m.Subscribe(func([]model.Entry) {
		sizes = append(sizes, len(m.All()))
	})

	_, err := m.Add(context.Background(), model.Okay, "")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, sizes)
}

func TestMoods_StorageErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := failingStorage{repository.NewLocalStorage(repository.DemoMoods()...)}
	m := NewMoods(repo, nil)
	require.NoError(t, m.Load(ctx))

	calls := 0
	m.Subscribe(func([]model.Entry) { calls++ })

	_, err := m.Add(ctx, model.Happy, "")
	require.ErrorIs(t, err, errStorage)

	deleted, err := m.Delete(ctx, repository.DemoMoods()[0].ID)
	require.ErrorIs(t, err, errStorage)
	require.False(t, deleted)

	require.Equal(t, repository.DemoMoods(), m.All())
	require.Equal(t, 1, calls)
}

func TestMoods_WatchAppliesRemoteChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &remoteStorage{
		LocalStorage: repository.NewLocalStorage(),
		changes:      make(chan struct{}),
	}
	m := NewMoods(repo, nil)

	snapshots := make(chan []model.Entry, 10)
	m.Subscribe(func(entries []model.Entry) { snapshots <- entries })
	<-snapshots

	done := make(chan error)
	go func() { done <- m.Watch(ctx) }()

	remote := []model.Entry{{ID: 2, Mood: model.Sad}, {ID: 1, Mood: model.Happy}}
	require.NoError(t, repo.LocalStorage.Append(ctx, remote[1]))
	require.NoError(t, repo.LocalStorage.Append(ctx, remote[0]))
	repo.changes <- struct{}{}
	require.Equal(t, remote, <-snapshots)

	// the same state again is not a change
	repo.changes <- struct{}{}
	require.NoError(t, repo.LocalStorage.Remove(ctx, 2))
	repo.changes <- struct{}{}
	require.Equal(t, remote[1:], <-snapshots)

	cancel()
	require.NoError(t, <-done)
	require.Empty(t, snapshots)
}

func TestMoods_ReloadDoesNotUndoLocalDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &gatedStorage{
		remoteStorage: &remoteStorage{LocalStorage: repository.NewLocalStorage(), changes: make(chan struct{})},
		reading:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	m := NewMoods(repo, nil)
	entry, err := m.Add(ctx, model.Sad, "")
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		last []model.Entry
	)
	m.Subscribe(func(entries []model.Entry) {
		mu.Lock()
		last = entries
		mu.Unlock()
	})

	go func() { _ = m.Watch(ctx) }()

	// the reload has read the entry and is stopped before applying it
	repo.gated.Store(true)
	repo.changes <- struct{}{}
	<-repo.reading
	repo.gated.Store(false)

	// reads are not blocked by storage I/O
	require.Equal(t, []model.Entry{entry}, m.All())

	deleted := make(chan error)
	go func() {
		_, err := m.Delete(ctx, entry.ID)
		deleted <- err
	}()
	select {
	case <-deleted:
		t.Fatal("delete overlapped a reload")
	case <-time.After(50 * time.Millisecond):
	}

	repo.release <- struct{}{}
	require.NoError(t, <-deleted)

	require.Empty(t, m.All())
	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, last)
}

func TestMoods_ConcurrentAddsAreDeliveredInOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestMoods()

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls int
		last  []model.Entry
	)
	m.Subscribe(func(entries []model.Entry) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		// the first change blocks the observer
		if call == 2 {
			close(entered)
			<-release
		}
		mu.Lock()
		last = entries
		mu.Unlock()
	})

	firstDone := make(chan error)
	go func() {
		_, err := m.Add(ctx, model.Happy, "first")
		firstDone <- err
	}()
	<-entered

	_, err := m.Add(ctx, model.Sad, "second")
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-firstDone)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, calls)
	require.Equal(t, m.All(), last)
	require.Len(t, last, 2)
}

func TestMoods_ObserverCanAddDuringNotification(t *testing.T) {
	ctx := context.Background()
	m := newTestMoods()

	var sizes []int
	m.Subscribe(func(entries []model.Entry) {
		sizes = append(sizes, len(entries))
		if len(entries) == 1 {
			_, err := m.Add(ctx, model.Okay, "follow up")
			require.NoError(t, err)
		}
	})

	_, err := m.Add(ctx, model.Happy, "")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, sizes)
	require.Len(t, m.All(), 2)
}
