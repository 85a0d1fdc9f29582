package repository

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chucky-1/moods/internal/model"
)

type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the Firestore database of the project
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) moods() *firestore.CollectionRef {
	return f.client.Collection(moodsCollection)
}

func (f *Firestore) newestFirst() firestore.Query {
	return f.moods().OrderBy("id", firestore.Desc)
}

func (f *Firestore) LoadAll(ctx context.Context) ([]model.Entry, error) {
	iter := f.newestFirst().Documents(ctx)
	defer iter.Stop()

	entries, err := decodeAll(iter)
	if err != nil {
		return nil, fmt.Errorf("firestore LoadAll: %w", err)
	}
	return entries, nil
}

func (f *Firestore) Append(ctx context.Context, entry model.Entry) error {
	_, err := f.moods().Doc(strconv.FormatInt(entry.ID, 10)).Create(ctx, entry)
	if err != nil {
		return fmt.Errorf("firestore Append: %w", err)
	}
	return nil
}

func (f *Firestore) Remove(ctx context.Context, id int64) error {
	_, err := f.moods().Doc(strconv.FormatInt(id, 10)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore Remove: %w", err)
	}
	return nil
}

// Watch listens to query snapshots. The first snapshot is the current state
func (f *Firestore) Watch(ctx context.Context, onChange func()) error {
	snapshots := f.newestFirst().Snapshots(ctx)
	defer snapshots.Stop()

	for {
		if _, err := snapshots.Next(); err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("firestore Watch: %w", err)
		}
		onChange()
	}
}

func decodeAll(iter *firestore.DocumentIterator) ([]model.Entry, error) {
	entries := make([]model.Entry, 0)
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, err
		}

		var entry model.Entry
		if err := snap.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("decode mood %s: %w", snap.Ref.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
