package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/chucky-1/moods/internal/model"
)

const changesChannel = "moods_changed"

const schema = `CREATE TABLE IF NOT EXISTS moods (
	id         BIGINT PRIMARY KEY,
	mood       TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	owner      TEXT NOT NULL DEFAULT ''
)`

type Postgres struct {
	conn *pgxpool.Pool
}

func NewPostgres(conn *pgxpool.Pool) *Postgres {
	return &Postgres{
		conn: conn,
	}
}

// Migrate creates the moods table if it doesn't exist
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("repository.Postgres, migrate error: %w", err)
	}
	return nil
}

func (p *Postgres) LoadAll(ctx context.Context) ([]model.Entry, error) {
	query := `SELECT id, mood, note, created_at, owner FROM moods ORDER BY id DESC`
	rows, err := p.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.Postgres, load moods error: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		var (
			entry model.Entry
			mood  string
		)
		if err = rows.Scan(&entry.ID, &mood, &entry.Note, &entry.CreatedAt, &entry.Owner); err != nil {
			return nil, fmt.Errorf("repository.Postgres, scan mood error: %w", err)
		}
		entry.Mood = model.Mood(mood)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.Postgres, rows error: %w", err)
	}
	return entries, nil
}

func (p *Postgres) Append(ctx context.Context, entry model.Entry) error {
	query := `INSERT INTO moods (id, mood, note, created_at, owner) VALUES ($1, $2, $3, $4, $5)`
	_, err := p.conn.Exec(ctx, query, entry.ID, string(entry.Mood), entry.Note, entry.CreatedAt, entry.Owner)
	if err != nil {
		return fmt.Errorf("repository.Postgres, append mood error: %w", err)
	}
	return p.notify(ctx)
}

func (p *Postgres) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM moods WHERE id=$1`
	commandTag, err := p.conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("repository.Postgres, remove mood error: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return nil
	}
	return p.notify(ctx)
}

func (p *Postgres) notify(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, `SELECT pg_notify($1, '')`, changesChannel); err != nil {
		return fmt.Errorf("repository.Postgres, notify error: %w", err)
	}
	return nil
}

// Watch holds one pooled connection for LISTEN until ctx is done
func (p *Postgres) Watch(ctx context.Context, onChange func()) error {
	conn, err := p.conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("repository.Postgres, acquire listener error: %w", err)
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+changesChannel); err != nil {
		return fmt.Errorf("repository.Postgres, listen error: %w", err)
	}

	for {
		if _, err = conn.Conn().WaitForNotification(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("repository.Postgres, wait for notification error: %w", err)
		}
		onChange()
	}
}
