package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS track_stats (
	track_id         TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	path             TEXT NOT NULL DEFAULT '',
	times_played     BIGINT NOT NULL DEFAULT 0,
	times_skipped    BIGINT NOT NULL DEFAULT 0,
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	play_seconds     DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_played      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectEntry = `
SELECT track_id, name, path, times_played, times_skipped,
       duration_seconds, play_seconds, last_played
FROM track_stats`

const upsertEntry = `
INSERT INTO track_stats (track_id, name, path, times_played, times_skipped,
                         duration_seconds, play_seconds, last_played)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (track_id) DO UPDATE SET
	name = EXCLUDED.name,
	path = EXCLUDED.path,
	times_played = EXCLUDED.times_played,
	times_skipped = EXCLUDED.times_skipped,
	duration_seconds = EXCLUDED.duration_seconds,
	play_seconds = EXCLUDED.play_seconds,
	last_played = EXCLUDED.last_played`

// querier is the part of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps entries in the track_stats table.
type PostgresStore struct {
	db    querier
	close func()
}

// OpenPostgresStore connects to dsn and creates the table if needed.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect stats database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping stats database: %w", err)
	}

	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create track_stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, trackID string) (Entry, bool, error) {
	row := s.db.QueryRow(ctx, selectEntry+" WHERE track_id = $1", trackID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load stats for %s: %w", trackID, err)
	}
	return e, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, upsertEntry,
		e.TrackID, e.Name, e.Path,
		int64(e.TimesPlayed), int64(e.TimesSkipped),
		e.DurationSeconds, e.PlaySeconds, e.LastPlayed,
	)
	if err != nil {
		return fmt.Errorf("save stats for %s: %w", e.TrackID, err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Query(ctx, selectEntry+" ORDER BY times_played DESC, name")
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e               Entry
		played, skipped int64
	)
	err := row.Scan(&e.TrackID, &e.Name, &e.Path, &played, &skipped,
		&e.DurationSeconds, &e.PlaySeconds, &e.LastPlayed)
	if err != nil {
		return Entry{}, err
	}
	e.TimesPlayed = uint32(played)
	e.TimesSkipped = uint32(skipped)
	return e, nil
}
