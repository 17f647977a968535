package collector

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"git.backbone/corpix/stingray/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS hits (
	id          TEXT    NOT NULL,
	received_at INTEGER NOT NULL,
	remote_addr TEXT    NOT NULL,
	user_agent  TEXT    NOT NULL,
	referer     TEXT    NOT NULL,
	path        TEXT    NOT NULL,
	data        TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS hits_received_at ON hits (received_at);
`

// SQLiteSink stores hits in a SQLite database, beacon data is kept as a
// JSON object so it can be queried with the json functions.
type SQLiteSink struct {
	db *sql.DB
}

func (s *SQLiteSink) Write(ctx context.Context, hit Hit) error {
	data, err := json.Marshal(hit.Data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal hit data")
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO hits (id, received_at, remote_addr, user_agent, referer, path, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		hit.ID, hit.Time.UnixNano()/int64(time.Millisecond),
		hit.RemoteAddr, hit.UserAgent, hit.Referer, hit.Path,
		string(data),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert hit")
	}
	return nil
}

// Hits returns up to limit latest hits, newest first.
func (s *SQLiteSink) Hits(ctx context.Context, limit int) ([]Hit, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, received_at, remote_addr, user_agent, referer, path, data
		 FROM hits ORDER BY received_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query hits")
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			hit  Hit
			ms   int64
			data string
		)
		err = rows.Scan(&hit.ID, &ms, &hit.RemoteAddr, &hit.UserAgent, &hit.Referer, &hit.Path, &data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan hit")
		}
		err = json.Unmarshal([]byte(data), &hit.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal data of hit %q", hit.ID)
		}
		hit.Time = time.Unix(0, ms*int64(time.Millisecond)).UTC()
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite sink %q", path)
	}
	err = db.Ping()
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to ping sqlite sink %q", path)
	}
	_, err = db.Exec(sqliteSchema)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create hits schema")
	}

	return &SQLiteSink{db: db}, nil
}
