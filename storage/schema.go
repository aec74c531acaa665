package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"twitch-chat-archiver/model"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateTables создаёт таблицы adminlog и chanlog, если их ещё нет.
func CreateTables(ctx context.Context, db execer, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := db.Exec(dbCtx, `
create table if not exists adminlog (
  id uuid primary key,
  user_id int,
  username varchar,
  user_msg varchar,
  timestamp timestamp with time zone
);`); err != nil {
		return fmt.Errorf("create table adminlog: %w", err)
	}

	if _, err := db.Exec(dbCtx, `
create table if not exists chanlog (
  id uuid primary key,
  command varchar,
  target varchar,
  user_id int,
  user_type varchar,
  username varchar,
  sub_count int,
  system_msg varchar,
  user_msg varchar,
  timestamp timestamp with time zone
);`); err != nil {
		return fmt.Errorf("create table chanlog: %w", err)
	}

	return nil
}

func queueAdmin(batch *pgx.Batch, w model.Whisper) {
	batch.Queue(`
insert into adminlog (
  id, user_id, username, user_msg, timestamp
) values ($1, $2, $3, $4, $5);
`, uuid.New(), w.UserID, w.Username, w.Text, w.Timestamp.UTC())
}
