package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/abx-learn/backend/internal/logging"
)

// NotifyChannel is the postgres channel key changes are announced on.
const NotifyChannel = "kv_changes"

type changeMessage struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Postgres stores values in the kv_entries table. Writes are announced with
// pg_notify; Listen delivers changes made by other processes.
type Postgres struct {
	hub

	db     *sql.DB
	origin string

	listener *pq.Listener
}

// NewPostgres uses db, which must already have the kv_entries table
// (see database.Migrate).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, origin: uuid.New().String()}
}

func (p *Postgres) Get(key string) (string, bool, error) {
	var value string
	err := p.db.QueryRow(`SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(key, value string) error {
	_, err := p.db.Exec(
		`INSERT INTO kv_entries (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	p.announce(key)
	return nil
}

func (p *Postgres) Remove(key string) error {
	if _, err := p.db.Exec(`DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	p.announce(key)
	return nil
}

// announce is best effort; a lost notification only delays other readers.
func (p *Postgres) announce(key string) {
	payload, err := json.Marshal(changeMessage{Key: key, Origin: p.origin})
	if err != nil {
		return
	}
	if _, err := p.db.Exec(`SELECT pg_notify($1, $2)`, NotifyChannel, string(payload)); err != nil {
		l := logging.WithComponent("kvstore")
		l.Warn().Err(err).Str("key", key).Msg("pg_notify failed")
	}
}

// Listen subscribes to NotifyChannel on a dedicated connection and forwards
// keys written by other processes until ctx is done.
func (p *Postgres) Listen(ctx context.Context, dsn string) error {
	log := logging.WithComponent("kvstore")

	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn().Err(err).Int("event", int(ev)).Msg("postgres listener event")
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	p.listener = listener

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// nil after a reconnect; nothing to replay.
				if n == nil {
					continue
				}
				var msg changeMessage
				if err := json.Unmarshal([]byte(n.Extra), &msg); err != nil {
					log.Warn().Err(err).Msg("bad kv change payload")
					continue
				}
				if msg.Origin == p.origin {
					continue
				}
				p.publish(msg.Key)
			}
		}
	}()

	return nil
}

func (p *Postgres) Close() error {
	if p.listener != nil {
		return p.listener.Close()
	}
	return nil
}
