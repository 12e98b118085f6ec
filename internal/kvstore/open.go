package kvstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	Backend      string
	SQLitePath   string
	BadgerPath   string
	RedisAddr    string
	RedisChannel string

	// DB and DSN are required for the postgres backend.
	DB  *sql.DB
	DSN string
}

// Open builds the backend named by opts.Backend and starts its change
// listener, if it has one, for the lifetime of ctx.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "memory", "":
		return NewMemory(), nil

	case "postgres":
		if opts.DB == nil {
			return nil, fmt.Errorf("postgres kv backend needs a database connection")
		}
		pg := NewPostgres(opts.DB)
		if opts.DSN != "" {
			if err := pg.Listen(ctx, opts.DSN); err != nil {
				return nil, err
			}
		}
		return pg, nil

	case "sqlite":
		return OpenSQLite(opts.SQLitePath)

	case "badger":
		return OpenBadger(opts.BadgerPath)

	case "redis":
		r, err := OpenRedis(opts.RedisAddr, opts.RedisChannel)
		if err != nil {
			return nil, err
		}
		if err := r.Listen(ctx); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
