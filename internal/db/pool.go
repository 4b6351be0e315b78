// Package db wraps the Postgres connection pool used by every repository,
// with an embedded goose migration set and a circuit breaker guarding
// against cascading failures when Postgres is unreachable.
package db

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/sony/gobreaker"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Pool wraps a pgxpool.Pool behind a circuit breaker. Repositories never
// touch the pgxpool directly; everything routes through Exec/Query so a
// downed database fails fast instead of queueing goroutines behind
// connection-acquire timeouts.
type Pool struct {
	raw     *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
	log     *logging.Logger
}

// Open connects to Postgres, pings it, and returns a ready Pool. It does not
// run migrations; Migrate does that as a separate step.
func Open(ctx context.Context, dsn string, maxConns int32, log *logging.Logger) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "parsing postgres dsn")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	raw, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "connecting to postgres")
	}
	if err := raw.Ping(ctx); err != nil {
		raw.Close()
		return nil, errors.Wrap(err, errors.KindUnavailable, "pinging postgres")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Pool{raw: raw, breaker: breaker, log: log.WithComponent("db")}, nil
}

// Migrate applies every pending migration under migrations/.
func (p *Pool) Migrate(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, errors.KindInternal, "setting goose dialect")
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "opening migration connection")
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Wrap(err, errors.KindInternal, "applying migrations")
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *Pool) Close() {
	p.raw.Close()
}

// withBreaker routes a database operation through the circuit breaker,
// translating a tripped breaker into KindUnavailable so callers retry
// rather than treat it as a permanent failure.
func (p *Pool) withBreaker(fn func() (any, error)) (any, error) {
	result, err := p.breaker.Execute(fn)
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errors.Wrap(err, errors.KindUnavailable, "postgres circuit breaker open")
		}
		return nil, err
	}
	return result, nil
}

// Raw exposes the underlying pool for repositories that need pgx-specific
// features (batch, copy-from) not worth wrapping individually.
func (p *Pool) Raw() *pgxpool.Pool {
	return p.raw
}

// Exec runs a statement through the circuit breaker. Pool satisfies the
// Querier interface so repository methods that accept one can run either
// standalone against the pool or inside a caller-managed transaction.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	result, err := p.withBreaker(func() (any, error) {
		return p.raw.Exec(ctx, sql, args...)
	})
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return result.(pgconn.CommandTag), nil
}

// Query runs a multi-row query through the circuit breaker.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	result, err := p.withBreaker(func() (any, error) {
		return p.raw.Query(ctx, sql, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(pgx.Rows), nil
}

// QueryRow acquires a connection through the circuit breaker, so a downed
// database trips it at acquire time rather than only surfacing on the
// caller's eventual Scan, and returns a Row that releases the connection
// once scanned.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	result, err := p.withBreaker(func() (any, error) {
		return p.raw.Acquire(ctx)
	})
	if err != nil {
		return errRow{err: err}
	}
	conn := result.(*pgxpool.Conn)
	return &releasingRow{conn: conn, row: conn.QueryRow(ctx, sql, args...)}
}

// Begin starts a transaction through the circuit breaker.
func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	result, err := p.withBreaker(func() (any, error) {
		return p.raw.Begin(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(pgx.Tx), nil
}

// errRow reports an acquire failure on the first Scan, mirroring pgx's own
// "deferred error" Row behavior so callers don't need a separate error
// return from QueryRow.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// releasingRow wraps a Row obtained from a manually-acquired connection and
// releases that connection back to the pool once the caller scans it.
type releasingRow struct {
	conn *pgxpool.Conn
	row  pgx.Row
}

func (r *releasingRow) Scan(dest ...any) error {
	defer r.conn.Release()
	return r.row.Scan(dest...)
}
