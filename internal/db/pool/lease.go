package pool

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Lease is a checked-out connection. It is single-borrower: one request (or one
// maintenance task) uses it, then calls Release exactly once. Release is safe
// to call multiple times; only the first has effect.
type Lease struct {
	pool *Pool
	conn Conn
	// param is the tenant parameter value set at checkout; Sentinel for
	// maintenance leases.
	param string

	mu       sync.Mutex
	released bool
}

// Exec runs sql on the leased connection.
func (l *Lease) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return l.conn.Exec(ctx, sql, args...)
}

// Query runs sql on the leased connection.
func (l *Lease) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return l.conn.Query(ctx, sql, args...)
}

// QueryRow runs sql on the leased connection.
func (l *Lease) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return l.conn.QueryRow(ctx, sql, args...)
}

// Maintenance reports whether this lease holds the unset sentinel.
func (l *Lease) Maintenance() bool { return l.param == Sentinel }

// Release resets the tenant parameter to the sentinel and returns the
// connection to the pool. The reset runs on a detached context so it executes
// even when the request's context is already canceled. If the reset fails the
// connection is discarded: a connection with unknown parameter state must never
// serve another borrower.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.mu.Unlock()

	if l.conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := setTenantParameter(ctx, l.conn, Sentinel); err != nil {
		l.pool.logger.Warn("tenant parameter reset failed, discarding connection", "error", err)
		l.pool.discard(l.conn)
		return
	}
	l.pool.putIdle(l.conn)
}
