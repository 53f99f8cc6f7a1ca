// Package pool implements the bounded database connection pool for the auth
// plane. Every connection handed out carries a deterministic current-tenant
// parameter: tenant leases have it set to the request's tenant before handoff,
// maintenance leases have it set to the unset sentinel. Release always resets
// the parameter; a connection whose reset fails is discarded, never recycled,
// because recycling it could leak one tenant's row visibility into the next
// request that borrows it.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tenant-auth-plane/internal/metrics"
	"tenant-auth-plane/internal/platform/ids"
)

// TenantParameter is the connection-scoped Postgres setting consulted by the
// row isolation policies.
const TenantParameter = "app.current_tenant"

// Sentinel is the explicit "unset" value of the tenant parameter. Row isolation
// policies treat it as the privileged maintenance state; request-serving code
// can only reach it through AcquireMaintenance.
const Sentinel = ""

var (
	// ErrPoolExhausted is returned when no connection could be acquired within
	// the bounded retry limit.
	ErrPoolExhausted = errors.New("pool: exhausted")
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("pool: closed")

	// errSaturated is the retryable pre-retry form of ErrPoolExhausted.
	errSaturated = errors.New("pool: all connections busy")
)

// releaseTimeout bounds the parameter reset on release. The reset runs on a
// detached context: request cancellation must not be able to skip it.
const releaseTimeout = 5 * time.Second

// Querier is the query surface handlers and repositories see on a lease.
// *pgx.Conn satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a raw pooled connection.
type Conn interface {
	Querier
	Close(ctx context.Context) error
	IsClosed() bool
}

// Dialer opens a new database connection. Injected in tests.
type Dialer func(ctx context.Context) (Conn, error)

// Config controls pool behavior.
type Config struct {
	// DSN is the Postgres connection string. Unused when a custom Dialer is given.
	DSN string
	// MaxConns bounds the number of open connections (leased plus idle).
	MaxConns int
	// IdleTTL is how long a connection may sit idle before the sweep closes it.
	IdleTTL time.Duration
	// SweepInterval is how often the idle sweep runs. Zero disables the sweep.
	SweepInterval time.Duration
	// AcquireRetries bounds how many times an acquisition is retried with
	// backoff before surfacing ErrPoolExhausted.
	AcquireRetries int
}

type pooledConn struct {
	conn      Conn
	idleSince time.Time
}

// Pool is a bounded, reusable set of database connections with deterministic
// tenant-parameter state on checkout and release.
type Pool struct {
	cfg    Config
	dial   Dialer
	logger *slog.Logger

	mu     sync.Mutex
	idle   []*pooledConn
	open   int
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	sweepDone chan struct{}
}

// New returns a pool that dials Postgres via pgx using cfg.DSN.
func New(cfg Config, logger *slog.Logger) *Pool {
	dial := func(ctx context.Context) (Conn, error) {
		return pgx.Connect(ctx, cfg.DSN)
	}
	return NewWithDialer(cfg, dial, logger)
}

// NewWithDialer returns a pool using the given dialer. Used by tests and by
// callers that need custom connection setup.
func NewWithDialer(cfg Config, dial Dialer, logger *slog.Logger) *Pool {
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		cfg:       cfg,
		dial:      dial,
		logger:    logger,
		done:      make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go p.runSweep()
	} else {
		close(p.sweepDone)
	}
	return p
}

// AcquireTenant checks out a connection with the current-tenant parameter set
// to tenant. The returned lease is only visible to rows of that tenant under
// the row isolation policies.
func (p *Pool) AcquireTenant(ctx context.Context, tenant ids.TenantID) (*Lease, error) {
	if tenant.IsZero() {
		return nil, errors.New("pool: tenant lease requires a non-zero tenant id")
	}
	return p.acquire(ctx, tenant.String())
}

// AcquireMaintenance checks out a connection with the parameter explicitly set
// to the unset sentinel. Such connections see all tenants' rows and must never
// be handed to request business handlers.
func (p *Pool) AcquireMaintenance(ctx context.Context) (*Lease, error) {
	return p.acquire(ctx, Sentinel)
}

func (p *Pool) acquire(ctx context.Context, param string) (*Lease, error) {
	op := func() (*Lease, error) {
		c, err := p.checkout(ctx)
		if err != nil {
			if errors.Is(err, ErrPoolClosed) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if err := setTenantParameter(ctx, c, param); err != nil {
			// Parameter state is unknown; the connection must not circulate.
			p.discard(c)
			return nil, fmt.Errorf("pool: set tenant parameter: %w", err)
		}
		return &Lease{pool: p, conn: c, param: param}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond

	lease, err := backoff.RetryWithData(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.AcquireRetries)), ctx))
	if err != nil {
		if errors.Is(err, errSaturated) {
			metrics.PoolExhausted.Inc()
			return nil, ErrPoolExhausted
		}
		return nil, err
	}
	return lease, nil
}

// checkout returns an open connection without any parameter guarantees; acquire
// is responsible for setting the parameter before handoff.
func (p *Pool) checkout(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	for len(p.idle) > 0 {
		pc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if pc.conn.IsClosed() {
			p.open--
			continue
		}
		p.updateGauges()
		p.mu.Unlock()
		return pc.conn, nil
	}
	if p.open >= p.cfg.MaxConns {
		p.mu.Unlock()
		return nil, errSaturated
	}
	p.open++
	p.updateGauges()
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		p.mu.Lock()
		p.open--
		p.updateGauges()
		p.mu.Unlock()
		return nil, fmt.Errorf("pool: dial: %w", err)
	}
	return c, nil
}

// putIdle returns a connection whose parameter was successfully reset.
func (p *Pool) putIdle(c Conn) {
	p.mu.Lock()
	if p.closed {
		p.open--
		p.updateGauges()
		p.mu.Unlock()
		closeDetached(c)
		return
	}
	p.idle = append(p.idle, &pooledConn{conn: c, idleSince: time.Now()})
	p.updateGauges()
	p.mu.Unlock()
}

// discard closes a connection and removes it from the pool's accounting.
func (p *Pool) discard(c Conn) {
	p.mu.Lock()
	p.open--
	p.updateGauges()
	p.mu.Unlock()
	metrics.PoolDiscarded.Inc()
	closeDetached(c)
}

// Close stops the sweep and closes all idle connections. Leased connections are
// closed as they are released.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.sweepDone

	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	p.updateGauges()
	p.mu.Unlock()

	for _, pc := range idle {
		closeDetached(pc.conn)
	}
}

// Ping checks out a maintenance connection and runs a trivial query.
func (p *Pool) Ping(ctx context.Context) error {
	lease, err := p.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	_, err = lease.Exec(ctx, "SELECT 1")
	return err
}

// Stats returns the number of open and idle connections.
func (p *Pool) Stats() (open, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open, len(p.idle)
}

func (p *Pool) runSweep() {
	defer close(p.sweepDone)
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := p.sweepIdle(time.Now()); n > 0 {
				p.logger.Debug("closed idle connections", "count", n)
			}
		case <-p.done:
			return
		}
	}
}

// sweepIdle closes idle connections older than IdleTTL and returns how many.
func (p *Pool) sweepIdle(now time.Time) int {
	p.mu.Lock()
	var keep []*pooledConn
	var expired []*pooledConn
	for _, pc := range p.idle {
		if p.cfg.IdleTTL > 0 && now.Sub(pc.idleSince) >= p.cfg.IdleTTL {
			expired = append(expired, pc)
		} else {
			keep = append(keep, pc)
		}
	}
	p.idle = keep
	p.open -= len(expired)
	p.updateGauges()
	p.mu.Unlock()

	for _, pc := range expired {
		closeDetached(pc.conn)
	}
	return len(expired)
}

// updateGauges must be called with p.mu held.
func (p *Pool) updateGauges() {
	metrics.PoolOpen.Set(float64(p.open))
	metrics.PoolIdle.Set(float64(len(p.idle)))
}

func setTenantParameter(ctx context.Context, c Conn, value string) error {
	_, err := c.Exec(ctx, "select set_config($1, $2, false)", TenantParameter, value)
	return err
}

func closeDetached(c Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	_ = c.Close(ctx)
}
