package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tenant-auth-plane/internal/platform/ids"
)

// fakeConn records every tenant-parameter value written to it.
type fakeConn struct {
	mu        sync.Mutex
	params    []string
	failExecs int // fail this many upcoming Execs
	closed    bool
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExecs > 0 {
		f.failExecs--
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	if len(args) == 2 {
		if v, ok := args[1].(string); ok {
			f.params = append(f.params, v)
		}
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (f *fakeConn) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) writtenParams() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.params))
	copy(out, f.params)
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	next  []*fakeConn // preloaded conns; when exhausted, fresh ones are made
}

func (d *fakeDialer) dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var c *fakeConn
	if len(d.next) > 0 {
		c = d.next[0]
		d.next = d.next[1:]
	} else {
		c = &fakeConn{}
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func newTestPool(t *testing.T, cfg Config, d *fakeDialer) *Pool {
	t.Helper()
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 2
	}
	p := NewWithDialer(cfg, d.dial, nil)
	t.Cleanup(p.Close)
	return p
}

func TestAcquireTenant_SetsParameterOnCheckout(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{}, d)
	tenant := ids.NewTenantID()

	lease, err := p.AcquireTenant(context.Background(), tenant)
	if err != nil {
		t.Fatalf("AcquireTenant: %v", err)
	}
	defer lease.Release()

	params := d.conns[0].writtenParams()
	if len(params) != 1 || params[0] != tenant.String() {
		t.Errorf("parameter writes = %v, want [%s]", params, tenant)
	}
	if lease.Maintenance() {
		t.Error("tenant lease must not report maintenance")
	}
}

func TestAcquireMaintenance_SetsSentinel(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{}, d)

	lease, err := p.AcquireMaintenance(context.Background())
	if err != nil {
		t.Fatalf("AcquireMaintenance: %v", err)
	}
	defer lease.Release()

	params := d.conns[0].writtenParams()
	if len(params) != 1 || params[0] != Sentinel {
		t.Errorf("parameter writes = %v, want [sentinel]", params)
	}
	if !lease.Maintenance() {
		t.Error("maintenance lease must report maintenance")
	}
}

func TestRelease_ResetsParameterAndRecycles(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1}, d)
	tenantA := ids.NewTenantID()
	tenantB := ids.NewTenantID()

	lease, err := p.AcquireTenant(context.Background(), tenantA)
	if err != nil {
		t.Fatalf("AcquireTenant(A): %v", err)
	}
	lease.Release()

	lease, err = p.AcquireTenant(context.Background(), tenantB)
	if err != nil {
		t.Fatalf("AcquireTenant(B): %v", err)
	}
	lease.Release()

	if len(d.conns) != 1 {
		t.Fatalf("dialed %d conns, want 1 (recycled)", len(d.conns))
	}
	// Every borrower saw a fresh set, and every release wrote the sentinel.
	want := []string{tenantA.String(), Sentinel, tenantB.String(), Sentinel}
	got := d.conns[0].writtenParams()
	if len(got) != len(want) {
		t.Fatalf("parameter writes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parameter write %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRelease_ResetFailureDiscardsConnection(t *testing.T) {
	first := &fakeConn{}
	d := &fakeDialer{next: []*fakeConn{first}}
	p := newTestPool(t, Config{MaxConns: 1}, d)

	lease, err := p.AcquireTenant(context.Background(), ids.NewTenantID())
	if err != nil {
		t.Fatalf("AcquireTenant: %v", err)
	}
	first.mu.Lock()
	first.failExecs = 1 // the reset on release fails
	first.mu.Unlock()
	lease.Release()

	if !first.IsClosed() {
		t.Error("connection with failed reset must be closed, not recycled")
	}

	// Next acquisition must dial a new connection.
	lease, err = p.AcquireTenant(context.Background(), ids.NewTenantID())
	if err != nil {
		t.Fatalf("AcquireTenant after discard: %v", err)
	}
	lease.Release()
	if len(d.conns) != 2 {
		t.Errorf("dialed %d conns, want 2", len(d.conns))
	}
}

func TestRelease_Idempotent(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1}, d)

	lease, err := p.AcquireTenant(context.Background(), ids.NewTenantID())
	if err != nil {
		t.Fatalf("AcquireTenant: %v", err)
	}
	lease.Release()
	lease.Release()

	open, idle := p.Stats()
	if open != 1 || idle != 1 {
		t.Errorf("Stats = (%d open, %d idle), want (1, 1)", open, idle)
	}
}

func TestAcquire_SaturationReturnsErrPoolExhausted(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1, AcquireRetries: 1}, d)

	lease, err := p.AcquireTenant(context.Background(), ids.NewTenantID())
	if err != nil {
		t.Fatalf("AcquireTenant: %v", err)
	}
	defer lease.Release()

	_, err = p.AcquireTenant(context.Background(), ids.NewTenantID())
	if !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("err = %v, want ErrPoolExhausted", err)
	}
}

func TestAcquire_SetFailureRetriesOnFreshConnection(t *testing.T) {
	bad := &fakeConn{failExecs: 1}
	d := &fakeDialer{next: []*fakeConn{bad}}
	p := newTestPool(t, Config{MaxConns: 1, AcquireRetries: 2}, d)

	lease, err := p.AcquireTenant(context.Background(), ids.NewTenantID())
	if err != nil {
		t.Fatalf("AcquireTenant: %v", err)
	}
	defer lease.Release()

	if !bad.IsClosed() {
		t.Error("connection with failed parameter set must be discarded")
	}
	if len(d.conns) != 2 {
		t.Errorf("dialed %d conns, want 2", len(d.conns))
	}
}

func TestSweep_ClosesIdleConnectionsPastTTL(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 2, IdleTTL: time.Minute}, d)

	lease, err := p.AcquireMaintenance(context.Background())
	if err != nil {
		t.Fatalf("AcquireMaintenance: %v", err)
	}
	lease.Release()

	if n := p.sweepIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("sweepIdle closed %d conns, want 1", n)
	}
	if !d.conns[0].IsClosed() {
		t.Error("swept connection should be closed")
	}
	open, idle := p.Stats()
	if open != 0 || idle != 0 {
		t.Errorf("Stats = (%d open, %d idle), want (0, 0)", open, idle)
	}
}

func TestAcquire_ClosedPool(t *testing.T) {
	d := &fakeDialer{}
	p := NewWithDialer(Config{MaxConns: 1, AcquireRetries: 5}, d.dial, nil)
	p.Close()

	_, err := p.AcquireMaintenance(context.Background())
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("err = %v, want ErrPoolClosed", err)
	}
}

func TestAcquireTenant_ZeroTenantRejected(t *testing.T) {
	d := &fakeDialer{}
	p := newTestPool(t, Config{}, d)

	var zero ids.TenantID
	if _, err := p.AcquireTenant(context.Background(), zero); err == nil {
		t.Error("zero tenant id must not produce a tenant lease")
	}
}
