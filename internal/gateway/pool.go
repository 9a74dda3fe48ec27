// Package gateway implements the Connection Pool (§4.A) and Query Gateway
// (§4.B). The teacher (JeelKantaria-db-bouncer) hand-rolls a connection pool
// because it proxies raw bytes with no SQL driver in the loop. Here the DAL
// speaks real SQL through lib/pq, so database/sql already supplies a
// connection pool at the driver layer — we wrap it with the explicit
// acquire(timeout)/release contract spec.md §4.A names (bounded semaphore,
// context deadline, ConnectionError on exhaustion) instead of reimplementing
// dialing and idle-eviction ourselves.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/chatterbox/chatserver/internal/config"
)

// ConnectionError is returned when the pool cannot produce a handle, either
// because acquire() timed out waiting for an in-use slot, or because no
// connection could be dialed at all (§4.A, §7).
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("gateway: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Pool bounds the number of concurrently-acquired database handles between
// [min, max], honouring an acquire timeout and an idle eviction policy.
type Pool struct {
	db  *sql.DB
	sem chan struct{}
	cfg config.DBConfig
}

// NewPool dials the database and returns a ready pool, pre-warmed to min
// connections. Fails with *ConnectionError if no connection can be created.
func NewPool(cfg config.DBConfig) (*Pool, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, int(cfg.ConnectTimeout.Seconds()))

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(cfg.PoolMax)
	db.SetMaxIdleConns(cfg.PoolMin)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}

	// Open PoolMin connections up front; closing a *sql.Conn hands it back
	// to database/sql's idle set, which SetMaxIdleConns sized to PoolMin.
	warm := make([]*sql.Conn, 0, cfg.PoolMin)
	for i := 0; i < cfg.PoolMin; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			break
		}
		warm = append(warm, c)
	}
	for _, c := range warm {
		c.Close()
	}

	p := &Pool{
		db:  db,
		sem: make(chan struct{}, cfg.PoolMax),
		cfg: cfg,
	}
	slog.Info("gateway pool ready", "host", cfg.Host, "port", cfg.Port, "min", cfg.PoolMin, "max", cfg.PoolMax)
	return p, nil
}

// Handle is an acquired, exclusive database connection. Callers must call
// Release in every exit path.
type Handle struct {
	conn *sql.Conn
	pool *Pool
}

// Acquire waits up to timeout for a free slot (prefers an idle connection,
// otherwise dials up to max), returning *ConnectionError on timeout.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (*Handle, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case p.sem <- struct{}{}:
	case <-acquireCtx.Done():
		return nil, &ConnectionError{Op: "acquire", Err: acquireCtx.Err()}
	}

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		<-p.sem
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return &Handle{conn: conn, pool: p}, nil
}

// Release returns the handle's connection to the pool. Safe to call exactly
// once per acquired Handle.
func (h *Handle) Release() {
	h.conn.Close() // returns the *sql.Conn to database/sql's internal pool
	<-h.pool.sem
}

// Conn exposes the underlying *sql.Conn for statement execution.
func (h *Handle) Conn() *sql.Conn { return h.conn }

// BeginTransaction starts a transaction on this handle.
func (h *Handle) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return h.conn.BeginTx(ctx, nil)
}

// Stats reports current pool occupancy for metrics/admin surfaces.
type Stats struct {
	InUse int
	Max   int
}

// Stats returns a point-in-time snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	return Stats{InUse: len(p.sem), Max: p.cfg.PoolMax}
}

// HealthCheck pings an acquired connection, for the periodic health-check
// loop described in §4.A.
func (p *Pool) HealthCheck(ctx context.Context) error {
	h, err := p.Acquire(ctx, p.cfg.ConnectTimeout)
	if err != nil {
		return err
	}
	defer h.Release()
	return h.conn.PingContext(ctx)
}

// Close shuts down the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}
