package reactor

import (
	"net"

	"github.com/gofrs/uuid"
	"golang.org/x/time/rate"

	"github.com/chatterbox/chatserver/internal/wire"
)

// Conn is the in-memory Connection of spec.md §3: a socket, its bounded
// read/write buffers, and the bookkeeping the reactor needs to drive
// write-readiness. FD is not the OS file descriptor: it is a process-unique
// handle id the reactor assigns from a counter at accept time.
type Conn struct {
	FD      int
	netConn net.Conn
	buffers wire.Buffers
	limiter *rate.Limiter
	traceID string

	// signalWrite wakes this connection's writer goroutine whenever the
	// write buffer gains data; the idiomatic-Go stand-in for requesting
	// write-readiness from an OS-level readiness API (§4.F).
	signalWrite func()
}

func newConn(fd int, netConn net.Conn, framesPerSec float64, burst int) *Conn {
	traceID, err := uuid.NewV4()
	id := ""
	if err == nil {
		id = traceID.String()
	}
	return &Conn{
		FD:      fd,
		netConn: netConn,
		limiter: rate.NewLimiter(rate.Limit(framesPerSec), burst),
		traceID: id,
	}
}

// Allow reports whether another frame may be processed under the
// per-connection rate limit (SPEC_FULL.md domain-stack addition).
func (c *Conn) Allow() bool {
	return c.limiter.Allow()
}

// TraceID is the correlation id threaded through slog fields for this
// connection's lifetime.
func (c *Conn) TraceID() string { return c.traceID }
