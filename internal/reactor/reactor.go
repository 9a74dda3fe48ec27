// Package reactor implements the TCP accept/read/write loop and worker
// pool of spec.md §4.F/§4.G. The original describes a single-threaded
// event loop over an OS readiness API (epoll); Go's netpoller already
// gives every blocking net.Conn read/write that readiness multiplexing for
// free, so this is translated into the idiomatic Go shape the teacher
// itself uses (internal/proxy's accept-loop-plus-goroutine-per-connection,
// internal/pool's worker-queue pattern) rather than hand-rolling
// golang.org/x/sys/unix epoll calls no pack example reaches for: one
// goroutine per connection does the reading, a second drains writes, and a
// fixed worker pool executes the per-message handlers so neither goroutine
// ever blocks on a DB call.
package reactor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatterbox/chatserver/internal/wire"
)

const writeChunkSize = 4096

// Handler executes the per-message business logic and connection teardown
// submitted by the reactor. Implemented by internal/dispatcher; kept as an
// interface here so reactor has no import on dispatcher.
type Handler interface {
	HandleRequest(fd int, frame wire.Frame)
	CleanupConnection(fd int)
}

type task struct {
	fd        int
	frame     wire.Frame
	isCleanup bool
}

// Reactor owns the connections map and the accept/worker goroutines (the
// token sweeper runs in internal/session). It is the reactor's sole writer of the connections map,
// satisfying spec.md §4.I's top lock-order slot.
type Reactor struct {
	handler Handler

	connMu sync.Mutex
	conns  map[int]*Conn
	nextFD atomic.Int64

	tasks chan task

	rateFramesPerSec float64
	rateBurst        int

	wg   sync.WaitGroup
	stop chan struct{}
}

// New constructs a Reactor with workerCount worker goroutines.
func New(handler Handler, workerCount int, framesPerSec float64, burst int) *Reactor {
	if workerCount <= 0 {
		workerCount = 1
	}
	r := &Reactor{
		handler:          handler,
		conns:            make(map[int]*Conn),
		tasks:            make(chan task, 1024),
		rateFramesPerSec: framesPerSec,
		rateBurst:        burst,
		stop:             make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.runWorker()
	}
	return r
}

// SetHandler assigns the handler after construction, for callers that must
// build the reactor before its handler (the handler itself needs the
// reactor as its broadcast.Sender/dispatcher.Transport). Must be called
// before Serve accepts any connections.
func (r *Reactor) SetHandler(h Handler) {
	r.handler = h
}

func (r *Reactor) runWorker() {
	defer r.wg.Done()
	for {
		select {
		case t, ok := <-r.tasks:
			if !ok {
				return
			}
			if t.isCleanup {
				r.handler.CleanupConnection(t.fd)
			} else {
				r.handler.HandleRequest(t.fd, t.frame)
			}
		case <-r.stop:
			return
		}
	}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
// Each accepted connection gets a reader and writer goroutine (the
// goroutine-per-connection translation of §4.F's listening-socket
// handling: non-blocking equivalent, TCP_NODELAY, registered for
// readiness).
func (r *Reactor) Serve(ctx context.Context, ln *net.TCPListener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.AcceptTCP()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Warn("reactor: accept failed", "err", err)
			continue
		}
		conn.SetNoDelay(true)
		r.adopt(conn)
	}
}

func (r *Reactor) adopt(netConn *net.TCPConn) {
	fd := int(r.nextFD.Add(1))
	c := newConn(fd, netConn, r.rateFramesPerSec, r.rateBurst)

	r.connMu.Lock()
	r.conns[fd] = c
	r.connMu.Unlock()

	slog.Info("reactor: connection accepted", "fd", fd, "trace_id", c.TraceID(), "remote", netConn.RemoteAddr())

	writeSignal := make(chan struct{}, 1)
	c.signalWrite = func() {
		select {
		case writeSignal <- struct{}{}:
		default:
		}
	}

	go r.readLoop(c)
	go r.writeLoop(c, writeSignal)
}

func (r *Reactor) readLoop(c *Conn) {
	buf := make([]byte, 64*1024)
	for {
		n, err := c.netConn.Read(buf)
		if n > 0 {
			if bufErr := c.buffers.Recv(buf[:n]); bufErr != nil {
				slog.Warn("reactor: read buffer overflow, tearing down", "fd", c.FD)
				break
			}
			for _, frame := range c.buffers.ExtractMessages() {
				if !c.Allow() {
					continue // frame-rate limit exceeded: silently drop, don't teardown
				}
				r.submit(task{fd: c.FD, frame: frame})
			}
		}
		if err != nil {
			break
		}
	}
	r.submit(task{fd: c.FD, isCleanup: true})
}

func (r *Reactor) writeLoop(c *Conn, signal <-chan struct{}) {
	for range signal {
		for c.buffers.HasPendingWrites() {
			chunk := c.buffers.DrainWrite(writeChunkSize)
			if len(chunk) == 0 {
				break
			}
			if _, err := c.netConn.Write(chunk); err != nil {
				return
			}
		}
	}
}

func (r *Reactor) submit(t task) {
	select {
	case r.tasks <- t:
	case <-r.stop:
	}
}

// SendFrame implements broadcast.Sender: encode and enqueue a frame for
// fd, waking its writer goroutine.
func (r *Reactor) SendFrame(fd int, msgType uint16, payload []byte) error {
	r.connMu.Lock()
	c, ok := r.conns[fd]
	r.connMu.Unlock()
	if !ok {
		return nil // connection already gone; best-effort per §4.K
	}
	c.buffers.AppendToWriteBuffer(msgType, payload)
	if c.signalWrite != nil {
		c.signalWrite()
	}
	return nil
}

// CloseConnection force-closes fd's socket (used for kicks and teardown).
func (r *Reactor) CloseConnection(fd int) {
	r.connMu.Lock()
	c, ok := r.conns[fd]
	delete(r.conns, fd)
	r.connMu.Unlock()
	if ok {
		c.netConn.Close()
	}
}

// ConnectionLive reports whether fd is still tracked by the reactor.
func (r *Reactor) ConnectionLive(fd int) bool {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	_, ok := r.conns[fd]
	return ok
}

// KickWithRetry best-effort sends the zero-length MSG_ACCOUNT_KICKED frame
// up to 10 times at 10ms intervals on transient failure, then closes the
// connection (§4.H step 1).
func (r *Reactor) KickWithRetry(fd int) {
	for i := 0; i < 10; i++ {
		if err := r.SendFrame(fd, wire.TypeAccountKicked, nil); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	r.CloseConnection(fd)
}

// Shutdown stops accepting new work and waits for in-flight workers to
// drain.
func (r *Reactor) Shutdown() {
	close(r.stop)
	r.wg.Wait()
}
