// Package session implements the bearer-token session model (§4.H): token
// minting, validation, and the background expiry sweeper. It owns only the
// `user_to_token` table — the last lock in spec.md §4.I's lock order — and
// deliberately does not hold the `fd_to_user`/`user_to_fd` bi-maps; those
// belong to internal/registry, which callers consult first to resolve a
// fd to a user_id before calling into Store.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatterbox/chatserver/internal/model"
)

// Validity is the outcome of validating a token against the live table.
type Validity int

const (
	Invalid Validity = iota
	ValidNormal
	ValidAdmin
)

type entry struct {
	token  string
	expire time.Time
	role   model.Role
}

// Store is the in-memory `user_id → (token, expire, role)` map described
// in §3/§4.H, with an atomic counter guaranteeing token uniqueness even
// within the same millisecond.
type Store struct {
	mu      sync.Mutex
	entries map[int64]entry
	counter atomic.Uint64

	tokenExpire time.Duration
}

// NewStore constructs an empty session store with the given default token
// lifetime.
func NewStore(tokenExpire time.Duration) *Store {
	return &Store{
		entries:     make(map[int64]entry),
		tokenExpire: tokenExpire,
	}
}

// SetTokenExpire updates the default lifetime applied to future Logins;
// used by the config hot-reload watcher (SPEC_FULL.md AMBIENT STACK).
func (s *Store) SetTokenExpire(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenExpire = d
}

// Login mints and records a new token for userID, replacing any prior
// entry (step 4 of §4.H's login sequence; steps 1-3, which touch the
// fd/user bi-maps and the kick notification, are the caller's
// responsibility via internal/registry before this is called).
func (s *Store) Login(userID int64, role model.Role) string {
	token := mintToken(role, &s.counter)

	s.mu.Lock()
	s.entries[userID] = entry{
		token:  token,
		expire: time.Now().Add(s.tokenExpire),
		role:   role,
	}
	s.mu.Unlock()
	return token
}

func mintToken(role model.Role, counter *atomic.Uint64) string {
	n := counter.Add(1) % uint64(10000)
	return fmt.Sprintf("%c_%d_%d", role.RoleChar(), time.Now().UnixMilli(), n)
}

// Validate implements the token half of `validateToken(fd, token)` (§4.H):
// given a userID already resolved from fd by the registry, checks the
// stored token and expiry.
func (s *Store) Validate(userID int64, token string) Validity {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || e.token != token || time.Now().After(e.expire) {
		return Invalid
	}
	if e.role == model.RoleAdmin {
		return ValidAdmin
	}
	return ValidNormal
}

// Logout removes userID's session entirely (explicit logout, kick, or
// connection teardown).
func (s *Store) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// HasSession reports whether userID currently holds a non-expired token,
// without validating a specific token value.
func (s *Store) HasSession(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	return ok && !time.Now().After(e.expire)
}

// ActiveCount reports the number of live, non-expired sessions — used by
// the bijection property (spec.md §8 property 8) and by metrics.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for _, e := range s.entries {
		if now.Before(e.expire) {
			n++
		}
	}
	return n
}

// sweep removes every entry whose expiry has passed. Correctness never
// depends on the sweeper running — Validate always re-checks expire.
func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for userID, e := range s.entries {
		if now.After(e.expire) {
			delete(s.entries, userID)
			removed++
		}
	}
	return removed
}

// StartSweeper launches the background expiry sweeper (§4.H), waking every
// interval until stop is closed.
func (s *Store) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}()
}
