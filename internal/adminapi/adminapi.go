// Package adminapi is the read-only HTTP operations surface for the chat
// server: health, stats, room listings, and Prometheus metrics, all gated
// behind a JWT bearer check. Grounded on the teacher's internal/api server.
package adminapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatterbox/chatserver/internal/config"
	"github.com/chatterbox/chatserver/internal/gateway"
	"github.com/chatterbox/chatserver/internal/metrics"
	"github.com/chatterbox/chatserver/internal/registry"
	"github.com/chatterbox/chatserver/internal/session"
)

// Server is the admin HTTP server.
type Server struct {
	cfg       config.AdminAPIConfig
	registry  *registry.Registry
	sessions  *session.Store
	pool      *gateway.Pool
	metrics   *metrics.Collector
	startTime time.Time

	httpServer *http.Server
}

// New constructs a Server. It does not start listening until Start is
// called.
func New(cfg config.AdminAPIConfig, reg *registry.Registry, sessions *session.Store, pool *gateway.Pool, m *metrics.Collector) *Server {
	return &Server{
		cfg:       cfg,
		registry:  reg,
		sessions:  sessions,
		pool:      pool,
		metrics:   m,
		startTime: time.Now(),
	}
}

// Start binds the listener and serves in the background. Non-blocking,
// mirroring the teacher's api.Server.Start.
func (s *Server) Start() error {
	r := mux.NewRouter()
	r.Use(s.authMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.roomsHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("adminapi: listening", "addr", addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("adminapi: server error", "err", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// authMiddleware rejects requests lacking a valid admin-signed JWT bearer
// token, unless no JWT secret was configured (local/dev mode).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid bearer token: "+err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := true
	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		healthy = s.pool.HealthCheck(ctx) == nil
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":         map[bool]string{true: "healthy", false: "unhealthy"}[healthy],
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	active, inactive := s.registry.ActiveRoomSnapshot(), s.registry.InactiveRoomSnapshot()

	body := map[string]any{
		"uptime_seconds":  int(time.Since(s.startTime).Seconds()),
		"go_version":      runtime.Version(),
		"goroutines":      runtime.NumGoroutine(),
		"memory_mb":       float64(mem.Alloc) / 1024 / 1024,
		"sessions_active": s.sessions.ActiveCount(),
		"rooms_active":    len(active),
		"rooms_inactive":  len(inactive),
	}
	if s.pool != nil {
		body["db_pool"] = s.pool.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) roomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.registry.ActiveRoomSnapshot(),
		"inactive": s.registry.InactiveRoomSnapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
