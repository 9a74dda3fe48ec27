package adminapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/chatterbox/chatserver/internal/config"
	"github.com/chatterbox/chatserver/internal/metrics"
	"github.com/chatterbox/chatserver/internal/registry"
	"github.com/chatterbox/chatserver/internal/session"
)

func testServer(t *testing.T, secret string) (*Server, *mux.Router) {
	t.Helper()
	reg := registry.New()
	sessions := session.NewStore(30 * time.Minute)
	m := metrics.New()
	s := New(config.AdminAPIConfig{Bind: "127.0.0.1", Port: 0, JWTSecret: secret}, reg, sessions, nil, m)

	r := mux.NewRouter()
	r.Use(s.authMiddleware)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.roomsHandler).Methods(http.MethodGet)
	return s, r
}

func TestHealthHandlerWithoutDBPoolIsHealthy(t *testing.T) {
	_, r := testServer(t, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRoomsHandlerNoAuthWhenSecretUnset(t *testing.T) {
	_, r := testServer(t, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStatsRequiresBearerTokenWhenSecretSet(t *testing.T) {
	_, r := testServer(t, "supersecret")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without bearer token", rec.Code)
	}
}

func TestStatsAcceptsValidBearerToken(t *testing.T) {
	_, r := testServer(t, "supersecret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("supersecret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with valid bearer token", rec.Code)
	}
}

func TestStatsRejectsTokenSignedWithWrongSecret(t *testing.T) {
	_, r := testServer(t, "supersecret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "attacker"})
	signed, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for wrong signature", rec.Code)
	}
}
