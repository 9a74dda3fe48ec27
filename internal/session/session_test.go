package session

import (
	"regexp"
	"testing"
	"time"

	"github.com/chatterbox/chatserver/internal/model"
)

var tokenPattern = regexp.MustCompile(`^[an]_\d+_\d{1,4}$`)

func TestLoginMintsWellFormedToken(t *testing.T) {
	s := NewStore(30 * time.Minute)
	token := s.Login(1, model.RoleNormal)

	if !tokenPattern.MatchString(token) {
		t.Errorf("token %q does not match expected format", token)
	}
	if token[0] != 'n' {
		t.Errorf("token %q should start with role char 'n' for a normal user", token)
	}
}

func TestLoginAdminRoleChar(t *testing.T) {
	s := NewStore(30 * time.Minute)
	token := s.Login(1, model.RoleAdmin)
	if token[0] != 'a' {
		t.Errorf("token %q should start with role char 'a' for an admin", token)
	}
}

func TestValidateAcceptsFreshToken(t *testing.T) {
	s := NewStore(30 * time.Minute)
	token := s.Login(1, model.RoleNormal)

	if got := s.Validate(1, token); got != ValidNormal {
		t.Errorf("Validate() = %v, want ValidNormal", got)
	}
}

func TestValidateRejectsWrongToken(t *testing.T) {
	s := NewStore(30 * time.Minute)
	s.Login(1, model.RoleNormal)

	if got := s.Validate(1, "bogus"); got != Invalid {
		t.Errorf("Validate() with wrong token = %v, want Invalid", got)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	s := NewStore(-1 * time.Minute) // already expired the instant it's minted
	token := s.Login(1, model.RoleNormal)

	if got := s.Validate(1, token); got != Invalid {
		t.Errorf("Validate() with expired token = %v, want Invalid", got)
	}
}

func TestLoginReplacesPriorSession(t *testing.T) {
	s := NewStore(30 * time.Minute)
	first := s.Login(1, model.RoleNormal)
	second := s.Login(1, model.RoleNormal)

	if s.Validate(1, first) != Invalid {
		t.Error("first token should be invalidated by the second login")
	}
	if s.Validate(1, second) != ValidNormal {
		t.Error("second token should validate")
	}
	if s.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1 (token bijection)", s.ActiveCount())
	}
}

func TestLogoutRemovesSession(t *testing.T) {
	s := NewStore(30 * time.Minute)
	token := s.Login(1, model.RoleNormal)
	s.Logout(1)

	if s.Validate(1, token) != Invalid {
		t.Error("token should be invalid after logout")
	}
}

func TestSweepRemovesExpiredWithoutAffectingValidateContract(t *testing.T) {
	s := NewStore(-1 * time.Minute)
	s.Login(1, model.RoleNormal)
	s.Login(2, model.RoleNormal)

	removed := s.sweep()
	if removed != 2 {
		t.Errorf("sweep() removed %d, want 2", removed)
	}
	if s.ActiveCount() != 0 {
		t.Errorf("ActiveCount() after sweep = %d, want 0", s.ActiveCount())
	}
}

func TestConcurrentLoginsProduceDistinctTokens(t *testing.T) {
	s := NewStore(30 * time.Minute)
	const n = 200
	tokens := make(chan string, n)
	for i := 0; i < n; i++ {
		go func(id int64) {
			tokens <- s.Login(id, model.RoleNormal)
		}(int64(i))
	}

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		tok := <-tokens
		if seen[tok] {
			t.Errorf("duplicate token minted: %q", tok)
		}
		seen[tok] = true
	}
}
