// Package authcrypto is the password hashing boundary spec.md §1 treats as an
// external collaborator: a pure hash(pw) -> blob / verify(pw, blob) -> bool
// pair. Implemented with bcrypt (golang.org/x/crypto), the same module family
// the teacher reaches for its PostgreSQL SCRAM handshake.
package authcrypto

import "golang.org/x/crypto/bcrypt"

// DefaultCost mirrors bcrypt's recommended default; kept as a named constant
// so callers never hardcode a magic number inline.
const DefaultCost = bcrypt.DefaultCost

// Hash produces a salted bcrypt hash of the given password.
func Hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
}

// Verify reports whether password matches the stored hash.
func Verify(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
