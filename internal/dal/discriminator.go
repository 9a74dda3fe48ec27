package dal

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/chatterbox/chatserver/internal/model"
)

// assignDiscriminator picks an unused 4-digit discriminator for name, given
// the set of discriminators already taken by that name, per §4.C: under
// 9900 taken, draw up to 50 random candidates and return the first unused
// one; otherwise (or if every draw collided) fall back to a linear scan of
// "0000".."9999". Returns ErrNameExhausted once all 10000 are taken.
func assignDiscriminator(taken map[string]bool) (string, error) {
	if len(taken) >= model.MaxDiscriminators {
		return "", ErrNameExhausted
	}

	if len(taken) < 9900 {
		for i := 0; i < 50; i++ {
			candidate, err := randomDiscriminator()
			if err != nil {
				return "", fmt.Errorf("dal: generating random discriminator: %w", err)
			}
			if !taken[candidate] {
				return candidate, nil
			}
		}
	}

	for n := 0; n < model.MaxDiscriminators; n++ {
		candidate := fmt.Sprintf("%04d", n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
	return "", ErrNameExhausted
}

func randomDiscriminator() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
