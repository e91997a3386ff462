package security

import (
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches BCRYPT_SALT_ROUNDS when the variable is unset.
const DefaultCost = 10

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int { return h.cost }

// Hash fails for passwords longer than 72 bytes and for costs outside
// bcrypt's accepted range.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}
