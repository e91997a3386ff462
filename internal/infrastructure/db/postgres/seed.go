package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// SeedUsers inserts fixed demo accounts so a fresh dev database already has
// taken usernames and emails to register against. Duplicates are skipped,
// which makes it restart safe. It returns the number of accounts created.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher) int {
	type seedUser struct {
		Username string
		Email    string
		Pass     string
	}

	seeds := []seedUser{
		{Username: "admin", Email: "admin@example.com", Pass: "AdminPassword123!"},
		{Username: "demo", Email: "demo@example.com", Pass: "DemoPassword123!"},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("username", s.Username).Msg("seed: hash failed")
			continue
		}

		now := time.Now().UTC()
		u := domain.User{
			ID:           uuid.NewString(),
			Username:     s.Username,
			Email:        s.Email,
			PasswordHash: hash,
			IsVerified:   true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if _, err := repo.Create(ctx, u); err != nil {
			if !domain.Is(err, domain.CodeEmailAlreadyExists) && !domain.Is(err, domain.CodeUsernameAlreadyExists) {
				logger.Logger.Warn().Err(err).Str("username", s.Username).Msg("seed: create failed")
			}
			continue
		}
		created++
	}

	logger.Logger.Info().Int("created", created).Msg("seed: demo users ready")
	return created
}
