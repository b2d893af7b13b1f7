package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Service resolves bearer tokens to admin identities. Tokens are opaque,
// stored in Redis with a bounded TTL; the admin row itself always comes
// from Postgres so deactivation takes effect on the next request.
type Service struct {
	repo   RepositoryPort
	tokens *redis.Client
	ttl    time.Duration
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, tokens *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, tokens: tokens, ttl: ttl}
}

// Login validates credentials and issues a bearer token. Every failure mode
// collapses into shared.ErrAuthentication so callers cannot probe which
// accounts exist or are active.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", shared.ErrAuthentication
	}
	if !admin.IsActive {
		return "", shared.ErrAuthentication
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", shared.ErrAuthentication
	}
	token := uuid.NewString()
	if err := s.tokens.Set(ctx, tokenKey(token), admin.ID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: token store: %v", shared.ErrStoreUnavailable, err)
	}
	return token, nil
}

// Logout revokes a bearer token. Revoking an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Del(ctx, tokenKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: token store: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// ResolveIdentity maps a bearer token to an admin identity. Unknown or
// expired tokens, missing accounts, and deactivated accounts all resolve to
// shared.ErrAuthentication.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (*shared.Identity, error) {
	if token == "" {
		return nil, shared.ErrAuthentication
	}
	raw, err := s.tokens.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrAuthentication
		}
		return nil, fmt.Errorf("%w: token store: %v", shared.ErrStoreUnavailable, err)
	}
	adminID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, shared.ErrAuthentication
	}
	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuthentication
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, shared.ErrAuthentication
	}
	id := admin.Identity()
	return &id, nil
}

// AdminByID exposes admin lookups for the grant store's referential checks.
func (s *Service) AdminByID(ctx context.Context, id int64) (shared.Identity, error) {
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return shared.Identity{}, err
	}
	return admin.Identity(), nil
}

func tokenKey(token string) string {
	return "token:" + token
}
