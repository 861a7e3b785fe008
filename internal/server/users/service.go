// Package users implements the identity store: registration, credential
// verification and bearer token issuance. Registration also triggers region
// allocation so both per-user directories exist before first use.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/dmitrijs2005/tubequery/internal/server/auth"
	"github.com/dmitrijs2005/tubequery/internal/server/config"
	"golang.org/x/crypto/bcrypt"
)

// RegionAllocator is the part of the namespace allocator the identity store
// needs: username validation before anything is persisted, region creation
// on registration.
type RegionAllocator interface {
	Validate(username string) error
	EnsureExists(username string) error
}

type Service struct {
	repo                        Repository
	allocator                   RegionAllocator
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewService(repo Repository, allocator RegionAllocator, cfg *config.Config) *Service {
	return &Service{
		repo:                        repo,
		allocator:                   allocator,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a user with a bcrypt-hashed password and allocates both
// storage regions. Duplicate usernames yield common.ErrorAlreadyExists,
// empty fields common.ErrorInvalidInput.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {

	if username == "" || password == "" {
		return nil, common.ErrorInvalidInput
	}

	// the allocator must accept the username before any row exists
	if err := s.allocator.Validate(username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := s.repo.Create(ctx, &User{UserName: username, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if err := s.allocator.EnsureExists(username); err != nil {
		return nil, fmt.Errorf("error allocating regions: %w", err)
	}

	return user, nil
}

// Login verifies the password against the stored bcrypt hash and, on
// success, returns a signed access token. Unknown users and wrong passwords
// are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {

	if username == "" || password == "" {
		return "", common.ErrorInvalidInput
	}

	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.UserName, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}

	return token, nil
}
