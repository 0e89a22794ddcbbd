package service

import (
	"context"
	"errors"
	"fmt"

	"chatlink/internal/domain"
	"chatlink/internal/security"
)

// AuthService handles registration and login. It is the concrete face of
// the identity verifier: a valid credential resolves to a stable user
// identity, anything else fails with ErrUnauthorized.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Username  string
	Email     *string
	Password  string
	FirstName *string
	LastName  *string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: hashed,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
	}

	// The username unique constraint is the source of truth; a duplicate
	// insert surfaces as a conflict rather than a pre-check race.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUniqueViolation) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := s.tokens.CreateForUser(user.Username)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}
