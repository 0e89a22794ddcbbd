package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatlink/internal/domain"
	"chatlink/internal/security"
	"chatlink/internal/service"
)

func newAuthService(users *MockUserRepo) *service.AuthService {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(users, tokenSvc, hasher)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" && u.HashedPassword != "" && u.HashedPassword != "Password1!"
		})).Return(nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "newuser",
			Password: "Password1!",
		})
		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "newuser", user.Username)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		// The unique constraint, not a pre-check, detects the duplicate.
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrUniqueViolation)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "existing",
			Password: "Password1!",
		})
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("MissingFields", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		_, err := svc.Register(context.Background(), service.RegisterInput{Username: "nouser"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestLogin(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	hashed, _ := hasher.Hash("Password1!")

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
			ID:             "user-1",
			Username:       "alice",
			HashedPassword: hashed,
		}, nil)

		resp, err := svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "Password1!"})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "alice", resp.User.Username)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
			ID:             "user-1",
			Username:       "alice",
			HashedPassword: hashed,
		}, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

		_, err := svc.Login(context.Background(), service.LoginInput{Username: "ghost", Password: "whatever"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
