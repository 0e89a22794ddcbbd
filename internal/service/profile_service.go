package service

import (
	"context"

	"chatlink/internal/domain"
)

// ProfileService serves public profile reads and own-profile updates.
type ProfileService struct {
	users domain.UserRepository
}

func NewProfileService(users domain.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.ProfileSummary, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Profile(), nil
}

type ProfileUpdateInput struct {
	Username  *string
	FirstName *string
	LastName  *string
	AvatarURL *string
}

func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileUpdateInput) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Username != nil && *in.Username != "" {
		u.Username = *in.Username
	}
	if in.FirstName != nil {
		u.FirstName = in.FirstName
	}
	if in.LastName != nil {
		u.LastName = in.LastName
	}
	if in.AvatarURL != nil {
		u.AvatarURL = in.AvatarURL
	}
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *ProfileService) Search(ctx context.Context, query string, limit int) ([]*domain.ProfileSummary, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := s.users.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	res := make([]*domain.ProfileSummary, 0, len(users))
	for _, u := range users {
		res = append(res, u.Profile())
	}
	return res, nil
}
