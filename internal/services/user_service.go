package services

import (
	"context"
	"fmt"
	"strings"

	"returnremind/internal/clock"
	"returnremind/internal/models"
	"returnremind/internal/store"
)

// UserService manages purchase owners
type UserService struct {
	store store.UserStore
	clock clock.Clock
}

func NewUserService(st store.UserStore, clk clock.Clock) *UserService {
	return &UserService{store: st, clock: clk}
}

func (s *UserService) CreateUser(ctx context.Context, name, email string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("%w: name and a valid email are required", ErrInvalidInput)
	}
	u := models.User{
		ID:        models.NewID(),
		Name:      name,
		Email:     email,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.store.GetUser(ctx, id)
}
