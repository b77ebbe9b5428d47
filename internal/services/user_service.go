package services

import (
	"context"

	"github.com/baharkarakas/averulo-backend/internal/models"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

type UserService struct {
	r repo.Users
}

func NewUserService(r repo.Users) *UserService { return &UserService{r: r} }

func (s *UserService) Me(ctx context.Context, actor Actor) (models.User, error) {
	u, err := s.r.GetByID(ctx, actor.ID)
	if err != nil {
		return models.User{}, notFound("user", err)
	}
	return u, nil
}
