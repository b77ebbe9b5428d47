package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/baharkarakas/averulo-backend/internal/models"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

type PropertyService struct {
	r repo.Properties
}

func NewPropertyService(r repo.Properties) *PropertyService { return &PropertyService{r: r} }

type CreatePropertyInput struct {
	Title        string
	City         string
	NightlyPrice int64
	Status       models.PropertyStatus
}

func (s *PropertyService) Create(ctx context.Context, actor Actor, in CreatePropertyInput) (models.Property, error) {
	if !actor.IsHost() && !actor.IsAdmin() {
		return models.Property{}, ErrForbidden
	}
	if in.Status == "" {
		in.Status = models.PropertyActive
	}
	if in.Status != models.PropertyActive && in.Status != models.PropertyInactive {
		return models.Property{}, fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	return s.r.Create(ctx, models.Property{
		HostID:       actor.ID,
		Title:        strings.TrimSpace(in.Title),
		City:         strings.TrimSpace(in.City),
		NightlyPrice: in.NightlyPrice,
		Status:       in.Status,
	})
}

func (s *PropertyService) Get(ctx context.Context, id string) (models.Property, error) {
	p, err := s.r.GetByID(ctx, id)
	if err != nil {
		return models.Property{}, notFound("property", err)
	}
	return p, nil
}

type PropertyPage struct {
	Items []models.Property `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// List pages through properties newest first. page is 1-based; limit is capped at 100.
func (s *PropertyService) List(ctx context.Context, city string, status models.PropertyStatus, page, limit int) (PropertyPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	items, total, err := s.r.List(ctx, repo.PropertyFilter{
		City:   strings.TrimSpace(city),
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return PropertyPage{}, err
	}
	return PropertyPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}
