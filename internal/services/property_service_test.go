package services

import (
	"context"
	"errors"
	"testing"

	"github.com/baharkarakas/averulo-backend/internal/models"
)

func TestPropertyService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPropertyService(f.repos.Properties)

	t.Run("Given a USER When creating a property Then ErrForbidden", func(t *testing.T) {
		if _, err := svc.Create(ctx, as(f.guest), CreatePropertyInput{Title: "x", City: "y", NightlyPrice: 1}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("Given a HOST When creating Then owned by the host and ACTIVE by default", func(t *testing.T) {
		p, err := svc.Create(ctx, as(f.otherHost), CreatePropertyInput{Title: " Ikoyi Flat ", City: "Lagos", NightlyPrice: 250})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if p.HostID != f.otherHost.ID || p.Status != models.PropertyActive || p.Title != "Ikoyi Flat" {
			t.Fatalf("unexpected property: %+v", p)
		}
	})

	t.Run("Given a city filter When listing Then matching newest first with paging", func(t *testing.T) {
		page, err := svc.List(ctx, "lag", models.PropertyActive, 1, 1)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 2 || len(page.Items) != 1 || page.Items[0].Title != "Ikoyi Flat" {
			t.Fatalf("unexpected page: %+v", page)
		}
		next, _ := svc.List(ctx, "lag", models.PropertyActive, 2, 1)
		if len(next.Items) != 1 || next.Items[0].ID != f.prop.ID {
			t.Fatalf("unexpected second page: %+v", next)
		}
	})

	t.Run("Given a missing id When getting Then ErrNotFound", func(t *testing.T) {
		if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserService_Me(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.repos.Users)
	u, err := svc.Me(context.Background(), as(f.host))
	if err != nil || u.Email != f.host.Email {
		t.Fatalf("me: %+v, %v", u, err)
	}
	if _, err := svc.Me(context.Background(), Actor{ID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
