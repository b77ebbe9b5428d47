package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Users:      &usersRepo{pool},
		Properties: &propertiesRepo{pool},
		Bookings:   &bookingsRepo{pool},
		Payments:   &paymentsRepo{pool},
		AuditLogs:  &auditLogsRepo{pool},
		Store:      &store{pool},
	}
}
