package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/repository"
)

type propertiesRepo struct{ pool *pgxpool.Pool }

const propertyCols = `id, host_id, title, city, nightly_price, status, created_at`

func scanProperty(row interface{ Scan(...any) error }) (models.Property, error) {
	var p models.Property
	err := row.Scan(&p.ID, &p.HostID, &p.Title, &p.City, &p.NightlyPrice, &p.Status, &p.CreatedAt)
	return p, err
}

func (r *propertiesRepo) Create(ctx context.Context, p models.Property) (models.Property, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PropertyActive
	}
	return scanProperty(r.pool.QueryRow(ctx,
		`INSERT INTO properties(id, host_id, title, city, nightly_price, status)
		 VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING `+propertyCols,
		p.ID, p.HostID, p.Title, p.City, p.NightlyPrice, p.Status,
	))
}

func (r *propertiesRepo) GetByID(ctx context.Context, id string) (models.Property, error) {
	p, err := scanProperty(r.pool.QueryRow(ctx, `SELECT `+propertyCols+` FROM properties WHERE id=$1`, id))
	return p, mapErr(err)
}

func (r *propertiesRepo) List(ctx context.Context, f repository.PropertyFilter) ([]models.Property, int, error) {
	const where = ` WHERE ($1 = '' OR lower(city) LIKE '%' || lower($1) || '%')
	                  AND ($2 = '' OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM properties`+where, f.City, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+propertyCols+` FROM properties`+where+`
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		f.City, string(f.Status), f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
