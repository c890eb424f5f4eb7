package geo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yont-erp/yont-erp/internal/authz"
)

// Repository loads geographic reference rows.
type Repository interface {
	ListProvinces(ctx context.Context) ([]authz.Province, error)
	ListBranches(ctx context.Context) ([]authz.Branch, error)
}

// SQLRepository reads reference data from PostgreSQL.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a SQLRepository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// ListProvinces returns every province row.
func (r *SQLRepository) ListProvinces(ctx context.Context) ([]authz.Province, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM provinces ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var provinces []authz.Province
	for rows.Next() {
		var p authz.Province
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		provinces = append(provinces, p)
	}
	return provinces, rows.Err()
}

// ListBranches returns every branch row.
func (r *SQLRepository) ListBranches(ctx context.Context) ([]authz.Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name, province_id FROM branches ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var branches []authz.Branch
	for rows.Next() {
		var b authz.Branch
		if err := rows.Scan(&b.Code, &b.Name, &b.ProvinceID); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}
