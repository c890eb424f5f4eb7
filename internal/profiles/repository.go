package profiles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/shared"
)

// Repository fetches raw user grant records.
type Repository interface {
	FindUser(ctx context.Context, userID int64) (authz.RawUserRecord, error)
	ListInactiveUserIDs(ctx context.Context) ([]int64, error)
}

// SQLRepository reads user records from PostgreSQL. Users carry either a
// legacy flat role name or orthogonal grants; both are returned verbatim and
// normalized only by authz.BuildProfile.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a SQLRepository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// FindUser returns the raw grant record for one user.
func (r *SQLRepository) FindUser(ctx context.Context, userID int64) (authz.RawUserRecord, error) {
	var raw authz.RawUserRecord
	err := r.pool.QueryRow(ctx, `
SELECT u.id, COALESCE(u.legacy_role, ''), COALESCE(u.authority, ''),
       u.departments, u.permissions,
       u.allowed_provinces, u.allowed_branches, u.multi_province,
       COALESCE(u.home_province, ''), COALESCE(u.home_branch, ''),
       u.is_active, u.is_dev
FROM users u WHERE u.id = $1`, userID).Scan(
		&raw.UserID, &raw.Role, &raw.Authority, &raw.Departments, &raw.Permissions,
		&raw.AllowedProvinces, &raw.AllowedBranches, &raw.MultiProvince,
		&raw.HomeProvince, &raw.HomeBranch, &raw.IsActive, &raw.IsDev,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.RawUserRecord{}, shared.ErrNotFound
		}
		return authz.RawUserRecord{}, err
	}
	return raw, nil
}

// ListInactiveUserIDs returns users deactivated since their last profile
// build, for the registry sweep job.
func (r *SQLRepository) ListInactiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE NOT is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
