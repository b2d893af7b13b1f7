package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-hr/lumina-backoffice/internal/platform/db"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// RepositoryPort defines read access to admin accounts.
type RepositoryPort interface {
	FindByID(ctx context.Context, id int64) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

const adminColumns = `id, username, email, password_hash, is_superadmin, is_active, created_at, updated_at`

// FindByID fetches an admin account by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Admin, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

// FindByEmail fetches an admin account by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
}

func (r *Repository) scanOne(row pgx.Row) (*Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsSuperadmin, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: admin", shared.ErrNotFound)
		}
		return nil, db.TranslateErr(err)
	}
	return &a, nil
}
