package grants

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-hr/lumina-backoffice/internal/platform/db"
	"github.com/lumina-hr/lumina-backoffice/internal/registry"
)

// TxRepository exposes the operations available inside a grant transaction.
// Validation queries and the replace itself run against the same transaction
// so a concurrent dashboard delete makes the replace fail instead of leaving
// an orphaned grant behind.
type TxRepository interface {
	DashboardsByIDs(ctx context.Context, ids []int64) (map[int64]registry.Dashboard, error)
	FeaturesByIDs(ctx context.Context, ids []int64) (map[int64]registry.Feature, error)
	DeleteProfile(ctx context.Context, adminID int64) error
	InsertDashboardGrants(ctx context.Context, adminID int64, dashboardIDs []int64) error
	InsertFeatureGrants(ctx context.Context, adminID int64, features map[int64]Capabilities) error
}

// RepositoryPort defines data access for the grant store.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetProfile(ctx context.Context, adminID int64) (Profile, error)
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

// WithTx runs fn inside one serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetProfile returns the admin's current profile; empty maps when the admin
// holds nothing. Both grant tables are read in one consistent transaction so
// a replace committing between the two reads cannot yield a profile no
// commit ever wrote.
func (r *Repository) GetProfile(ctx context.Context, adminID int64) (Profile, error) {
	profile := NewProfile()
	err := db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT dashboard_id FROM dashboard_grants WHERE admin_id = $1`, adminID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			profile.DashboardIDs[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		frows, err := tx.Query(ctx, `
			SELECT feature_id, can_view, can_create, can_edit, can_delete, can_export
			FROM feature_grants WHERE admin_id = $1`, adminID)
		if err != nil {
			return err
		}
		defer frows.Close()
		for frows.Next() {
			var id int64
			var c Capabilities
			if err := frows.Scan(&id, &c.View, &c.Create, &c.Edit, &c.Delete, &c.Export); err != nil {
				return err
			}
			profile.Features[id] = c
		}
		return frows.Err()
	})
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

type txRepository struct {
	tx pgx.Tx
}

// DashboardsByIDs loads the referenced dashboards within the transaction.
func (t *txRepository) DashboardsByIDs(ctx context.Context, ids []int64) (map[int64]registry.Dashboard, error) {
	out := make(map[int64]registry.Dashboard, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, slug, name, description, icon, is_active, created_at, updated_at
		FROM dashboards WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d registry.Dashboard
		if err := rows.Scan(&d.ID, &d.Slug, &d.Name, &d.Description, &d.Icon, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}

// FeaturesByIDs loads the referenced features within the transaction.
func (t *txRepository) FeaturesByIDs(ctx context.Context, ids []int64) (map[int64]registry.Feature, error) {
	out := make(map[int64]registry.Feature, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, dashboard_id, feature_key, name, description, component, icon, order_index, created_at, updated_at
		FROM features WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var f registry.Feature
		if err := rows.Scan(&f.ID, &f.DashboardID, &f.Key, &f.Name, &f.Description, &f.Component, &f.Icon, &f.OrderIndex, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out[f.ID] = f
	}
	return out, rows.Err()
}

// DeleteProfile removes every grant the admin currently holds.
func (t *txRepository) DeleteProfile(ctx context.Context, adminID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM feature_grants WHERE admin_id = $1`, adminID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM dashboard_grants WHERE admin_id = $1`, adminID)
	return err
}

// InsertDashboardGrants writes the dashboard gates for the new profile.
func (t *txRepository) InsertDashboardGrants(ctx context.Context, adminID int64, dashboardIDs []int64) error {
	for _, id := range dashboardIDs {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO dashboard_grants (admin_id, dashboard_id) VALUES ($1, $2)`, adminID, id); err != nil {
			return err
		}
	}
	return nil
}

// InsertFeatureGrants writes the capability matrix for the new profile.
func (t *txRepository) InsertFeatureGrants(ctx context.Context, adminID int64, features map[int64]Capabilities) error {
	for featureID, c := range features {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO feature_grants (admin_id, feature_id, can_view, can_create, can_edit, can_delete, can_export)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			adminID, featureID, c.View, c.Create, c.Edit, c.Delete, c.Export); err != nil {
			return err
		}
	}
	return nil
}
