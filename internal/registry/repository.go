package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-hr/lumina-backoffice/internal/platform/db"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// RepositoryPort defines data access for dashboards and features.
type RepositoryPort interface {
	CreateDashboard(ctx context.Context, d Dashboard) (Dashboard, error)
	GetDashboard(ctx context.Context, id int64) (Dashboard, error)
	UpdateDashboard(ctx context.Context, d Dashboard) (Dashboard, error)
	DeleteDashboard(ctx context.Context, id int64) error
	ListDashboards(ctx context.Context) ([]Dashboard, error)

	CreateFeature(ctx context.Context, f Feature) (Feature, error)
	GetFeature(ctx context.Context, id int64) (Feature, error)
	UpdateFeature(ctx context.Context, f Feature) (Feature, error)
	DeleteFeature(ctx context.Context, id int64) error
	ListFeatures(ctx context.Context, dashboardID int64) ([]Feature, error)

	Snapshot(ctx context.Context) (Snapshot, error)
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

const dashboardColumns = `id, slug, name, description, icon, is_active, created_at, updated_at`
const featureColumns = `id, dashboard_id, feature_key, name, description, component, icon, order_index, created_at, updated_at`

// CreateDashboard inserts a new dashboard. A duplicate slug surfaces as
// shared.ErrConflict via the unique constraint.
func (r *Repository) CreateDashboard(ctx context.Context, d Dashboard) (Dashboard, error) {
	query := `
		INSERT INTO dashboards (slug, name, description, icon, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + dashboardColumns
	row := r.pool.QueryRow(ctx, query, d.Slug, d.Name, d.Description, d.Icon, d.IsActive)
	out, err := scanDashboard(row)
	if err != nil {
		return Dashboard{}, db.TranslateErr(err)
	}
	return out, nil
}

// GetDashboard fetches a dashboard by id.
func (r *Repository) GetDashboard(ctx context.Context, id int64) (Dashboard, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dashboardColumns+` FROM dashboards WHERE id = $1`, id)
	out, err := scanDashboard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dashboard{}, fmt.Errorf("%w: dashboard %d", shared.ErrNotFound, id)
		}
		return Dashboard{}, db.TranslateErr(err)
	}
	return out, nil
}

// UpdateDashboard writes mutable dashboard fields. The slug column is never
// part of the SET list.
func (r *Repository) UpdateDashboard(ctx context.Context, d Dashboard) (Dashboard, error) {
	query := `
		UPDATE dashboards
		SET name = $2, description = $3, icon = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + dashboardColumns
	row := r.pool.QueryRow(ctx, query, d.ID, d.Name, d.Description, d.Icon, d.IsActive)
	out, err := scanDashboard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dashboard{}, fmt.Errorf("%w: dashboard %d", shared.ErrNotFound, d.ID)
		}
		return Dashboard{}, db.TranslateErr(err)
	}
	return out, nil
}

// DeleteDashboard removes a dashboard with its features and every grant
// referencing them, in one serializable transaction. Deleting an absent id
// returns shared.ErrNotFound so callers can detect double-delete races.
func (r *Repository) DeleteDashboard(ctx context.Context, id int64) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM feature_grants
			WHERE feature_id IN (SELECT id FROM features WHERE dashboard_id = $1)`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM dashboard_grants WHERE dashboard_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM features WHERE dashboard_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM dashboards WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: dashboard %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

// ListDashboards returns all dashboards ordered by name then id.
func (r *Repository) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dashboardColumns+` FROM dashboards ORDER BY lower(name), id`)
	if err != nil {
		return nil, db.TranslateErr(err)
	}
	defer rows.Close()
	var out []Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, db.TranslateErr(err)
	}
	return out, nil
}

// CreateFeature inserts a feature under its dashboard. A missing dashboard
// surfaces as shared.ErrNotFound via the foreign key, a duplicate
// (dashboard_id, feature_key) pair as shared.ErrConflict.
func (r *Repository) CreateFeature(ctx context.Context, f Feature) (Feature, error) {
	query := `
		INSERT INTO features (dashboard_id, feature_key, name, description, component, icon, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + featureColumns
	row := r.pool.QueryRow(ctx, query, f.DashboardID, f.Key, f.Name, f.Description, f.Component, f.Icon, f.OrderIndex)
	out, err := scanFeature(row)
	if err != nil {
		return Feature{}, db.TranslateErr(err)
	}
	return out, nil
}

// GetFeature fetches a feature by id.
func (r *Repository) GetFeature(ctx context.Context, id int64) (Feature, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+featureColumns+` FROM features WHERE id = $1`, id)
	out, err := scanFeature(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feature{}, fmt.Errorf("%w: feature %d", shared.ErrNotFound, id)
		}
		return Feature{}, db.TranslateErr(err)
	}
	return out, nil
}

// UpdateFeature writes mutable feature fields.
func (r *Repository) UpdateFeature(ctx context.Context, f Feature) (Feature, error) {
	query := `
		UPDATE features
		SET name = $2, description = $3, component = $4, icon = $5, order_index = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + featureColumns
	row := r.pool.QueryRow(ctx, query, f.ID, f.Name, f.Description, f.Component, f.Icon, f.OrderIndex)
	out, err := scanFeature(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feature{}, fmt.Errorf("%w: feature %d", shared.ErrNotFound, f.ID)
		}
		return Feature{}, db.TranslateErr(err)
	}
	return out, nil
}

// DeleteFeature removes a feature and every grant referencing it.
func (r *Repository) DeleteFeature(ctx context.Context, id int64) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM feature_grants WHERE feature_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM features WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: feature %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

// ListFeatures returns features of a dashboard sorted by order index, ties
// broken by id so the sequence is deterministic.
func (r *Repository) ListFeatures(ctx context.Context, dashboardID int64) ([]Feature, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+featureColumns+` FROM features
		WHERE dashboard_id = $1
		ORDER BY order_index, id`, dashboardID)
	if err != nil {
		return nil, db.TranslateErr(err)
	}
	defer rows.Close()
	var out []Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, db.TranslateErr(err)
	}
	return out, nil
}

// Snapshot reads the full registry in one consistent transaction.
func (r *Repository) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Features: make(map[int64][]Feature)}
	err := db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+dashboardColumns+` FROM dashboards ORDER BY lower(name), id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDashboard(rows)
			if err != nil {
				return err
			}
			snap.Dashboards = append(snap.Dashboards, d)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		frows, err := tx.Query(ctx, `SELECT `+featureColumns+` FROM features ORDER BY dashboard_id, order_index, id`)
		if err != nil {
			return err
		}
		defer frows.Close()
		for frows.Next() {
			f, err := scanFeature(frows)
			if err != nil {
				return err
			}
			snap.Features[f.DashboardID] = append(snap.Features[f.DashboardID], f)
		}
		return frows.Err()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func scanDashboard(row pgx.Row) (Dashboard, error) {
	var d Dashboard
	err := row.Scan(&d.ID, &d.Slug, &d.Name, &d.Description, &d.Icon, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func scanFeature(row pgx.Row) (Feature, error) {
	var f Feature
	err := row.Scan(&f.ID, &f.DashboardID, &f.Key, &f.Name, &f.Description, &f.Component, &f.Icon, &f.OrderIndex, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}
