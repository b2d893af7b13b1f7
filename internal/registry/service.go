package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// AuditRecorder persists audit rows for registry mutations.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the registry invariants: slug uniqueness and immutability,
// feature-key uniqueness within a dashboard, and cascade on delete.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateDashboard registers a new dashboard, active by default.
func (s *Service) CreateDashboard(ctx context.Context, actorID int64, in CreateDashboardInput) (Dashboard, error) {
	slug := strings.TrimSpace(in.Slug)
	name := strings.TrimSpace(in.Name)
	if slug == "" || name == "" {
		return Dashboard{}, fmt.Errorf("%w: slug and name are required", shared.ErrValidation)
	}
	d, err := s.repo.CreateDashboard(ctx, Dashboard{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Icon:        strings.TrimSpace(in.Icon),
		IsActive:    true,
	})
	if err != nil {
		return Dashboard{}, err
	}
	s.recordAudit(ctx, actorID, "dashboard.create", "dashboard", d.ID, map[string]any{"slug": d.Slug})
	return d, nil
}

// GetDashboard fetches a dashboard by id.
func (s *Service) GetDashboard(ctx context.Context, id int64) (Dashboard, error) {
	return s.repo.GetDashboard(ctx, id)
}

// ListDashboards returns all registered dashboards.
func (s *Service) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	return s.repo.ListDashboards(ctx)
}

// UpdateDashboard applies a partial update. The slug is write-once: any
// attempt to change it is rejected with shared.ErrImmutableField rather than
// silently ignored.
func (s *Service) UpdateDashboard(ctx context.Context, actorID, id int64, in UpdateDashboardInput) (Dashboard, error) {
	current, err := s.repo.GetDashboard(ctx, id)
	if err != nil {
		return Dashboard{}, err
	}
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != current.Slug {
		return Dashboard{}, fmt.Errorf("%w: dashboard slug", shared.ErrImmutableField)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Dashboard{}, fmt.Errorf("%w: dashboard name is required", shared.ErrValidation)
		}
		current.Name = name
	}
	if in.Description != nil {
		current.Description = strings.TrimSpace(*in.Description)
	}
	if in.Icon != nil {
		current.Icon = strings.TrimSpace(*in.Icon)
	}
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}
	updated, err := s.repo.UpdateDashboard(ctx, current)
	if err != nil {
		return Dashboard{}, err
	}
	s.recordAudit(ctx, actorID, "dashboard.update", "dashboard", updated.ID, map[string]any{"is_active": updated.IsActive})
	return updated, nil
}

// DeleteDashboard removes a dashboard, its features, and every grant under
// it in one atomic operation. A second delete of the same id reports
// shared.ErrNotFound.
func (s *Service) DeleteDashboard(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteDashboard(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "dashboard.delete", "dashboard", id, nil)
	return nil
}

// CreateFeature registers a feature under an existing dashboard.
func (s *Service) CreateFeature(ctx context.Context, actorID, dashboardID int64, in CreateFeatureInput) (Feature, error) {
	key := strings.TrimSpace(in.Key)
	name := strings.TrimSpace(in.Name)
	if key == "" || name == "" {
		return Feature{}, fmt.Errorf("%w: feature key and name are required", shared.ErrValidation)
	}
	// Resolve the dashboard first so an unknown parent reports not-found
	// rather than a bare foreign key violation.
	if _, err := s.repo.GetDashboard(ctx, dashboardID); err != nil {
		return Feature{}, err
	}
	f, err := s.repo.CreateFeature(ctx, Feature{
		DashboardID: dashboardID,
		Key:         key,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Component:   strings.TrimSpace(in.Component),
		Icon:        strings.TrimSpace(in.Icon),
		OrderIndex:  in.OrderIndex,
	})
	if err != nil {
		return Feature{}, err
	}
	s.recordAudit(ctx, actorID, "feature.create", "feature", f.ID, map[string]any{"dashboard_id": dashboardID, "key": key})
	return f, nil
}

// UpdateFeature applies a partial update to a feature. The key stays fixed,
// mirroring the dashboard slug rule.
func (s *Service) UpdateFeature(ctx context.Context, actorID, id int64, in UpdateFeatureInput) (Feature, error) {
	current, err := s.repo.GetFeature(ctx, id)
	if err != nil {
		return Feature{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Feature{}, fmt.Errorf("%w: feature name is required", shared.ErrValidation)
		}
		current.Name = name
	}
	if in.Description != nil {
		current.Description = strings.TrimSpace(*in.Description)
	}
	if in.Component != nil {
		current.Component = strings.TrimSpace(*in.Component)
	}
	if in.Icon != nil {
		current.Icon = strings.TrimSpace(*in.Icon)
	}
	if in.OrderIndex != nil {
		current.OrderIndex = *in.OrderIndex
	}
	updated, err := s.repo.UpdateFeature(ctx, current)
	if err != nil {
		return Feature{}, err
	}
	s.recordAudit(ctx, actorID, "feature.update", "feature", updated.ID, nil)
	return updated, nil
}

// DeleteFeature removes a feature together with every grant referencing it.
func (s *Service) DeleteFeature(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteFeature(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "feature.delete", "feature", id, nil)
	return nil
}

// ListFeatures returns the features of a dashboard in presentation order.
func (s *Service) ListFeatures(ctx context.Context, dashboardID int64) ([]Feature, error) {
	if _, err := s.repo.GetDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	return s.repo.ListFeatures(ctx, dashboardID)
}

// Snapshot exposes the registry snapshot for the resolver.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.repo.Snapshot(ctx)
}

// recordAudit is best-effort: a failed audit write is logged, never surfaced.
func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
