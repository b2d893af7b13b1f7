package authz

import (
	"context"
	"fmt"

	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/registry"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// RegistrySnapshots supplies fresh registry snapshots.
type RegistrySnapshots interface {
	Snapshot(ctx context.Context) (registry.Snapshot, error)
}

// GrantProfiles supplies fresh grant profiles.
type GrantProfiles interface {
	GetProfile(ctx context.Context, adminID int64) (grants.Profile, error)
}

// Service is the composition boundary: it loads fresh snapshots on every
// call and never trusts a previously computed view across writes.
type Service struct {
	registry RegistrySnapshots
	grants   GrantProfiles
}

// NewService builds a Service instance.
func NewService(reg RegistrySnapshots, profiles GrantProfiles) *Service {
	return &Service{registry: reg, grants: profiles}
}

// GetEffectiveView resolves the admin's view from the current stores.
func (s *Service) GetEffectiveView(ctx context.Context, admin shared.Identity) (EffectiveView, error) {
	snap, err := s.registry.Snapshot(ctx)
	if err != nil {
		return EffectiveView{}, err
	}
	if admin.IsSuperadmin {
		// The bypass is unconditional: no grant store lookup occurs.
		return Resolve(admin, snap, grants.Profile{}), nil
	}
	profile, err := s.grants.GetProfile(ctx, admin.ID)
	if err != nil {
		return EffectiveView{}, err
	}
	return Resolve(admin, snap, profile), nil
}

// GetDashboardDetail returns one visible dashboard by slug. A slug outside
// the admin's view fails with shared.ErrForbidden whether or not the
// dashboard exists, so unauthorized callers cannot enumerate the registry.
func (s *Service) GetDashboardDetail(ctx context.Context, admin shared.Identity, slug string) (DashboardView, error) {
	view, err := s.GetEffectiveView(ctx, admin)
	if err != nil {
		return DashboardView{}, err
	}
	dv, ok := view.FindDashboard(slug)
	if !ok {
		return DashboardView{}, fmt.Errorf("%w: dashboard %q", shared.ErrForbidden, slug)
	}
	return dv, nil
}

// CheckCapability reports whether the admin holds the verb on the feature.
// It re-resolves from the stores every time so a long-lived session cannot
// act on permissions that were revoked after the view was rendered.
func (s *Service) CheckCapability(ctx context.Context, admin shared.Identity, featureID int64, verb grants.Verb) (bool, error) {
	view, err := s.GetEffectiveView(ctx, admin)
	if err != nil {
		return false, err
	}
	caps, ok := view.Capability(featureID)
	if !ok {
		return false, nil
	}
	return caps.Has(verb), nil
}
