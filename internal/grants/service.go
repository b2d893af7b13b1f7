package grants

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// AdminDirectory resolves admin identities. Admin accounts are owned by an
// external user-management process; the grant store only ever reads them.
type AdminDirectory interface {
	AdminByID(ctx context.Context, id int64) (shared.Identity, error)
}

// AuditRecorder persists audit rows for grant mutations.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service holds and atomically replaces admin access profiles.
type Service struct {
	repo   RepositoryPort
	admins AdminDirectory
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, admins AdminDirectory, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, admins: admins, audit: audit, logger: logger}
}

// ReplaceAdminGrants swaps the admin's entire profile in one transaction.
// Full replace, not merge: grants absent from the input are removed. On any
// validation failure nothing is committed and the prior profile survives —
// a partially applied permission update is a security defect.
//
// Validated inside the transaction, against the same snapshot the write sees:
//   - every capability set satisfies the view-prerequisite rule
//   - every dashboard id exists and is active
//   - every feature id exists and its dashboard is part of the new profile
//   - the target admin exists and is not a superadmin (superadmins never
//     hold stored grants; their permissions are computed)
func (s *Service) ReplaceAdminGrants(ctx context.Context, actorID, adminID int64, dashboardIDs []int64, features map[int64]Capabilities) error {
	for featureID, c := range features {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("feature %d: %w", featureID, err)
		}
	}

	admin, err := s.admins.AdminByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.IsSuperadmin && (len(dashboardIDs) > 0 || len(features) > 0) {
		return fmt.Errorf("%w: superadmin accounts hold no stored grants", shared.ErrValidation)
	}

	dashboardIDs = dedupe(dashboardIDs)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		dashboards, err := tx.DashboardsByIDs(ctx, dashboardIDs)
		if err != nil {
			return err
		}
		for _, id := range dashboardIDs {
			d, ok := dashboards[id]
			if !ok {
				return fmt.Errorf("%w: dashboard %d", shared.ErrNotFound, id)
			}
			if !d.IsActive {
				return fmt.Errorf("%w: dashboard %q is inactive", shared.ErrValidation, d.Slug)
			}
		}

		granted := make(map[int64]struct{}, len(dashboardIDs))
		for _, id := range dashboardIDs {
			granted[id] = struct{}{}
		}

		featureIDs := make([]int64, 0, len(features))
		for id := range features {
			featureIDs = append(featureIDs, id)
		}
		loaded, err := tx.FeaturesByIDs(ctx, featureIDs)
		if err != nil {
			return err
		}
		for _, id := range featureIDs {
			f, ok := loaded[id]
			if !ok {
				return fmt.Errorf("%w: feature %d", shared.ErrNotFound, id)
			}
			if _, ok := granted[f.DashboardID]; !ok {
				return fmt.Errorf("%w: feature %q requires a grant on its dashboard", shared.ErrValidation, f.Key)
			}
		}

		if err := tx.DeleteProfile(ctx, adminID); err != nil {
			return err
		}
		if err := tx.InsertDashboardGrants(ctx, adminID, dashboardIDs); err != nil {
			return err
		}
		return tx.InsertFeatureGrants(ctx, adminID, features)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "grants.replace", adminID, map[string]any{
		"dashboards": len(dashboardIDs),
		"features":   len(features),
	})
	return nil
}

// GetAdminGrants returns the admin's current profile. An admin who was never
// granted anything gets an empty profile, not an error.
func (s *Service) GetAdminGrants(ctx context.Context, adminID int64) (Profile, error) {
	if _, err := s.admins.AdminByID(ctx, adminID); err != nil {
		return Profile{}, err
	}
	return s.repo.GetProfile(ctx, adminID)
}

// GetProfile loads the profile without an admin existence check. The
// resolver uses it: a missing admin simply resolves to an empty view.
func (s *Service) GetProfile(ctx context.Context, adminID int64) (Profile, error) {
	return s.repo.GetProfile(ctx, adminID)
}

// RevokeAll removes every grant the admin holds; used when an account is
// deactivated.
func (s *Service) RevokeAll(ctx context.Context, actorID, adminID int64) error {
	if _, err := s.admins.AdminByID(ctx, adminID); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteProfile(ctx, adminID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "grants.revoke_all", adminID, nil)
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, adminID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "admin_grants",
		EntityID: strconv.FormatInt(adminID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
