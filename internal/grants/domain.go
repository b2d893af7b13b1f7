package grants

import (
	"fmt"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Verb names one of the five capabilities attached to an admin-feature pair.
type Verb string

const (
	VerbView   Verb = "view"
	VerbCreate Verb = "create"
	VerbEdit   Verb = "edit"
	VerbDelete Verb = "delete"
	VerbExport Verb = "export"
)

// Verbs lists all capability verbs in canonical order.
func Verbs() []Verb {
	return []Verb{VerbView, VerbCreate, VerbEdit, VerbDelete, VerbExport}
}

// ParseVerb converts an external verb name.
func ParseVerb(s string) (Verb, error) {
	switch Verb(s) {
	case VerbView, VerbCreate, VerbEdit, VerbDelete, VerbExport:
		return Verb(s), nil
	}
	return "", fmt.Errorf("%w: unknown verb %q", shared.ErrValidation, s)
}

// Capabilities is the five-boolean capability set for one admin on one
// feature. View is the prerequisite capability: any action verb without view
// is an invalid set, rejected rather than silently corrected.
type Capabilities struct {
	View   bool
	Create bool
	Edit   bool
	Delete bool
	Export bool
}

// AllowAll returns the full capability set. Superadmin views are built from
// it; it is never stored.
func AllowAll() Capabilities {
	return Capabilities{View: true, Create: true, Edit: true, Delete: true, Export: true}
}

// Validate enforces the view-prerequisite rule.
func (c Capabilities) Validate() error {
	if !c.View && (c.Create || c.Edit || c.Delete || c.Export) {
		return fmt.Errorf("%w: capability set requires view before any action verb", shared.ErrValidation)
	}
	return nil
}

// Empty reports whether no capability is set.
func (c Capabilities) Empty() bool {
	return c == Capabilities{}
}

// Has reports whether the given verb is set.
func (c Capabilities) Has(verb Verb) bool {
	switch verb {
	case VerbView:
		return c.View
	case VerbCreate:
		return c.Create
	case VerbEdit:
		return c.Edit
	case VerbDelete:
		return c.Delete
	case VerbExport:
		return c.Export
	}
	return false
}

// DashboardGrant records that an admin may access a dashboard at all. Its
// existence is the coarse gate; without it no feature grant under the
// dashboard is reachable.
type DashboardGrant struct {
	AdminID     int64
	DashboardID int64
}

// FeatureGrant is the stored capability matrix entry for one admin-feature pair.
type FeatureGrant struct {
	AdminID      int64
	FeatureID    int64
	Capabilities Capabilities
}

// Profile is an admin's complete access profile: the dashboards they may
// enter and their per-feature capability sets.
type Profile struct {
	DashboardIDs map[int64]struct{}
	Features     map[int64]Capabilities
}

// NewProfile returns an empty profile. An admin who has never been granted
// anything has an empty profile, not a missing one.
func NewProfile() Profile {
	return Profile{
		DashboardIDs: make(map[int64]struct{}),
		Features:     make(map[int64]Capabilities),
	}
}

// HasDashboard reports whether the profile includes the dashboard gate.
func (p Profile) HasDashboard(id int64) bool {
	_, ok := p.DashboardIDs[id]
	return ok
}
