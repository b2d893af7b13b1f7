// Package authz computes what an admin can see and do right now. The
// resolver is a pure function over registry and grant snapshots: no store
// handle, no writes, and nothing cached between calls, so stale authorization
// state never survives a mutation.
package authz

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/registry"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// FeatureView is a feature visible to an admin with its resolved capability set.
type FeatureView struct {
	Feature      registry.Feature
	Capabilities grants.Capabilities
}

// DashboardView is a dashboard visible to an admin with its visible features.
type DashboardView struct {
	Dashboard registry.Dashboard
	Features  []FeatureView
}

// EffectiveView is the computed per-admin composition of visible dashboards
// and features. An empty view is a valid state, not an error.
type EffectiveView struct {
	Dashboards []DashboardView
}

// FindDashboard returns the visible dashboard with the given slug.
func (v EffectiveView) FindDashboard(slug string) (DashboardView, bool) {
	for _, d := range v.Dashboards {
		if d.Dashboard.Slug == slug {
			return d, true
		}
	}
	return DashboardView{}, false
}

// Capability returns the resolved capability set for a feature id, false when
// the feature is not visible at all.
func (v EffectiveView) Capability(featureID int64) (grants.Capabilities, bool) {
	for _, d := range v.Dashboards {
		for _, f := range d.Features {
			if f.Feature.ID == featureID {
				return f.Capabilities, true
			}
		}
	}
	return grants.Capabilities{}, false
}

// Resolve composes the effective view for one admin.
//
// Superadmins see every active dashboard with every feature and all verbs;
// the grant profile is ignored entirely, so superadmin access can never be
// revoked through the grant store. Everyone else sees the intersection of
// their dashboard gates with active dashboards, and within those only the
// features they hold an explicit grant for: a feature with no grant record is
// invisible, not visible-with-no-actions.
func Resolve(admin shared.Identity, snap registry.Snapshot, profile grants.Profile) EffectiveView {
	var view EffectiveView
	for _, d := range snap.Dashboards {
		if !d.IsActive {
			// Deactivation is a global kill switch overriding any grant.
			continue
		}
		if !admin.IsSuperadmin && !profile.HasDashboard(d.ID) {
			continue
		}
		dv := DashboardView{Dashboard: d}
		for _, f := range snap.Features[d.ID] {
			if admin.IsSuperadmin {
				dv.Features = append(dv.Features, FeatureView{Feature: f, Capabilities: grants.AllowAll()})
				continue
			}
			caps, ok := profile.Features[f.ID]
			if !ok {
				continue
			}
			dv.Features = append(dv.Features, FeatureView{Feature: f, Capabilities: caps})
		}
		view.Dashboards = append(view.Dashboards, dv)
	}

	sortView(&view)
	return view
}

// sortView orders dashboards by display name (case-insensitive) and features
// by order index then id, so the composition is deterministic regardless of
// grant insertion order.
func sortView(view *EffectiveView) {
	// collate.Collator mutates internal iterator state on every comparison,
	// so each call gets its own instance; Resolve runs concurrently across
	// requests and must not share one.
	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(view.Dashboards, func(i, j int) bool {
		a, b := view.Dashboards[i].Dashboard, view.Dashboards[j].Dashboard
		if c := coll.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	for i := range view.Dashboards {
		features := view.Dashboards[i].Features
		sort.SliceStable(features, func(a, b int) bool {
			if features[a].Feature.OrderIndex != features[b].Feature.OrderIndex {
				return features[a].Feature.OrderIndex < features[b].Feature.OrderIndex
			}
			return features[a].Feature.ID < features[b].Feature.ID
		})
	}
}
