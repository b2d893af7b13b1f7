package registry

import "time"

// Dashboard is a named, independently toggleable admin work area. Slug is the
// stable external identifier and is write-once: renaming means delete and
// recreate, never an in-place mutation.
type Dashboard struct {
	ID          int64
	Slug        string
	Name        string
	Description string
	Icon        string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Feature is a unit of capability within exactly one dashboard.
// (DashboardID, Key) is unique; OrderIndex defines presentation order only.
type Feature struct {
	ID          int64
	DashboardID int64
	Key         string
	Name        string
	Description string
	Component   string
	Icon        string
	OrderIndex  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot is a point-in-time read of the whole registry. The resolver works
// off snapshots only, so it never holds a store handle.
type Snapshot struct {
	Dashboards []Dashboard
	// Features keyed by dashboard id, sorted by order index then id.
	Features map[int64][]Feature
}

// CreateDashboardInput carries fields for a new dashboard.
type CreateDashboardInput struct {
	Slug        string `validate:"required,max=64"`
	Name        string `validate:"required,max=128"`
	Description string `validate:"max=512"`
	Icon        string `validate:"max=128"`
}

// UpdateDashboardInput carries a partial dashboard update. Slug is present
// only so an attempted change can be rejected explicitly.
type UpdateDashboardInput struct {
	Slug        *string `validate:"omitempty,max=64"`
	Name        *string `validate:"omitempty,max=128"`
	Description *string `validate:"omitempty,max=512"`
	Icon        *string `validate:"omitempty,max=128"`
	IsActive    *bool
}

// CreateFeatureInput carries fields for a new feature under a dashboard.
type CreateFeatureInput struct {
	Key         string `validate:"required,max=64"`
	Name        string `validate:"required,max=128"`
	Description string `validate:"max=512"`
	Component   string `validate:"max=256"`
	Icon        string `validate:"max=128"`
	OrderIndex  int    `validate:"gte=0"`
}

// UpdateFeatureInput carries a partial feature update.
type UpdateFeatureInput struct {
	Name        *string `validate:"omitempty,max=128"`
	Description *string `validate:"omitempty,max=512"`
	Component   *string `validate:"omitempty,max=256"`
	Icon        *string `validate:"omitempty,max=128"`
	OrderIndex  *int    `validate:"omitempty,gte=0"`
}
