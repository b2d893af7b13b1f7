package grants

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-hr/lumina-backoffice/internal/registry"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

type mockRepository struct {
	mu sync.Mutex

	dashboards map[int64]registry.Dashboard
	features   map[int64]registry.Feature

	dashboardGrants map[int64]map[int64]struct{}
	featureGrants   map[int64]map[int64]Capabilities

	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		dashboards:      make(map[int64]registry.Dashboard),
		features:        make(map[int64]registry.Feature),
		dashboardGrants: make(map[int64]map[int64]struct{}),
		featureGrants:   make(map[int64]map[int64]Capabilities),
	}
}

// WithTx runs fn against copy-on-write grant state: the copies replace the
// real maps only when fn succeeds, mirroring transactional rollback.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txError != nil {
		return m.txError
	}
	tx := &mockTxRepo{
		mock:            m,
		dashboardGrants: copyDashboardGrants(m.dashboardGrants),
		featureGrants:   copyFeatureGrants(m.featureGrants),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.dashboardGrants = tx.dashboardGrants
	m.featureGrants = tx.featureGrants
	return nil
}

// GetProfile reads both grant maps under one lock, matching the single
// consistent transaction the real repository uses.
func (m *mockRepository) GetProfile(ctx context.Context, adminID int64) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile := NewProfile()
	for id := range m.dashboardGrants[adminID] {
		profile.DashboardIDs[id] = struct{}{}
	}
	for id, c := range m.featureGrants[adminID] {
		profile.Features[id] = c
	}
	return profile, nil
}

type mockTxRepo struct {
	mock            *mockRepository
	dashboardGrants map[int64]map[int64]struct{}
	featureGrants   map[int64]map[int64]Capabilities
}

func (t *mockTxRepo) DashboardsByIDs(ctx context.Context, ids []int64) (map[int64]registry.Dashboard, error) {
	out := make(map[int64]registry.Dashboard)
	for _, id := range ids {
		if d, ok := t.mock.dashboards[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (t *mockTxRepo) FeaturesByIDs(ctx context.Context, ids []int64) (map[int64]registry.Feature, error) {
	out := make(map[int64]registry.Feature)
	for _, id := range ids {
		if f, ok := t.mock.features[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (t *mockTxRepo) DeleteProfile(ctx context.Context, adminID int64) error {
	delete(t.dashboardGrants, adminID)
	delete(t.featureGrants, adminID)
	return nil
}

func (t *mockTxRepo) InsertDashboardGrants(ctx context.Context, adminID int64, dashboardIDs []int64) error {
	if len(dashboardIDs) == 0 {
		return nil
	}
	set := t.dashboardGrants[adminID]
	if set == nil {
		set = make(map[int64]struct{})
		t.dashboardGrants[adminID] = set
	}
	for _, id := range dashboardIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (t *mockTxRepo) InsertFeatureGrants(ctx context.Context, adminID int64, features map[int64]Capabilities) error {
	if len(features) == 0 {
		return nil
	}
	set := t.featureGrants[adminID]
	if set == nil {
		set = make(map[int64]Capabilities)
		t.featureGrants[adminID] = set
	}
	for id, c := range features {
		set[id] = c
	}
	return nil
}

func copyDashboardGrants(src map[int64]map[int64]struct{}) map[int64]map[int64]struct{} {
	out := make(map[int64]map[int64]struct{}, len(src))
	for admin, set := range src {
		inner := make(map[int64]struct{}, len(set))
		for id := range set {
			inner[id] = struct{}{}
		}
		out[admin] = inner
	}
	return out
}

func copyFeatureGrants(src map[int64]map[int64]Capabilities) map[int64]map[int64]Capabilities {
	out := make(map[int64]map[int64]Capabilities, len(src))
	for admin, set := range src {
		inner := make(map[int64]Capabilities, len(set))
		for id, c := range set {
			inner[id] = c
		}
		out[admin] = inner
	}
	return out
}

type mockDirectory struct {
	admins map[int64]shared.Identity
}

func (m *mockDirectory) AdminByID(ctx context.Context, id int64) (shared.Identity, error) {
	admin, ok := m.admins[id]
	if !ok {
		return shared.Identity{}, fmt.Errorf("%w: admin %d", shared.ErrNotFound, id)
	}
	return admin, nil
}

const (
	adminA      = int64(10)
	superadminS = int64(99)
)

func newTestService(repo *mockRepository) *Service {
	dir := &mockDirectory{admins: map[int64]shared.Identity{
		adminA:      {ID: adminA, Username: "a1"},
		superadminS: {ID: superadminS, Username: "s1", IsSuperadmin: true},
	}}
	return NewService(repo, dir, nil, nil)
}

func seedRegistry(repo *mockRepository) (payrollID, runPayrollID int64) {
	repo.dashboards[1] = registry.Dashboard{ID: 1, Slug: "payroll", Name: "Payroll", IsActive: true}
	repo.features[100] = registry.Feature{ID: 100, DashboardID: 1, Key: "run-payroll"}
	return 1, 100
}

func TestReplaceAdminGrantsCommitsFullProfile(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, featID := seedRegistry(repo)

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID}, map[int64]Capabilities{featID: {View: true, Create: true}})
	require.NoError(t, err)

	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.True(t, profile.HasDashboard(dashID))
	assert.Equal(t, Capabilities{View: true, Create: true}, profile.Features[featID])
}

func TestReplaceAdminGrantsIsFullReplaceNotMerge(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, featID := seedRegistry(repo)
	repo.dashboards[2] = registry.Dashboard{ID: 2, Slug: "people", Name: "People", IsActive: true}
	repo.features[200] = registry.Feature{ID: 200, DashboardID: 2, Key: "employee-list"}

	require.NoError(t, svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID, 2}, map[int64]Capabilities{featID: {View: true}, 200: {View: true}}))

	// New profile omits the payroll dashboard entirely.
	require.NoError(t, svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{2}, map[int64]Capabilities{200: {View: true, Edit: true}}))

	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.False(t, profile.HasDashboard(dashID))
	assert.NotContains(t, profile.Features, featID)
	assert.Equal(t, Capabilities{View: true, Edit: true}, profile.Features[int64(200)])
}

func TestReplaceAdminGrantsRejectsActionWithoutView(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, featID := seedRegistry(repo)

	require.NoError(t, svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID}, map[int64]Capabilities{featID: {View: true, Create: true}}))

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID}, map[int64]Capabilities{featID: {Edit: true}})
	require.ErrorIs(t, err, shared.ErrValidation)

	// The prior profile survives untouched.
	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.Equal(t, Capabilities{View: true, Create: true}, profile.Features[featID])
}

func TestReplaceAdminGrantsRejectsFeatureWithoutDashboardGate(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	_, featID := seedRegistry(repo)

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		nil, map[int64]Capabilities{featID: {View: true}})
	require.ErrorIs(t, err, shared.ErrValidation)

	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.Empty(t, profile.Features)
}

func TestReplaceAdminGrantsAtomicOnMidwayFailure(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, featID := seedRegistry(repo)

	require.NoError(t, svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID}, map[int64]Capabilities{featID: {View: true}}))

	// Unknown feature id fails validation inside the transaction after the
	// dashboard checks have already passed.
	err := svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID}, map[int64]Capabilities{featID: {View: true, Export: true}, 999: {View: true}})
	require.ErrorIs(t, err, shared.ErrNotFound)

	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.True(t, profile.HasDashboard(dashID))
	assert.Equal(t, Capabilities{View: true}, profile.Features[featID], "prior profile must survive, not a partial mix")
}

func TestReplaceAdminGrantsRejectsUnknownDashboard(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, adminA, []int64{42}, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReplaceAdminGrantsRejectsInactiveDashboard(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	repo.dashboards[3] = registry.Dashboard{ID: 3, Slug: "archive", Name: "Archive", IsActive: false}

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, adminA, []int64{3}, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReplaceAdminGrantsRejectsUnknownAdmin(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, _ := seedRegistry(repo)

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, 12345, []int64{dashID}, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReplaceAdminGrantsRejectsSuperadminTarget(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, _ := seedRegistry(repo)

	err := svc.ReplaceAdminGrants(context.Background(), superadminS, superadminS, []int64{dashID}, nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Clearing a superadmin profile is allowed; it is already the empty set.
	require.NoError(t, svc.ReplaceAdminGrants(context.Background(), superadminS, superadminS, nil, nil))
}

func TestRevokeAllClearsProfile(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, featID := seedRegistry(repo)

	require.NoError(t, svc.ReplaceAdminGrants(context.Background(), superadminS, adminA,
		[]int64{dashID}, map[int64]Capabilities{featID: {View: true, Delete: true}}))
	require.NoError(t, svc.RevokeAll(context.Background(), superadminS, adminA))

	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.Empty(t, profile.DashboardIDs)
	assert.Empty(t, profile.Features)
}

func TestGetAdminGrantsNeverReturnsTornProfile(t *testing.T) {
	// A reader racing a replace must observe exactly one committed profile,
	// never the dashboards of one paired with the features of another.
	repo := newMockRepository()
	svc := newTestService(repo)
	dashID, featID := seedRegistry(repo)
	repo.dashboards[2] = registry.Dashboard{ID: 2, Slug: "people", Name: "People", IsActive: true}
	repo.features[200] = registry.Feature{ID: 200, DashboardID: 2, Key: "employee-list"}

	payrollOnly := map[int64]Capabilities{featID: {View: true}}
	peopleOnly := map[int64]Capabilities{200: {View: true, Edit: true}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if i%2 == 0 {
				_ = svc.ReplaceAdminGrants(context.Background(), superadminS, adminA, []int64{dashID}, payrollOnly)
			} else {
				_ = svc.ReplaceAdminGrants(context.Background(), superadminS, adminA, []int64{2}, peopleOnly)
			}
		}
	}()

	for {
		profile, err := svc.GetAdminGrants(context.Background(), adminA)
		require.NoError(t, err)
		switch {
		case len(profile.DashboardIDs) == 0 && len(profile.Features) == 0:
			// Nothing committed yet.
		case profile.HasDashboard(dashID) && !profile.HasDashboard(2):
			assert.Equal(t, payrollOnly, profile.Features)
		case profile.HasDashboard(2) && !profile.HasDashboard(dashID):
			assert.Equal(t, peopleOnly, profile.Features)
		default:
			t.Fatalf("profile mixes two committed states: %+v", profile)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestGetAdminGrantsEmptyProfileIsNotAnError(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	profile, err := svc.GetAdminGrants(context.Background(), adminA)
	require.NoError(t, err)
	assert.Empty(t, profile.DashboardIDs)
	assert.Empty(t, profile.Features)
}

func TestCapabilitiesValidate(t *testing.T) {
	cases := []struct {
		name string
		caps Capabilities
		ok   bool
	}{
		{"empty", Capabilities{}, true},
		{"view only", Capabilities{View: true}, true},
		{"view and actions", Capabilities{View: true, Create: true, Export: true}, true},
		{"create without view", Capabilities{Create: true}, false},
		{"export without view", Capabilities{Export: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.caps.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, shared.ErrValidation)
			}
		})
	}
}
