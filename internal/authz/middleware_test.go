package authz

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

func newCapabilityRouter(store *stubGrants, featureID int64, verb grants.Verb) http.Handler {
	svc := NewService(&stubRegistry{snap: testSnapshot()}, store)
	mw := Middleware{Service: svc}

	r := chi.NewRouter()
	r.Route("/payroll-runs", func(r chi.Router) {
		r.Use(mw.RequireCapability(featureID, verb))
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestRequireCapabilityAllowsGrantedVerb(t *testing.T) {
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, map[int64]grants.Capabilities{100: {View: true, Export: true}}),
	}}
	router := newCapabilityRouter(store, 100, grants.VerbExport)

	res := doRequest(t, router, "/payroll-runs/", &admin)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRequireCapabilityDeniesMissingVerb(t *testing.T) {
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, map[int64]grants.Capabilities{100: {View: true}}),
	}}
	router := newCapabilityRouter(store, 100, grants.VerbDelete)

	res := doRequest(t, router, "/payroll-runs/", &admin)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireCapabilityDenialIsUniform(t *testing.T) {
	// Ungranted feature and nonexistent feature produce identical denials.
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, nil),
	}}

	resUngranted := doRequest(t, newCapabilityRouter(store, 100, grants.VerbView), "/payroll-runs/", &admin)
	resUnknown := doRequest(t, newCapabilityRouter(store, 9999, grants.VerbView), "/payroll-runs/", &admin)

	assert.Equal(t, http.StatusForbidden, resUngranted.Code)
	assert.Equal(t, http.StatusForbidden, resUnknown.Code)
	assert.JSONEq(t, resUngranted.Body.String(), resUnknown.Body.String())
}

func TestRequireCapabilitySuperadminPasses(t *testing.T) {
	router := newCapabilityRouter(&stubGrants{}, 200, grants.VerbDelete)

	res := doRequest(t, router, "/payroll-runs/", &superadmin)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRequireCapabilityRejectsUnauthenticated(t *testing.T) {
	router := newCapabilityRouter(&stubGrants{}, 100, grants.VerbView)

	res := doRequest(t, router, "/payroll-runs/", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireCapabilitySeesRevocationImmediately(t *testing.T) {
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, map[int64]grants.Capabilities{100: {View: true, Edit: true}}),
	}}
	router := newCapabilityRouter(store, 100, grants.VerbEdit)

	res := doRequest(t, router, "/payroll-runs/", &admin)
	require.Equal(t, http.StatusOK, res.Code)

	store.profiles[admin.ID] = profileWith([]int64{1}, map[int64]grants.Capabilities{100: {View: true}})

	res = doRequest(t, router, "/payroll-runs/", &admin)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireCapabilityPropagatesStoreErrors(t *testing.T) {
	store := &stubGrants{err: shared.ErrStoreUnavailable}
	router := newCapabilityRouter(store, 100, grants.VerbView)

	res := doRequest(t, router, "/payroll-runs/", &admin)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}
