package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

func newTestRouter(store *stubGrants) http.Handler {
	svc := NewService(&stubRegistry{snap: testSnapshot()}, store)
	handler := NewHandler(nil, svc)
	mw := Middleware{Service: svc}

	r := chi.NewRouter()
	r.Route("/me", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		handler.MountRoutes(r)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, target string, id *shared.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != nil {
		req = req.WithContext(shared.ContextWithIdentity(context.Background(), id))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestEffectiveViewEndpoint(t *testing.T) {
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, map[int64]grants.Capabilities{100: {View: true, Create: true}}),
	}}
	router := newTestRouter(store)

	res := doRequest(t, router, "/me/view", &admin)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Dashboards []struct {
			Slug     string `json:"slug"`
			Features []struct {
				Key       string `json:"feature_key"`
				CanView   bool   `json:"can_view"`
				CanCreate bool   `json:"can_create"`
				CanEdit   bool   `json:"can_edit"`
			} `json:"features"`
		} `json:"dashboards"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Dashboards, 1)
	assert.Equal(t, "payroll", body.Dashboards[0].Slug)
	require.Len(t, body.Dashboards[0].Features, 1)
	assert.Equal(t, "run-payroll", body.Dashboards[0].Features[0].Key)
	assert.True(t, body.Dashboards[0].Features[0].CanView)
	assert.True(t, body.Dashboards[0].Features[0].CanCreate)
	assert.False(t, body.Dashboards[0].Features[0].CanEdit)
}

func TestEffectiveViewEmptyIsValid(t *testing.T) {
	router := newTestRouter(&stubGrants{})

	res := doRequest(t, router, "/me/view", &admin)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Dashboards []any `json:"dashboards"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Empty(t, body.Dashboards)
}

func TestEffectiveViewRequiresAuthentication(t *testing.T) {
	router := newTestRouter(&stubGrants{})

	res := doRequest(t, router, "/me/view", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestDashboardDetailForbiddenIsUniform(t *testing.T) {
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, nil),
	}}
	router := newTestRouter(store)

	resUngranted := doRequest(t, router, "/me/dashboards/people", &admin)
	resUnknown := doRequest(t, router, "/me/dashboards/ghost", &admin)

	assert.Equal(t, http.StatusForbidden, resUngranted.Code)
	assert.Equal(t, http.StatusForbidden, resUnknown.Code)
	assert.JSONEq(t, resUngranted.Body.String(), resUnknown.Body.String())
}

func TestCheckCapabilityEndpoint(t *testing.T) {
	store := &stubGrants{profiles: map[int64]grants.Profile{
		admin.ID: profileWith([]int64{1}, map[int64]grants.Capabilities{100: {View: true, Export: true}}),
	}}
	router := newTestRouter(store)

	res := doRequest(t, router, "/me/capabilities/100/export", &admin)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"allowed":true}`, res.Body.String())

	res = doRequest(t, router, "/me/capabilities/100/delete", &admin)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"allowed":false}`, res.Body.String())

	res = doRequest(t, router, "/me/capabilities/100/destroy", &admin)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
