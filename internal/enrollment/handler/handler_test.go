package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapass/internal/audit"
	"datapass/internal/company"
	"datapass/internal/enrollment/service"
	"datapass/internal/enrollment/store"
	"datapass/internal/jobs"
	"datapass/internal/roles"
	id "datapass/pkg/domain"
	"datapass/pkg/testutil"
)

type fixture struct {
	router chi.Router
	svc    *service.Service
	roles  *roles.InMemoryStore

	applicant id.UserID
	admin     id.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roleStore := roles.NewInMemoryStore()
	svc := service.New(
		store.NewInMemory(),
		audit.NewInMemoryStore(),
		roleStore,
		jobs.NewInMemoryQueue(8, slog.Default()),
		service.WithLogger(slog.Default()),
		service.WithCompanyLookup(company.StaticLookup{"13002526500013": "Commune de Clamart"}),
	)

	f := &fixture{
		svc:       svc,
		roles:     roleStore,
		applicant: id.UserID(uuid.New()),
		admin:     id.UserID(uuid.New()),
	}

	role, object := roles.ProviderAdminRole(id.VariantAPIEntreprise)
	require.NoError(t, roleStore.Grant(context.Background(), role, f.admin, object))

	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	f.router = r
	return f
}

// do performs a request as the given user with an authenticated context, the
// way the auth middleware would present it.
func (f *fixture) do(t *testing.T, method, path string, body any, user id.UserID) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	req = testutil.AsUser(req, user, "agent@clamart.fr")
	req = testutil.AtTime(req, time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC))
	return testutil.DoRequest(f.router, req)
}

func completeBody() map[string]any {
	return map[string]any{
		"variant":     "api_entreprise",
		"title":       "Acces aux donnees entreprise",
		"description": "Instruction des marches publics",
		"siret":       "13002526500013",
		"scopes":      map[string]any{"attestations_fiscales": "true"},
		"contacts": []map[string]string{
			{"id": "dpo", "nom": "A. Martin", "email": "dpo@clamart.fr"},
			{"id": "technique", "nom": "B. Robert", "email": "tech@clamart.fr"},
			{"id": "responsable_traitement", "nom": "C. Durand", "email": "rt@clamart.fr"},
		},
		"terms_accepted": true,
		"legal_basis":    "Code de la commande publique",
	}
}

func decodeEnrollment(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var parsed map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&parsed))
	return parsed
}

func TestCreateAndFetch(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/enrollments", completeBody(), f.applicant)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeEnrollment(t, w)
	assert.Equal(t, "pending", created["state"])
	enrollmentID := created["id"].(string)

	t.Run("applicant fetches their record", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/enrollments/"+enrollmentID, nil, f.applicant)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, enrollmentID, decodeEnrollment(t, w)["id"])
	})

	t.Run("stranger gets 404", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/enrollments/"+enrollmentID, nil, id.UserID(uuid.New()))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is a 400", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/enrollments/not-a-uuid", nil, f.applicant)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown variant is rejected", func(t *testing.T) {
		body := completeBody()
		body["variant"] = "api_inconnue"
		w := f.do(t, http.MethodPost, "/enrollments", body, f.applicant)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated request is a 401", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/enrollments/"+enrollmentID, nil, id.UserID{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTransitionEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/enrollments", completeBody(), f.applicant)
	require.Equal(t, http.StatusCreated, w.Code)
	enrollmentID := decodeEnrollment(t, w)["id"].(string)

	t.Run("submit with an empty body", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/submit", nil, f.applicant)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TransitionResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "sent", resp.State)
		assert.Empty(t, resp.Warnings)
	})

	t.Run("wrong party gets a 401", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/validate", nil, f.applicant)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refusal carries the reviewer comment", func(t *testing.T) {
		body := map[string]string{"comment": "hors perimetre"}
		w := f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/refuse", body, f.admin)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodGet, "/enrollments/"+enrollmentID+"/events", nil, f.applicant)
		require.Equal(t, http.StatusOK, w.Code)
		var events []map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&events))
		require.Len(t, events, 2)
		assert.Equal(t, "refuse", events[1]["name"])
		assert.Equal(t, "hors perimetre", events[1]["comment"])
	})

	t.Run("invalid transition maps to 422", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/submit", nil, f.applicant)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown event is a 400", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/escalate", nil, f.applicant)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSideEffectFailureResponse(t *testing.T) {
	// No token backend is wired, so validating an api_particulier record
	// commits the transition and then fails its mandatory registration.
	f := newFixture(t)

	role, object := roles.ProviderAdminRole(id.VariantAPIParticulier)
	require.NoError(t, f.roles.Grant(context.Background(), role, f.admin, object))

	body := completeBody()
	body["variant"] = "api_particulier"
	w := f.do(t, http.MethodPost, "/enrollments", body, f.applicant)
	require.Equal(t, http.StatusCreated, w.Code)
	enrollmentID := decodeEnrollment(t, w)["id"].(string)

	w = f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/submit", nil, f.applicant)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/enrollments/"+enrollmentID+"/validate", nil, f.admin)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp SideEffectFailureResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "side_effect_failed", resp.Error)
	assert.Equal(t, "validated", resp.State)
	require.NotNil(t, resp.Enrollment)

	// The committed state survives the failed side effect.
	w = f.do(t, http.MethodGet, "/enrollments/"+enrollmentID, nil, f.applicant)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "validated", decodeEnrollment(t, w)["state"])
}

func TestUpdateEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/enrollments", completeBody(), f.applicant)
	require.Equal(t, http.StatusCreated, w.Code)
	enrollmentID := decodeEnrollment(t, w)["id"].(string)

	t.Run("applicant edits a draft", func(t *testing.T) {
		body := map[string]any{"title": "  Nouveau titre  "}
		w := f.do(t, http.MethodPatch, "/enrollments/"+enrollmentID, body, f.applicant)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Nouveau titre", decodeEnrollment(t, w)["title"])
	})

	t.Run("validation failure reports fields", func(t *testing.T) {
		incomplete := map[string]any{"variant": "api_entreprise", "title": "Dossier incomplet"}
		w := f.do(t, http.MethodPost, "/enrollments", incomplete, f.applicant)
		require.Equal(t, http.StatusCreated, w.Code)
		draftID := decodeEnrollment(t, w)["id"].(string)

		w = f.do(t, http.MethodPost, "/enrollments/"+draftID+"/submit", nil, f.applicant)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "validation_failed", resp.Error)
		assert.Contains(t, resp.Fields, "siret")
	})
}

func TestListEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/enrollments", completeBody(), f.applicant)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("applicant sees their own", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/enrollments", nil, f.applicant)
		require.Equal(t, http.StatusOK, w.Code)
		var list []map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
		assert.Len(t, list, 1)
	})

	t.Run("stranger sees an empty list", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/enrollments", nil, id.UserID(uuid.New()))
		require.Equal(t, http.StatusOK, w.Code)
		var list []map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
		assert.Empty(t, list)
	})
}
