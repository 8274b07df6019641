package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"census-backend/internal/handlers"
	"census-backend/internal/health"
	router "census-backend/internal/http"
	"census-backend/internal/models"
	"census-backend/internal/services"
	"census-backend/internal/session"
)

// fakeSubmitter records the submitted tree instead of touching Postgres
type fakeSubmitter struct {
	submitted []*models.FamilyTree
	err       error
}

func (f *fakeSubmitter) Submit(_ context.Context, tree *models.FamilyTree) (*models.SubmissionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	// Deep copy via JSON so later session resets don't mutate the record
	raw, _ := json.Marshal(tree)
	var copied models.FamilyTree
	json.Unmarshal(raw, &copied)
	f.submitted = append(f.submitted, &copied)
	return &models.SubmissionResult{FamilyHeadID: "head-1", ChildrenInserted: len(tree.Sons) + len(tree.Daughters)}, nil
}

type emptyExportStore struct{}

func (emptyExportStore) ListFamilyHeads(context.Context) ([]models.FamilyHeadRow, error) {
	return nil, nil
}
func (emptyExportStore) ListSpouses(context.Context) ([]models.SpouseRow, error) { return nil, nil }
func (emptyExportStore) ListChildren(context.Context) ([]models.ChildRow, error) { return nil, nil }
func (emptyExportStore) ListChildSpouses(context.Context) ([]models.ChildSpouseRow, error) {
	return nil, nil
}
func (emptyExportStore) ListGrandchildren(context.Context) ([]models.GrandchildRow, error) {
	return nil, nil
}

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	State     models.FamilyTree `json:"state"`
}

func newTestServer(t *testing.T, submitter handlers.FamilySubmitter) *httptest.Server {
	t.Helper()

	sessions := session.NewStore(time.Hour)
	exportService, err := services.NewExportService(emptyExportStore{}, "3575")
	require.NoError(t, err)

	r := router.NewRouter(
		handlers.NewFormHandler(sessions, submitter),
		handlers.NewExportHandler(exportService),
		handlers.NewHealthHandler(health.NewChecker(nil, sessions.Count)),
		nil,
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) sessionResponse {
	t.Helper()
	defer resp.Body.Close()

	var out sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/form/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeSession(t, resp)
	require.NotEmpty(t, out.SessionID)
	return out.SessionID
}

func edit(t *testing.T, srv *httptest.Server, path, field, value string) sessionResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPatch, srv.URL+path, models.FieldEditRequest{Field: field, Value: value})
	require.Equal(t, http.StatusOK, resp.StatusCode, "edit %s=%s on %s", field, value, path)
	return decodeSession(t, resp)
}

func TestGetFormOptions(t *testing.T) {
	srv := newTestServer(t, &fakeSubmitter{})

	resp, err := http.Get(srv.URL + "/api/form/options")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		MaritalStatuses []string `json:"marital_statuses"`
		Occupations     []string `json:"occupations"`
		ChildTypes      []string `json:"child_types"`
		MaxChildren     int      `json:"max_children"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.Equal(t, models.MaritalStatuses, out.MaritalStatuses)
	assert.Equal(t, models.Occupations, out.Occupations)
	assert.Equal(t, []string{models.ChildTypeSon, models.ChildTypeDaughter}, out.ChildTypes)
	assert.Equal(t, models.MaxChildren, out.MaxChildren)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, &fakeSubmitter{})

	id := createSession(t, srv)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/form/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/form/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/form/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestEditFlowCascades(t *testing.T) {
	srv := newTestServer(t, &fakeSubmitter{})
	id := createSession(t, srv)
	base := "/api/form/sessions/" + id

	out := edit(t, srv, base+"/head", "first_name", "ram")
	assert.Equal(t, "RAM", out.State.Head.FirstName, "names are upper-cased")

	out = edit(t, srv, base+"/head", "marital_status", "married")
	require.NotNil(t, out.State.Spouse, "marrying the head creates the spouse")

	out = edit(t, srv, base+"/spouse", "number_of_sons", "2")
	assert.Len(t, out.State.Sons, 2)

	out = edit(t, srv, base+"/children/son/0", "first_name", "lav")
	assert.Equal(t, "LAV", out.State.Sons[0].FirstName)

	out = edit(t, srv, base+"/children/son/0", "marital_status", "married")
	require.NotNil(t, out.State.Sons[0].Spouse)

	out = edit(t, srv, base+"/children/son/0/spouse", "number_of_children", "1")
	assert.Len(t, out.State.Sons[0].Spouse.Grandchildren, 1)

	out = edit(t, srv, base+"/children/son/0/spouse/grandchildren/0", "first_name", "arya")
	assert.Equal(t, "ARYA", out.State.Sons[0].Spouse.Grandchildren[0].FirstName)

	// Un-marrying the head clears the whole descendant subtree
	out = edit(t, srv, base+"/head", "marital_status", "widowed")
	assert.Nil(t, out.State.Spouse)
	assert.Empty(t, out.State.Sons)
}

func TestEditErrors(t *testing.T) {
	srv := newTestServer(t, &fakeSubmitter{})
	id := createSession(t, srv)
	base := srv.URL + "/api/form/sessions/" + id

	// Spouse edits require a married head
	resp := doJSON(t, http.MethodPatch, base+"/spouse", models.FieldEditRequest{Field: "first_name", Value: "sita"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown field
	resp = doJSON(t, http.MethodPatch, base+"/head", models.FieldEditRequest{Field: "shoe_size", Value: "9"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Child index out of range
	resp = doJSON(t, http.MethodPatch, base+"/children/son/5", models.FieldEditRequest{Field: "first_name", Value: "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Invalid child type
	resp = doJSON(t, http.MethodPatch, base+"/children/cousin/0", models.FieldEditRequest{Field: "first_name", Value: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown session
	resp = doJSON(t, http.MethodPatch, srv.URL+"/api/form/sessions/nope/head", models.FieldEditRequest{Field: "first_name", Value: "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSubmitValidationFailure(t *testing.T) {
	submitter := &fakeSubmitter{}
	srv := newTestServer(t, submitter)
	id := createSession(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/form/sessions/"+id+"/submit", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Errors, "aggregated validation errors are returned")
	assert.Empty(t, submitter.submitted, "nothing persisted on validation failure")
}

func fillValidHead(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	base := "/api/form/sessions/" + id
	edit(t, srv, base+"/head", "first_name", "ram")
	edit(t, srv, base+"/head", "last_name", "sharma")
	edit(t, srv, base+"/head", "date_of_birth", "1980-01-01")
	edit(t, srv, base+"/head", "marital_status", "single")
}

func TestSubmitPersistsAndResets(t *testing.T) {
	submitter := &fakeSubmitter{}
	srv := newTestServer(t, submitter)
	id := createSession(t, srv)

	fillValidHead(t, srv, id)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/form/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, submitter.submitted, 1)
	assert.Equal(t, "RAM", submitter.submitted[0].Head.FirstName)

	// The session survives and is empty again
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/form/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeSession(t, resp)
	assert.Empty(t, out.State.Head.FirstName)
}

func TestSubmitStoreFailureRetainsState(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("insert family_heads: connection reset")}
	srv := newTestServer(t, submitter)
	id := createSession(t, srv)

	fillValidHead(t, srv, id)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/form/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()

	// Entered data is still there for a retry
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/form/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeSession(t, resp)
	assert.Equal(t, "RAM", out.State.Head.FirstName)
}

func TestCreateFamilyDirect(t *testing.T) {
	submitter := &fakeSubmitter{}
	srv := newTestServer(t, submitter)

	tree := models.FamilyTree{
		Head: models.Person{
			FirstName:     "RAM",
			LastName:      "SHARMA",
			DateOfBirth:   "1980-01-01",
			MaritalStatus: models.MaritalSingle,
		},
		Sons:      []models.Child{},
		Daughters: []models.Child{},
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/families", tree)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, submitter.submitted, 1)

	var out struct {
		Success bool                     `json:"success"`
		Result  *models.SubmissionResult `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, "head-1", out.Result.FamilyHeadID)
}

func TestCreateFamilyDirectInvalid(t *testing.T) {
	submitter := &fakeSubmitter{}
	srv := newTestServer(t, submitter)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/families", models.FamilyTree{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, submitter.submitted)
}

func TestHealthEndpointWithoutDatabase(t *testing.T) {
	srv := newTestServer(t, &fakeSubmitter{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	// No pool wired in tests, so the service reports unhealthy
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "unhealthy", out["status"])
	assert.Contains(t, out, "live_sessions")
}

func TestConcurrentEditsOnOneSession(t *testing.T) {
	srv := newTestServer(t, &fakeSubmitter{})
	id := createSession(t, srv)
	base := srv.URL + "/api/form/sessions/" + id

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			body, _ := json.Marshal(models.FieldEditRequest{
				Field: "first_name",
				Value: fmt.Sprintf("name%d", n),
			})
			req, err := http.NewRequest(http.MethodPatch, base+"/head", bytes.NewReader(body))
			if err != nil {
				done <- err
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err == nil {
				resp.Body.Close()
			}
			done <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	resp := doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeSession(t, resp)
	assert.NotEmpty(t, out.State.Head.FirstName, "one of the writes won")
}
