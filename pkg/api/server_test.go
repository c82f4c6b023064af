package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celldb/celldb/pkg/acl"
	identitypkg "github.com/celldb/celldb/pkg/identity"
	"github.com/celldb/celldb/pkg/middleware"
	"github.com/celldb/celldb/pkg/observability"
	"github.com/celldb/celldb/pkg/records"
	"github.com/celldb/celldb/pkg/roles"
	"github.com/celldb/celldb/pkg/sheets"
	"github.com/celldb/celldb/pkg/sheetstore"
	"github.com/celldb/celldb/pkg/users"
)

type fixture struct {
	handler http.Handler
	users   *users.Service
	auth    *identitypkg.MemoryAuthenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := sheetstore.NewMemoryStore()

	sheetSvc := sheets.NewService(store)
	require.NoError(t, sheetSvc.EnsureConfigSheet(ctx))
	roleSvc := roles.NewService(store)
	require.NoError(t, roleSvc.EnsureSheet(ctx))
	userSvc := users.NewService(store)
	require.NoError(t, userSvc.EnsureSheet(ctx))

	auth := identitypkg.NewMemoryAuthenticator(time.Hour)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	server := NewServer(Deps{
		Logger:   logger,
		Roles:    roleSvc,
		Sheets:   sheetSvc,
		Users:    userSvc,
		Records:  records.NewService(store, sheetSvc),
		Sessions: auth,
	})

	identityMW := middleware.NewIdentityMiddleware(identitypkg.NewResolver(auth, userSvc), logger)

	return &fixture{
		handler: identityMW.Handler(server),
		users:   userSvc,
		auth:    auth,
	}
}

// newUser registers a user and returns its id and a bearer token.
func (f *fixture) newUser(t *testing.T, name string) (string, string) {
	t.Helper()
	record, err := f.users.Create(context.Background(), name, name+"@example.com", nil, acl.ACL{})
	require.NoError(t, err)
	userID, _ := record[sheetstore.ColID].(string)
	require.NotEmpty(t, userID)

	token, err := f.auth.Issue(userID)
	require.NoError(t, err)
	return userID, token
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSessionIssuance(t *testing.T) {
	f := newFixture(t)
	userID, _ := f.newUser(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/sessions", "", map[string]interface{}{"user_id": userID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	assert.Equal(t, userID, body["user_id"])
	assert.NotEmpty(t, body["token"])

	rec = f.do(t, http.MethodPost, "/api/sessions", "", map[string]interface{}{"user_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions", "", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSheetAndDataLifecycle(t *testing.T) {
	f := newFixture(t)
	userID, token := f.newUser(t, "alice")

	// Anonymous sheet creation is rejected.
	rec := f.do(t, http.MethodPost, "/api/sheets", "", map[string]interface{}{"name": "tasks"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sheets", token, map[string]interface{}{
		"name":                 "tasks",
		"public_read":          true,
		"allow_column_changes": true,
		"column_change_users":  []string{userID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/sheets/tasks/columns", token, map[string]interface{}{
		"name":        "title",
		"declaration": map[string]interface{}{"type": "string", "required": true},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/sheets/tasks/columns", token, map[string]interface{}{
		"name":        "score",
		"declaration": "number",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Create rows.
	for i, title := range []string{"one", "two", "three"} {
		rec = f.do(t, http.MethodPost, "/api/data/tasks", token, map[string]interface{}{
			"title": title,
			"score": i + 1,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// Missing required field.
	rec = f.do(t, http.MethodPost, "/api/data/tasks", token, map[string]interface{}{"score": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Filtered, ordered, counted listing.
	where := url.QueryEscape(`{"score":{"$gte":2}}`)
	rec = f.do(t, http.MethodGet,
		"/api/data/tasks?where="+where+"&order=score:desc&count=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope := decodeMap(t, rec)
	assert.Equal(t, float64(2), envelope["total"])
	rows, ok := envelope["rows"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 2)
	first, _ := rows[0].(map[string]interface{})
	assert.Equal(t, "three", first["title"])

	// Plain listing is a bare array.
	rec = f.do(t, http.MethodGet, "/api/data/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeList(t, rec)
	require.Len(t, all, 3)
	rowID, _ := all[0]["id"].(string)
	require.NotEmpty(t, rowID)

	// Update and delete one row.
	rec = f.do(t, http.MethodPut, "/api/data/tasks/"+rowID, token, map[string]interface{}{"score": 42})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeMap(t, rec)
	assert.Equal(t, float64(42), updated["score"])

	rec = f.do(t, http.MethodDelete, "/api/data/tasks/"+rowID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/data/tasks/"+rowID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousReadsFollowPublicFlag(t *testing.T) {
	f := newFixture(t)
	_, token := f.newUser(t, "alice")

	for name, public := range map[string]bool{"open": true, "closed": false} {
		rec := f.do(t, http.MethodPost, "/api/sheets", token, map[string]interface{}{
			"name":        name,
			"public_read": public,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := f.do(t, http.MethodGet, "/api/data/open", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/data/closed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestRoleAndUserEndpoints(t *testing.T) {
	f := newFixture(t)
	userID, token := f.newUser(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/roles", token, map[string]interface{}{
		"name":        "admin",
		"public_read": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	role := decodeMap(t, rec)
	roleID, _ := role["id"].(string)
	require.NotEmpty(t, roleID)

	rec = f.do(t, http.MethodGet, "/api/roles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = f.do(t, http.MethodPut, "/api/roles/"+roleID, token, map[string]interface{}{"name": "admins"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/roles/"+roleID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/roles/"+roleID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The caller owns their own directory row.
	rec = f.do(t, http.MethodPut, "/api/users/"+userID, token, map[string]interface{}{"name": "alice b"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice b", decodeMap(t, rec)["name"])

	// A stranger cannot read it.
	rec = f.do(t, http.MethodGet, "/api/users/"+userID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	_, token := f.newUser(t, "alice")

	rec := f.do(t, http.MethodGet, "/api/data/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/data/missing?where=notjson", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sheets", token, map[string]interface{}{"name": "users"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Invalid bearer token is rejected before routing.
	rec = f.do(t, http.MethodGet, "/api/sheets", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Reserved tabs are never served as data sheets.
	rec = f.do(t, http.MethodGet, "/api/data/sheets", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDuplicateSheetConflict(t *testing.T) {
	f := newFixture(t)
	_, token := f.newUser(t, "alice")

	body := map[string]interface{}{"name": "inventory"}
	rec := f.do(t, http.MethodPost, "/api/sheets", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/sheets", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
