package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codegen-gateway/internal/auth"
	"github.com/sakif/codegen-gateway/internal/handler"
	"github.com/sakif/codegen-gateway/internal/model"
	"github.com/sakif/codegen-gateway/internal/repository/sqlite"
	"github.com/sakif/codegen-gateway/internal/service"
)

const testUserHeader = "X-Test-User"

// newSnippetRouter wires the handler to a real service over in-memory SQLite.
// Instead of a JWT, the identity comes from testUserHeader.
func newSnippetRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewSnippetService(db, testLogger(), nil)
	h := handler.NewSnippetHandler(svc, devResponder())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user := req.Header.Get(testUserHeader); user != "" {
				req = req.WithContext(auth.WithIdentity(req.Context(), model.Identity{ID: user}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/snippets", h.HandleCreate)
	r.Get("/api/snippets", h.HandleList)
	r.Get("/api/snippets/{id}", h.HandleGet)
	r.Put("/api/snippets/{id}", h.HandleUpdate)
	r.Delete("/api/snippets/{id}", h.HandleDelete)
	return r
}

func call(router http.Handler, method, path, user, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSnippet(t *testing.T, router http.Handler, user, title string) model.Snippet {
	t.Helper()
	rec := call(router, http.MethodPost, "/api/snippets", user,
		`{"title":"`+title+`","code":"const x = 1;"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var s model.Snippet
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &s))
	return s
}

func TestSnippetHandler_Create(t *testing.T) {
	router := newSnippetRouter(t)

	rec := call(router, http.MethodPost, "/api/snippets", "github:1",
		`{"title":"  Button  ","description":"a button","code":"  <button/>"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var s model.Snippet
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Button", s.Title)
	assert.Equal(t, "  <button/>", s.Code, "code is stored verbatim")
	assert.Equal(t, "javascript", s.Language)
	assert.Equal(t, "react", s.Framework)
	assert.Equal(t, "github:1", s.Owner)
	assert.Contains(t, rec.Body.String(), `"_id"`)
}

func TestSnippetHandler_CreateRequiresTitleAndCode(t *testing.T) {
	router := newSnippetRouter(t)

	for _, payload := range []string{`{"code":"x"}`, `{"title":"t"}`, `{"title":"  ","code":"x"}`} {
		rec := call(router, http.MethodPost, "/api/snippets", "github:1", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Title and code are required", decode(t, rec).Error)
	}

	list := call(router, http.MethodGet, "/api/snippets", "github:1", "")
	assert.Equal(t, 0, *decode(t, list).Count, "nothing persisted")
}

func TestSnippetHandler_CreateKeepsLongLanguageAndFramework(t *testing.T) {
	router := newSnippetRouter(t)
	language := strings.Repeat("l", 100)
	framework := strings.Repeat("f", 100)

	rec := call(router, http.MethodPost, "/api/snippets", "github:1",
		`{"title":"t","code":"c","language":"`+language+`","framework":"`+framework+`"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s model.Snippet
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &s))
	assert.Equal(t, language, s.Language)
	assert.Equal(t, framework, s.Framework)
}

func TestSnippetHandler_ListIsScopedAndNewestFirst(t *testing.T) {
	router := newSnippetRouter(t)

	createSnippet(t, router, "github:1", "first")
	createSnippet(t, router, "github:2", "theirs")
	createSnippet(t, router, "github:1", "second")

	rec := call(router, http.MethodGet, "/api/snippets", "github:1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	b := decode(t, rec)
	require.NotNil(t, b.Count)
	assert.Equal(t, 2, *b.Count)

	var snippets []model.Snippet
	require.NoError(t, json.Unmarshal(b.Data, &snippets))
	require.Len(t, snippets, 2)
	assert.Equal(t, "second", snippets[0].Title)
	assert.Equal(t, "first", snippets[1].Title)
}

func TestSnippetHandler_EmptyListEncodesAsArray(t *testing.T) {
	router := newSnippetRouter(t)

	rec := call(router, http.MethodGet, "/api/snippets", "github:1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"count":0,"data":[]}`, rec.Body.String())
}

func TestSnippetHandler_OwnerIsolation(t *testing.T) {
	router := newSnippetRouter(t)
	s := createSnippet(t, router, "github:owner", "private")
	path := "/api/snippets/" + s.ID

	tests := []struct {
		method, payload, message string
	}{
		{http.MethodGet, "", "Not authorized to access this snippet"},
		{http.MethodPut, `{"title":"stolen"}`, "Not authorized to update this snippet"},
		{http.MethodDelete, "", "Not authorized to delete this snippet"},
	}
	for _, tt := range tests {
		rec := call(router, tt.method, path, "github:intruder", tt.payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tt.method)
		assert.Equal(t, tt.message, decode(t, rec).Error)
	}

	rec := call(router, http.MethodGet, path, "github:owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Snippet
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, "private", got.Title)
}

func TestSnippetHandler_UpdateAppliesSuppliedFields(t *testing.T) {
	router := newSnippetRouter(t)
	s := createSnippet(t, router, "github:1", "before")

	rec := call(router, http.MethodPut, "/api/snippets/"+s.ID, "github:1",
		`{"title":"after","framework":"vue"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Snippet
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "vue", got.Framework)
	assert.Equal(t, "const x = 1;", got.Code)
	assert.Equal(t, s.ID, got.ID)
}

func TestSnippetHandler_UpdateRevalidates(t *testing.T) {
	router := newSnippetRouter(t)
	s := createSnippet(t, router, "github:1", "keep")

	rec := call(router, http.MethodPut, "/api/snippets/"+s.ID, "github:1", `{"title":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnippetHandler_DeleteThenGet(t *testing.T) {
	router := newSnippetRouter(t)
	s := createSnippet(t, router, "github:1", "doomed")
	path := "/api/snippets/" + s.ID

	rec := call(router, http.MethodDelete, path, "github:1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{}}`, rec.Body.String())

	rec = call(router, http.MethodGet, path, "github:1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Snippet not found", decode(t, rec).Error)
}

func TestSnippetHandler_MissingIdentity(t *testing.T) {
	router := newSnippetRouter(t)

	rec := call(router, http.MethodGet, "/api/snippets", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.MsgNoToken, decode(t, rec).Error)
}
