package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test a fresh, isolated database that disappears when
// the connection closes. t.Helper() makes failures point at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestSnippet(t *testing.T, db *DB, title, owner string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		Title:     title,
		Code:      "console.log('" + title + "')",
		Language:  "javascript",
		Framework: "react",
		Owner:     owner,
	}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("failed to create test snippet: %v", err)
	}
	return snippet
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	snippet := &model.Snippet{
		Title:     "Counter",
		Code:      "export const Counter = () => null",
		Language:  "typescript",
		Framework: "react",
		Owner:     "github:1",
	}

	err := db.Create(context.Background(), snippet)
	require.NoError(t, err)

	// Create modifies the struct in place (pointer argument).
	assert.NotEmpty(t, snippet.ID)
	assert.False(t, snippet.CreatedAt.IsZero())
}

func TestCreate_VerifyPersistence(t *testing.T) {
	db := newTestDB(t)
	original := createTestSnippet(t, db, "persisted", "github:1")

	found, err := db.GetByID(context.Background(), original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.ID, found.ID)
	assert.Equal(t, original.Title, found.Title)
	assert.Equal(t, original.Code, found.Code)
	assert.Equal(t, "javascript", found.Language)
	assert.Equal(t, "react", found.Framework)
	assert.Equal(t, "github:1", found.Owner)
	assert.WithinDuration(t, original.CreatedAt, found.CreatedAt, time.Second)
}

func TestCreate_WithoutOwnerStoresNull(t *testing.T) {
	db := newTestDB(t)
	legacy := createTestSnippet(t, db, "legacy", "")

	found, err := db.GetByID(context.Background(), legacy.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Owner)

	// A NULL owner must not match any owner filter.
	mine, err := db.ListByOwner(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

// =========================================================================
// LIST
// =========================================================================

func TestListByOwner_NewestFirstAndScoped(t *testing.T) {
	db := newTestDB(t)

	first := createTestSnippet(t, db, "first", "github:a")
	createTestSnippet(t, db, "someone else", "github:b")
	second := createTestSnippet(t, db, "second", "github:a")
	third := createTestSnippet(t, db, "third", "github:a")

	snippets, err := db.ListByOwner(context.Background(), "github:a")
	require.NoError(t, err)
	require.Len(t, snippets, 3)

	assert.Equal(t, third.ID, snippets[0].ID)
	assert.Equal(t, second.ID, snippets[1].ID)
	assert.Equal(t, first.ID, snippets[2].ID)
	for _, s := range snippets {
		assert.Equal(t, "github:a", s.Owner)
	}
}

func TestListByOwner_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)

	snippets, err := db.ListByOwner(context.Background(), "github:nobody")
	require.NoError(t, err)
	// Encodes as [] rather than null.
	assert.NotNil(t, snippets)
	assert.Len(t, snippets, 0)
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	created := createTestSnippet(t, db, "before", "github:a")

	created.Title = "after"
	created.Code = "new code"
	created.Framework = "vue"
	require.NoError(t, db.Update(context.Background(), created))

	found, err := db.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", found.Title)
	assert.Equal(t, "new code", found.Code)
	assert.Equal(t, "vue", found.Framework)
	assert.Equal(t, "github:a", found.Owner, "owner must survive updates")
	assert.WithinDuration(t, created.CreatedAt, found.CreatedAt, time.Second)
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Snippet{ID: "ghost", Title: "x", Code: "y"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	created := createTestSnippet(t, db, "doomed", "github:a")

	require.NoError(t, db.Delete(context.Background(), created.ID))

	_, err := db.GetByID(context.Background(), created.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "after delete: error = %v, want ErrNotFound", err)
}

func TestDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "ghost")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

// =========================================================================
// STORAGE FAULTS (sqlmock)
// =========================================================================
//
// A real SQLite file rarely fails on demand, so the fault paths run against
// go-sqlmock: the driver returns whatever error we script.

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &DB{conn: conn}, mock
}

func TestListByOwner_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT (.+) FROM snippets").
		WithArgs("github:a").
		WillReturnError(errors.New("disk I/O error"))

	_, err := db.ListByOwner(context.Background(), "github:a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_QueryErrorIsNotNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT (.+) FROM snippets WHERE id = ?").
		WithArgs("abc").
		WillReturnError(errors.New("database is locked"))

	_, err := db.GetByID(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_ExecError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM snippets").
		WithArgs("abc").
		WillReturnError(errors.New("readonly database"))

	err := db.Delete(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readonly database")
	assert.NoError(t, mock.ExpectationsWereMet())
}
