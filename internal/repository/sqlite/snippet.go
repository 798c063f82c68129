package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/model"
	"github.com/sakif/codegen-gateway/internal/repository"
)

// Compile-time check that *DB implements repository.Store.
var _ repository.Store = (*DB)(nil)

const snippetColumns = `id, title, description, code, language, framework, user_id, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSnippet reads one row in snippetColumns order.
// user_id is nullable, so it goes through sql.NullString.
func scanSnippet(row rowScanner) (*model.Snippet, error) {
	var (
		s     model.Snippet
		owner sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.Code,
		&s.Language, &s.Framework, &owner, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Owner = owner.String
	return &s, nil
}

// Create inserts a new snippet. The ID and CreatedAt are assigned here and
// written back into the caller's struct.
//
// xid ids are 20 URL-safe chars and sort by creation time.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	snippet.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (`+snippetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Title,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.Framework,
		sql.NullString{String: snippet.Owner, Valid: snippet.Owner != ""},
		snippet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet by its ID.
// sql.ErrNoRows is translated to the domain NotFound error.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`,
		id,
	)

	snippet, err := scanSnippet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Snippet")
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return snippet, nil
}

// ListByOwner returns every snippet owned by owner, newest first.
// rowid breaks ties between snippets created within the same instant.
func (db *DB) ListByOwner(ctx context.Context, owner string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	// CRITICAL: rows holds a pooled connection until closed.
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}

	// rows.Err catches failures that happened during iteration.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Update writes the mutable fields of an existing snippet.
// id, user_id and created_at are immutable and never appear in the SET list.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, description = ?, code = ?, language = ?, framework = ?
		 WHERE id = ?`,
		snippet.Title,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.Framework,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	// Zero rows affected means the WHERE clause matched nothing.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Snippet")
	}

	return nil
}

// Delete hard-deletes a snippet. Same RowsAffected pattern as Update.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Snippet")
	}

	return nil
}
