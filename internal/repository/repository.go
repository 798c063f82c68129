// Package repository declares the storage contracts the service layer
// depends on. Concrete backends live in sub-packages (sqlite, mongo) and are
// chosen once at startup.
package repository

import (
	"context"

	"github.com/sakif/codegen-gateway/internal/model"
)

// SnippetRepository persists snippets. Implementations must be safe for
// concurrent use and must return apperror.NotFound for unknown ids.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	// ListByOwner returns the owner's snippets, newest createdAt first.
	ListByOwner(ctx context.Context, owner string) ([]model.Snippet, error)
	// Update writes title, description, code, language and framework.
	// ID, owner and createdAt are never changed.
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

// Store is a SnippetRepository with a connection lifecycle, owned by the
// server: pinged at startup and closed on shutdown.
type Store interface {
	SnippetRepository
	Ping(ctx context.Context) error
	Close() error
}
