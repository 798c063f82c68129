// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the snippet store
//
// Services know nothing about HTTP. They return *apperror.AppError values and
// the handler layer turns those into status codes. Storage and upstream
// failures are wrapped as apperror.Internal so the client sees a stable
// message while the logs keep the cause.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/model"
	"github.com/sakif/codegen-gateway/internal/repository"
)

// Snippet operation names and outcomes reported to the recorder.
const (
	OpCreate = "create"
	OpList   = "list"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"

	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeInvalid   = "invalid"
)

const titleAndCodeRequired = "Title and code are required"

// SnippetRecorder receives one observation per snippet operation.
type SnippetRecorder interface {
	ObserveSnippetOperation(op, outcome string)
}

// SnippetService handles business logic for code snippets.
// Every operation is scoped to the calling identity.
type SnippetService struct {
	repo     repository.SnippetRepository
	logger   *slog.Logger
	recorder SnippetRecorder
}

// NewSnippetService creates a new SnippetService. recorder may be nil.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger, recorder SnippetRecorder) *SnippetService {
	return &SnippetService{
		repo:     repo,
		logger:   logger,
		recorder: recorder,
	}
}

// Create validates and saves a new snippet owned by owner.
//
// Title and description are trimmed; code is stored verbatim since
// indentation is part of it. Empty language/framework fall back to the
// defaults. ID and CreatedAt from draft are ignored.
func (s *SnippetService) Create(ctx context.Context, owner string, draft model.Snippet) (*model.Snippet, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		s.observe(OpCreate, OutcomeInvalid)
		return nil, apperror.ValidationFailed("title", titleAndCodeRequired)
	}
	if draft.Code == "" {
		s.observe(OpCreate, OutcomeInvalid)
		return nil, apperror.ValidationFailed("code", titleAndCodeRequired)
	}

	snippet := &model.Snippet{
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		Code:        draft.Code,
		Language:    orDefault(draft.Language, model.DefaultLanguage),
		Framework:   orDefault(draft.Framework, model.DefaultFramework),
		Owner:       owner,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.observe(OpCreate, OutcomeError)
		s.logger.Error("failed to create snippet",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Internal("Failed to save snippet", err)
	}

	s.observe(OpCreate, OutcomeSuccess)
	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("owner", owner),
	)

	return snippet, nil
}

// ListMine returns the owner's snippets, newest first.
func (s *SnippetService) ListMine(ctx context.Context, owner string) ([]model.Snippet, error) {
	snippets, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		s.observe(OpList, OutcomeError)
		s.logger.Error("failed to list snippets",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Internal("Failed to fetch snippets", err)
	}

	s.observe(OpList, OutcomeSuccess)
	return snippets, nil
}

// GetByID returns the snippet if owner may read it.
func (s *SnippetService) GetByID(ctx context.Context, id, owner string) (*model.Snippet, error) {
	snippet, err := s.fetchOwned(ctx, OpGet, id, owner,
		"Not authorized to access this snippet", "Failed to fetch snippet")
	if err != nil {
		return nil, err
	}

	s.observe(OpGet, OutcomeSuccess)
	return snippet, nil
}

// Update applies the supplied fields of patch and returns the stored result.
// Supplied fields are validated the same way Create validates them.
func (s *SnippetService) Update(ctx context.Context, id, owner string, patch model.SnippetPatch) (*model.Snippet, error) {
	snippet, err := s.fetchOwned(ctx, OpUpdate, id, owner,
		"Not authorized to update this snippet", "Failed to update snippet")
	if err != nil {
		return nil, err
	}

	if err := applyPatch(snippet, patch); err != nil {
		s.observe(OpUpdate, OutcomeInvalid)
		return nil, err
	}

	if err := s.repo.Update(ctx, snippet); err != nil {
		// Deleted between the read and the write.
		if errors.Is(err, apperror.ErrNotFound) {
			s.observe(OpUpdate, OutcomeNotFound)
			return nil, apperror.NotFound("Snippet")
		}
		s.observe(OpUpdate, OutcomeError)
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Internal("Failed to update snippet", err)
	}

	s.observe(OpUpdate, OutcomeSuccess)
	s.logger.Info("snippet updated", slog.String("id", id))

	return snippet, nil
}

// Delete removes the snippet permanently.
func (s *SnippetService) Delete(ctx context.Context, id, owner string) error {
	snippet, err := s.fetchOwned(ctx, OpDelete, id, owner,
		"Not authorized to delete this snippet", "Failed to delete snippet")
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, snippet.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.observe(OpDelete, OutcomeNotFound)
			return apperror.NotFound("Snippet")
		}
		s.observe(OpDelete, OutcomeError)
		s.logger.Error("failed to delete snippet",
			slog.String("id", snippet.ID),
			slog.String("error", err.Error()),
		)
		return apperror.Internal("Failed to delete snippet", err)
	}

	s.observe(OpDelete, OutcomeSuccess)
	s.logger.Info("snippet deleted", slog.String("id", snippet.ID))
	return nil
}

// fetchOwned loads id and checks owner may act on it. Ownership is checked
// here and then acted on without a transaction; concurrent writers race and
// the last write wins.
func (s *SnippetService) fetchOwned(ctx context.Context, op, id, owner, denyMsg, failMsg string) (*model.Snippet, error) {
	snippet, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.observe(op, OutcomeNotFound)
			return nil, apperror.NotFound("Snippet")
		}
		s.observe(op, OutcomeError)
		s.logger.Error("failed to load snippet",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Internal(failMsg, err)
	}

	if !snippet.OwnedBy(owner) {
		s.observe(op, OutcomeForbidden)
		s.logger.Warn("snippet access denied",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("identity", owner),
		)
		return nil, apperror.Unauthorized(denyMsg)
	}

	return snippet, nil
}

func applyPatch(snippet *model.Snippet, patch model.SnippetPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return apperror.ValidationFailed("title", titleAndCodeRequired)
		}
		snippet.Title = title
	}
	if patch.Code != nil {
		if *patch.Code == "" {
			return apperror.ValidationFailed("code", titleAndCodeRequired)
		}
		snippet.Code = *patch.Code
	}
	if patch.Description != nil {
		snippet.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Language != nil {
		if *patch.Language == "" {
			return apperror.ValidationFailed("language", "Language cannot be empty")
		}
		snippet.Language = *patch.Language
	}
	if patch.Framework != nil {
		if *patch.Framework == "" {
			return apperror.ValidationFailed("framework", "Framework cannot be empty")
		}
		snippet.Framework = *patch.Framework
	}
	return nil
}

func (s *SnippetService) observe(op, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveSnippetOperation(op, outcome)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
