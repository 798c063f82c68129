package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/auth"
	"github.com/sakif/codegen-gateway/internal/model"
	"github.com/sakif/codegen-gateway/internal/service"
)

// SnippetHandler exposes the snippet store. Every route sits behind
// auth.RequireAuth, so the caller's identity is always in the context.
type SnippetHandler struct {
	snippets *service.SnippetService
	resp     *Responder
}

func NewSnippetHandler(snippets *service.SnippetService, resp *Responder) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, resp: resp}
}

type createSnippetRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Code        string `json:"code" validate:"required"`
	Language    string `json:"language"`
	Framework   string `json:"framework"`
}

var createSnippetMessages = map[string]string{
	"title": "Title and code are required",
	"code":  "Title and code are required",
}

// updateSnippetRequest uses pointers so an omitted field can be told apart
// from one set to "".
type updateSnippetRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Code        *string `json:"code"`
	Language    *string `json:"language"`
	Framework   *string `json:"framework"`
}

// owner returns the caller's identity id.
func owner(r *http.Request) (string, error) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized(auth.MsgNoToken)
	}
	return identity.ID, nil
}

// HandleCreate saves a new snippet owned by the caller.
//
// HTTP: POST /api/snippets
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	var req createSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := validateRequest(req, createSnippetMessages); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), ownerID, model.Snippet{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Language:    req.Language,
		Framework:   req.Framework,
	})
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, snippet)
}

// HandleList returns the caller's snippets, newest first.
//
// HTTP: GET /api/snippets
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	snippets, err := h.snippets.ListMine(r.Context(), ownerID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeList(w, snippets, len(snippets))
}

// HandleGet returns one snippet.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	snippet, err := h.snippets.GetByID(r.Context(), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeData(w, http.StatusOK, snippet)
}

// HandleUpdate applies the supplied fields and returns the updated snippet.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	var req updateSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), chi.URLParam(r, "id"), ownerID, model.SnippetPatch{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Language:    req.Language,
		Framework:   req.Framework,
	})
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeData(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	if err := h.snippets.Delete(r.Context(), chi.URLParam(r, "id"), ownerID); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeData(w, http.StatusOK, struct{}{})
}
