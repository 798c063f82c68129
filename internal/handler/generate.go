package handler

import (
	"net/http"

	"github.com/sakif/codegen-gateway/internal/model"
	"github.com/sakif/codegen-gateway/internal/service"
)

// GenerateHandler serves the code generation and catalog endpoints.
type GenerateHandler struct {
	generator *service.GenerationService
	resp      *Responder
}

func NewGenerateHandler(generator *service.GenerationService, resp *Responder) *GenerateHandler {
	return &GenerateHandler{generator: generator, resp: resp}
}

type generateRequest struct {
	Prompt      string    `json:"prompt" validate:"required"`
	Language    string    `json:"language"`
	Framework   string    `json:"framework"`
	Temperature FlexFloat `json:"temperature"`
	Model       string    `json:"model"`
}

var generateMessages = map[string]string{
	"prompt": "Prompt is required",
}

// HandleGenerate proxies a prompt to the LLM and returns the extracted code.
//
// HTTP: POST /api/generate-code
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := validateRequest(req, generateMessages); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	result, err := h.generator.Generate(r.Context(), model.GenerationRequest{
		Prompt:      req.Prompt,
		Language:    req.Language,
		Framework:   req.Framework,
		Temperature: req.Temperature.Ptr(),
		Model:       req.Model,
	})
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	writeData(w, http.StatusOK, result)
}

// HandleModels lists the selectable models.
//
// HTTP: GET /api/models
func (h *GenerateHandler) HandleModels(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, service.ListModels())
}

// HandleLanguagesFrameworks lists languages and frameworks.
//
// HTTP: GET /api/languages-frameworks
func (h *GenerateHandler) HandleLanguagesFrameworks(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, service.ListLanguagesAndFrameworks())
}
