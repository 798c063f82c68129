package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/llm"
	"github.com/sakif/codegen-gateway/internal/model"
)

const baseSystemPrompt = "You are an expert programmer that writes clean, efficient, and well-documented code."

// Per-framework instructions. Only one applies per request.
var frameworkClauses = map[string]string{
	"react":   " You create React components following best practices, with proper hooks usage and component structure.",
	"vue":     " You create Vue.js components with proper structure, lifecycle hooks, and Vue best practices.",
	"angular": " You create Angular components with proper decorators, dependency injection, and Angular best practices.",
}

const typeScriptClause = " You write TypeScript code with proper type annotations and interfaces."

// codeBlockPattern matches the first fenced block, optionally tagged with a
// JS/TS language. Blocks tagged with anything else do not match.
var codeBlockPattern = regexp.MustCompile("```(?:javascript|typescript|jsx|tsx|js|ts)?\\n([\\s\\S]*?)```")

// Generation outcomes reported to the recorder.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeError        = "error"
)

// ChatCompleter sends one system+user exchange to an LLM.
// *llm.Client satisfies it; tests use a fake.
type ChatCompleter interface {
	Complete(ctx context.Context, req llm.ChatRequest) (string, error)
}

// GenerationRecorder receives one observation per upstream call.
type GenerationRecorder interface {
	ObserveGeneration(model, outcome string, elapsed time.Duration)
}

// GenerationService turns a prompt into code via the LLM.
type GenerationService struct {
	chat     ChatCompleter
	logger   *slog.Logger
	recorder GenerationRecorder
}

// NewGenerationService creates a GenerationService. recorder may be nil.
func NewGenerationService(chat ChatCompleter, logger *slog.Logger, recorder GenerationRecorder) *GenerationService {
	return &GenerationService{
		chat:     chat,
		logger:   logger,
		recorder: recorder,
	}
}

// Generate validates the request, calls the LLM once and extracts code from
// the reply. Nothing is persisted.
func (s *GenerationService) Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperror.ValidationFailed("prompt", "Prompt is required")
	}

	applyGenerationDefaults(&req)

	start := time.Now()
	content, err := s.chat.Complete(ctx, llm.ChatRequest{
		Model:       req.Model,
		System:      BuildSystemPrompt(req.Language, req.Framework),
		User:        BuildUserPrompt(req.Prompt, req.Language, req.Framework),
		Temperature: *req.Temperature,
		MaxTokens:   model.MaxGenerationTokens,
	})
	if err != nil {
		appErr, outcome := classifyUpstreamError(err)
		s.observe(req.Model, outcome, time.Since(start))
		s.logger.Error("error generating code",
			slog.String("model", req.Model),
			slog.Int("upstream_status", llm.StatusCode(err)),
			slog.String("error", err.Error()),
		)
		return nil, appErr
	}
	s.observe(req.Model, OutcomeSuccess, time.Since(start))

	code := ExtractCode(content)

	s.logger.Info("code generated",
		slog.String("model", req.Model),
		slog.String("language", req.Language),
		slog.String("framework", req.Framework),
		slog.Int("code_length", len(code)),
	)

	return &model.GenerationResult{
		Code:      code,
		Language:  req.Language,
		Framework: req.Framework,
		Model:     req.Model,
		Prompt:    req.Prompt,
	}, nil
}

func (s *GenerationService) observe(model, outcome string, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.ObserveGeneration(model, outcome, elapsed)
	}
}

func applyGenerationDefaults(req *model.GenerationRequest) {
	if req.Language == "" {
		req.Language = model.DefaultLanguage
	}
	if req.Framework == "" {
		req.Framework = model.DefaultFramework
	}
	if req.Model == "" {
		req.Model = model.DefaultModel
	}
	if req.Temperature == nil {
		t := model.DefaultTemperature
		req.Temperature = &t
	}
}

// classifyUpstreamError maps an LLM failure onto the error taxonomy.
// A missing local key is reported the same way as a key the upstream rejects.
func classifyUpstreamError(err error) (*apperror.AppError, string) {
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return apperror.Unauthorized("API key is invalid or missing"), OutcomeUnauthorized
	}

	switch llm.StatusCode(err) {
	case http.StatusUnauthorized:
		return apperror.Unauthorized("API key is invalid or missing"), OutcomeUnauthorized
	case http.StatusTooManyRequests:
		return apperror.RateLimited("Rate limit exceeded. Please try again later."), OutcomeRateLimited
	default:
		return apperror.Internal("Failed to generate code", err), OutcomeError
	}
}

// BuildSystemPrompt composes the system instruction. The TypeScript clause
// and the framework clause are independent and may both appear.
func BuildSystemPrompt(language, framework string) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	if language == "typescript" {
		b.WriteString(typeScriptClause)
	}
	b.WriteString(frameworkClauses[framework])
	return b.String()
}

// BuildUserPrompt wraps the caller's description in the fixed instructions.
func BuildUserPrompt(prompt, language, framework string) string {
	langName := "JavaScript"
	if language == "typescript" {
		langName = "TypeScript"
	}

	return fmt.Sprintf("Generate code for a %s %s component based on this description:\n\n%s\n\n"+
		"Please provide clean, well-formatted, and commented code that follows best practices.\n"+
		"Include imports, exports, and any necessary TypeScript interfaces or types.\n"+
		"Only return the code without any additional explanations.",
		framework, langName, prompt)
}

// ExtractCode returns the body of the first JS/TS fenced block in content,
// or the whole trimmed content when there is no such block (or it is empty).
func ExtractCode(content string) string {
	content = strings.TrimSpace(content)
	if m := codeBlockPattern.FindStringSubmatch(content); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return content
}
