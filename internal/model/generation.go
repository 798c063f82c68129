package model

// Generation defaults.
const (
	DefaultModel       = "llama3-70b-8192"
	DefaultTemperature = 0.2

	// MaxGenerationTokens caps the completion size sent to the LLM.
	MaxGenerationTokens = 4000
)

// GenerationRequest is the transient input of one code generation call.
// Temperature is a pointer so an explicit 0 can be told apart from "omitted".
type GenerationRequest struct {
	Prompt      string
	Language    string
	Framework   string
	Temperature *float64
	Model       string
}

// GenerationResult is returned to the caller and never persisted
// automatically; saving it requires a separate snippet create call.
type GenerationResult struct {
	Code      string `json:"code"`
	Language  string `json:"language"`
	Framework string `json:"framework"`
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
}
