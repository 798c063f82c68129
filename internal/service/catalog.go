package service

import "github.com/sakif/codegen-gateway/internal/model"

// The catalog is static. Compatibility between frameworks and languages is
// advertised to clients only; Generate accepts any combination.

var models = []model.ModelInfo{
	{ID: "llama3-70b-8192", Name: "LLaMA-3 70B", Description: "Best for code generation with complex requirements"},
	{ID: "llama3-8b-8192", Name: "LLaMA-3 8B", Description: "Faster response, good for simpler code snippets"},
	{ID: "mixtral-8x7b-32768", Name: "Mixtral 8x7B", Description: "Good balance of quality and speed"},
}

var languages = []model.Language{
	{ID: "javascript", Name: "JavaScript"},
	{ID: "typescript", Name: "TypeScript"},
}

var frameworks = []model.Framework{
	{ID: "react", Name: "React", SupportedLanguages: []string{"javascript", "typescript"}},
	{ID: "vue", Name: "Vue.js", SupportedLanguages: []string{"javascript", "typescript"}},
	{ID: "angular", Name: "Angular", SupportedLanguages: []string{"typescript"}},
	{ID: "svelte", Name: "Svelte", SupportedLanguages: []string{"javascript", "typescript"}},
	{ID: "node", Name: "Node.js (Express)", SupportedLanguages: []string{"javascript", "typescript"}},
}

// ListModels returns the selectable models in display order.
// The returned slice is a copy.
func ListModels() []model.ModelInfo {
	out := make([]model.ModelInfo, len(models))
	copy(out, models)
	return out
}

// ListLanguagesAndFrameworks returns both catalogs.
func ListLanguagesAndFrameworks() model.LanguagesAndFrameworks {
	out := model.LanguagesAndFrameworks{
		Languages:  make([]model.Language, len(languages)),
		Frameworks: make([]model.Framework, len(frameworks)),
	}
	copy(out.Languages, languages)
	for i, f := range frameworks {
		f.SupportedLanguages = append([]string(nil), f.SupportedLanguages...)
		out.Frameworks[i] = f
	}
	return out
}
