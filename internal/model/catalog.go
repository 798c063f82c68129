package model

// ModelInfo describes one selectable LLM.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Language is a supported output language.
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Framework is a supported UI/runtime framework. SupportedLanguages is
// descriptive metadata for client UIs; generation does not enforce it.
type Framework struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	SupportedLanguages []string `json:"languages"`
}

// LanguagesAndFrameworks is the payload of the languages-frameworks catalog.
type LanguagesAndFrameworks struct {
	Languages  []Language  `json:"languages"`
	Frameworks []Framework `json:"frameworks"`
}
