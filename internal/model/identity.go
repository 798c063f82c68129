package model

// Identity is the authenticated caller resolved by the auth gate.
//
// Users live outside this system: we never create or mutate them, we only
// carry the identity embedded in a verified bearer token. ID is the stable
// identifier snippets are scoped to; Login is informational.
type Identity struct {
	ID    string `json:"id"`
	Login string `json:"login,omitempty"`
}
