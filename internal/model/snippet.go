// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, and struct tags to describe
// how each field is encoded on the wire (json) and in the document store (bson).
package model

import "time"

// Defaults applied when a snippet or generation request omits them.
const (
	DefaultLanguage  = "javascript"
	DefaultFramework = "react"
)

// Snippet represents a saved code snippet.
//
// The JSON names follow the document shape existing clients already read:
// the identifier is "_id" and the owning identity is "user". Owner is empty
// for legacy records created before snippets were scoped to a user; such
// records are readable by any authenticated caller.
type Snippet struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Framework   string    `json:"framework"`
	Owner       string    `json:"user,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OwnedBy reports whether the given identity may read or modify the snippet.
// Owner-less snippets are not restricted.
func (s *Snippet) OwnedBy(identityID string) bool {
	return s.Owner == "" || s.Owner == identityID
}

// SnippetPatch carries the fields of a partial update. A nil pointer means
// "leave unchanged"; a non-nil pointer replaces the stored value.
type SnippetPatch struct {
	Title       *string
	Description *string
	Code        *string
	Language    *string
	Framework   *string
}
