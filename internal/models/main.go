// Package models defines the core data structures shared by the preference
// client and the remote log server: authors, log records and the preference
// snapshot itself.
package models

// Namespace is the fixed application identifier every preference record is
// filed under in the remote log.
const Namespace = "homekeeper/preferences"

// RecordTitle is the human-readable tag attached to every published record so
// that generic log browsers can tell what it is.
const RecordTitle = "HomeKeeper Preferences"

// Author represents an identity registered with the remote log.
type Author struct {
	// Login is the identity public id (hex-encoded public key).
	Login string `json:"login"`
}

// Record is a single immutable entry of the append-only remote log.
type Record struct {
	// ID is the unique identifier for the record.
	ID string `json:"id" validate:"required"`
	// Author is the public id of the identity that wrote the record.
	Author string `json:"author" validate:"required"`
	// Namespace scopes records of one application.
	Namespace string `json:"namespace" validate:"required"`
	// Tags carry free-form discoverability metadata, e.g. ["title", "..."].
	Tags [][]string `json:"tags"`
	// Content is the serialized document body.
	Content string `json:"content"`
	// CreatedAt is the author-side creation time in unix seconds.
	CreatedAt int64 `json:"createdAt" validate:"gt=0"`
}

// Tag returns the first value of the named tag, or "" if absent.
func (r Record) Tag(name string) string {
	for _, t := range r.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1]
		}
	}
	return ""
}

// Filter selects records from the remote log. Empty slices match anything.
type Filter struct {
	// Authors restricts results to records written by these identities.
	Authors []string `json:"authors,omitempty"`
	// Namespaces restricts results to these application identifiers.
	Namespaces []string `json:"namespaces,omitempty"`
	// Since drops records created before this unix time (0 = no bound).
	Since int64 `json:"since,omitempty"`
	// Limit caps the number of records returned, newest first (0 = no cap).
	Limit int `json:"limit,omitempty"`
}

// Matches reports whether r satisfies the filter (Limit is ignored).
func (f Filter) Matches(r Record) bool {
	if len(f.Authors) > 0 && !contains(f.Authors, r.Author) {
		return false
	}
	if len(f.Namespaces) > 0 && !contains(f.Namespaces, r.Namespace) {
		return false
	}
	return r.CreatedAt >= f.Since
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
