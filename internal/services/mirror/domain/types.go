// Package domain defines the types and ports for the mirror service
package domain

import (
	"strings"
	"time"
)

// Provider is the only remote provider this service mirrors today
const Provider = "github"

// Issue states
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// RepoRef identifies a repository by owner and name
type RepoRef struct {
	Owner string
	Name  string
}

// Slug returns the owner/name form used in logs and cache keys
func (r RepoRef) Slug() string { return r.Owner + "/" + r.Name }

// Zero reports whether either half of the ref is blank
func (r RepoRef) Zero() bool {
	return strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Name) == ""
}

// RemoteAuthor is the author shape delivered by the remote source
type RemoteAuthor struct {
	RemoteID   int64
	Login      string
	AvatarURL  string
	Kind       string // User or Organization
	ProfileURL string
}

// RemoteIssue is the uniform issue record delivered by the remote source.
// Author may be nil for ghost accounts
type RemoteIssue struct {
	Number    int
	Title     string
	Body      *string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    *RemoteAuthor
}

// Issue is a locally persisted mirrored issue
type Issue struct {
	ID              int64
	Owner           string
	Repo            string
	Number          int
	Title           string
	Body            *string
	State           string
	AuthorID        int64
	AuthorLogin     string
	RemoteCreatedAt time.Time
	RemoteUpdatedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RepoStat is the derived aggregate row for one repository
type RepoStat struct {
	Provider     string
	Owner        string
	Repo         string
	IssuesCount  int64
	RecomputedAt time.Time
}

// FetchOptions narrows a remote listing call
type FetchOptions struct {
	State     string
	Sort      string
	Direction string
	Since     *time.Time
	// Page requests a specific page on the first call, continuation
	// handles take over from there
	Page    int
	PerPage int
}

// PageHandle is an opaque pagination continuation from the remote source.
// Callers must not assume page numbers are meaningful
type PageHandle string

// None reports whether the handle marks the end of pagination
func (h PageHandle) None() bool { return h == "" }

// ListQuery is a read-path request against local state
type ListQuery struct {
	Repo     RepoRef
	State    string // "" means unfiltered
	Page     int    // 1-based
	PageSize int
}

// ListResult is the materialized read-path response plus freshness metadata
type ListResult struct {
	Issues []Issue
	Total  int64

	// Fingerprint is MAX(remote_updated_at) over local rows, zero when none
	Fingerprint time.Time
	// RecomputedAt is the aggregate's last recompute instant, zero when absent
	RecomputedAt time.Time
	// Remote marks the empty-repository passthrough, nothing was persisted
	Remote bool
}
