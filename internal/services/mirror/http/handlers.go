// Package http provides http transport for the mirror service
package http

import (
	"fmt"
	stdhttp "net/http"
	"strconv"
	"time"

	"issuemirror/internal/modkit/httpkit"
	perr "issuemirror/internal/platform/errors"
	"issuemirror/internal/services/mirror/domain"

	"github.com/go-chi/chi/v5"
)

// Register mounts mirror endpoints on the given router
func Register(r httpkit.Router, reader domain.ReaderPort, enq domain.EnqueuerPort) {
	h := &handlers{reader: reader, enq: enq}
	r.Route("/{owner}/{name}", func(rr httpkit.Router) {
		rr.Get("/issues", httpkit.Handle(h.listIssues))
		rr.Post("/sync", httpkit.Handle(h.triggerSync))
	})
}

type handlers struct {
	reader domain.ReaderPort
	enq    domain.EnqueuerPort
}

// IssueDTO is the wire shape of one mirrored issue
type IssueDTO struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      *string   `json:"body"`
	State     string    `json:"state"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncAccepted reports whether an explicit sync request was enqueued
type SyncAccepted struct {
	Repo     string `json:"repo"`
	Enqueued bool   `json:"enqueued"`
}

func repoRef(r *stdhttp.Request) (domain.RepoRef, error) {
	ref := domain.RepoRef{
		Owner: chi.URLParam(r, "owner"),
		Name:  chi.URLParam(r, "name"),
	}
	if ref.Zero() {
		return domain.RepoRef{}, perr.Validationf("owner and name are required")
	}
	return ref, nil
}

// listParams are the accepted query parameters for the issues listing.
// Page and size are pointers so an explicit zero fails validation while an
// absent parameter falls back to the service defaults
type listParams struct {
	State    string `json:"state" validate:"omitempty,oneof=open closed"`
	Page     *int   `json:"page" validate:"omitempty,min=1"`
	PageSize *int   `json:"page_size" validate:"omitempty,min=1,max=100"`
}

func (h *handlers) listIssues(r *stdhttp.Request) httpkit.Response {
	ref, err := repoRef(r)
	if err != nil {
		return httpkit.Error(err)
	}

	p, err := httpkit.Query[listParams](r)
	if err != nil {
		return httpkit.Error(err)
	}

	q := domain.ListQuery{
		Repo:  ref,
		State: p.State,
		Page:  1,
	}
	if p.Page != nil {
		q.Page = *p.Page
	}
	if p.PageSize != nil {
		q.PageSize = *p.PageSize
	}

	// fire-and-forget freshness trigger, the read below never waits on it
	h.reader.TriggerSyncIfStale(r.Context(), ref)

	res, err := h.reader.FetchForRead(r.Context(), q)
	if err != nil {
		return httpkit.Error(err)
	}

	items := make([]IssueDTO, 0, len(res.Issues))
	for _, is := range res.Issues {
		items = append(items, IssueDTO{
			Number:    is.Number,
			Title:     is.Title,
			Body:      is.Body,
			State:     is.State,
			Author:    is.AuthorLogin,
			CreatedAt: is.RemoteCreatedAt,
			UpdatedAt: is.RemoteUpdatedAt,
		})
	}

	size := q.PageSize
	if size == 0 {
		size = len(items)
	}
	resp := httpkit.List(items, int(res.Total), q.Page, size).
		WithHeader("X-Total-Count", strconv.FormatInt(res.Total, 10))

	// the passthrough page carries no local freshness to validate against
	if res.Remote {
		return resp
	}

	etag := weakETag(ref, res.Fingerprint, res.RecomputedAt)
	lastMod := res.Fingerprint
	if res.RecomputedAt.After(lastMod) {
		lastMod = res.RecomputedAt
	}

	resp = resp.
		WithHeader("ETag", etag).
		WithHeader("Cache-Control", "public, max-age=86400")
	if !lastMod.IsZero() {
		resp = resp.WithHeader("Last-Modified", lastMod.UTC().Format(stdhttp.TimeFormat))
	}

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		return httpkit.NotModified().
			WithHeader("ETag", etag).
			WithHeader("Cache-Control", "public, max-age=86400")
	}
	return resp
}

func (h *handlers) triggerSync(r *stdhttp.Request) httpkit.Response {
	ref, err := repoRef(r)
	if err != nil {
		return httpkit.Error(err)
	}
	ok := h.enq.Enqueue(ref)
	return httpkit.Accepted(SyncAccepted{Repo: ref.Slug(), Enqueued: ok})
}

// weakETag derives the validator from the repo, the issue fingerprint, and
// the aggregate recompute instant
func weakETag(r domain.RepoRef, fp, recomputed time.Time) string {
	return fmt.Sprintf(`W/"%s-%d-%d"`, r.Slug(), fp.UnixNano(), recomputed.UnixNano())
}
