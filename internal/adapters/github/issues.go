package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perr "issuemirror/internal/platform/errors"
)

const maxPerPage = 100

// ListOptions narrows the issues listing
type ListOptions struct {
	// State is open, closed, or all
	State string
	// Sort is created, updated, or comments; empty lets the API default apply
	Sort string
	// Direction is asc or desc
	Direction string
	// Since filters to issues updated at or after this instant
	Since *time.Time
	// Page selects a 1-based page; zero lets the API default apply
	Page int
	// PerPage is clamped to the API maximum of 100
	PerPage int
}

// ListIssues fetches one page of issues for owner/repo and returns the
// rel="next" continuation URL, empty when this is the last page.
// Pull requests are excluded, the issues endpoint returns both
func (c *Client) ListIssues(ctx context.Context, owner, repo string, opt ListOptions) ([]Issue, string, error) {
	q := url.Values{}
	if opt.State != "" {
		q.Set("state", opt.State)
	}
	if opt.Sort != "" {
		q.Set("sort", opt.Sort)
	}
	if opt.Direction != "" {
		q.Set("direction", opt.Direction)
	}
	if opt.Since != nil {
		q.Set("since", opt.Since.UTC().Format(time.RFC3339))
	}
	if opt.Page > 0 {
		q.Set("page", strconv.Itoa(opt.Page))
	}
	pp := opt.PerPage
	if pp <= 0 || pp > maxPerPage {
		pp = maxPerPage
	}
	q.Set("per_page", strconv.Itoa(pp))

	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/issues?" + q.Encode()
	return c.fetchIssuePage(ctx, path, false)
}

// FetchPage follows an absolute continuation URL from a previous response
func (c *Client) FetchPage(ctx context.Context, next string) ([]Issue, string, error) {
	if next == "" {
		return nil, "", perr.InvalidArgf("empty continuation url")
	}
	return c.fetchIssuePage(ctx, next, true)
}

func (c *Client) fetchIssuePage(ctx context.Context, url string, abs bool) ([]Issue, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, abs)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var raw []Issue
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "github issues decode failed")
	}

	out := raw[:0]
	for _, is := range raw {
		if is.PullRequest != nil {
			continue
		}
		out = append(out, is)
	}
	next := parseLinkNext(resp.Header.Get("Link"))
	return out, next, nil
}
