package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"issuemirror/internal/services/mirror/domain"
)

const issuePagePayload = `[
	{"number": 7, "title": "real issue", "state": "open",
	 "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-02T00:00:00Z",
	 "user": {"id": 10, "login": "octocat", "type": "User"}},
	{"number": 8, "title": "sneaky pr", "state": "open",
	 "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-02T00:00:00Z",
	 "user": {"id": 11, "login": "prbot", "type": "Bot"},
	 "pull_request": {"url": "https://api.github.com/repos/o/r/pulls/8"}}
]`

func TestListIssuesFiltersPullRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, issuePagePayload)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Options{})
	issues, next, err := c.ListIssues(context.Background(), "o", "r", ListOptions{})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if next != "" {
		t.Fatalf("next=%q want empty without a Link header", next)
	}
	if len(issues) != 1 {
		t.Fatalf("issues=%d want 1, pull requests must be excluded", len(issues))
	}
	if issues[0].Number != 7 || issues[0].User == nil || issues[0].User.Login != "octocat" {
		t.Fatalf("wrong issue survived: %+v", issues[0])
	}
}

func TestListIssuesQueryShape(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	since := time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC)
	c, _ := newTestClient(srv, Options{})
	_, _, err := c.ListIssues(context.Background(), "octo", "hello", ListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		Since:     &since,
		Page:      2,
		PerPage:   250, // above the cap, must clamp
	})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}

	if gotPath != "/repos/octo/hello/issues" {
		t.Fatalf("path=%q", gotPath)
	}
	want := map[string]string{
		"state":     "all",
		"sort":      "updated",
		"direction": "desc",
		"since":     "2026-03-01T11:59:00Z",
		"page":      "2",
		"per_page":  "100",
	}
	for k, v := range want {
		if len(gotQuery[k]) != 1 || gotQuery[k][0] != v {
			t.Errorf("query %s=%v want %q", k, gotQuery[k], v)
		}
	}
}

func TestListIssuesPagination(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", fmt.Sprintf(`<%s/page2>; rel="next", <%s/page2>; rel="last"`, srv.URL, srv.URL))
		fmt.Fprint(w, issuePagePayload)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"number": 9, "title": "last one", "state": "closed",
			"created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T06:00:00Z",
			"user": {"id": 10, "login": "octocat", "type": "User"}}]`)
	})

	c, _ := newTestClient(srv, Options{})
	_, next, err := c.ListIssues(context.Background(), "o", "r", ListOptions{})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if next != srv.URL+"/page2" {
		t.Fatalf("next=%q", next)
	}

	page2, next2, err := c.FetchPage(context.Background(), next)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if next2 != "" {
		t.Fatalf("next2=%q want empty on last page", next2)
	}
	if len(page2) != 1 || page2[0].Number != 9 {
		t.Fatalf("page2=%+v", page2)
	}
}

func TestFetchPageRejectsEmptyHandle(t *testing.T) {
	t.Parallel()

	c := NewClient(Options{})
	if _, _, err := c.FetchPage(context.Background(), ""); err == nil {
		t.Fatal("want error for empty continuation url")
	}
}

func TestSourceMapsAuthors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, issuePagePayload)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, Options{})
	src := NewSource(c)

	page, next, err := src.FetchIssues(context.Background(),
		domain.RepoRef{Owner: "o", Name: "r"}, domain.FetchOptions{})
	if err != nil {
		t.Fatalf("FetchIssues: %v", err)
	}
	if !next.None() {
		t.Fatalf("next=%q want none", next)
	}
	if len(page) != 1 {
		t.Fatalf("page=%d want 1", len(page))
	}
	a := page[0].Author
	if a == nil || a.RemoteID != 10 || a.Login != "octocat" || a.Kind != "User" {
		t.Fatalf("author mapping wrong: %+v", a)
	}
}
