package github

import (
	"net/http"
	"testing"
	"time"
)

func TestParseLinkNext(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		link string
		want string
	}{
		{
			"next and last",
			`<https://api.github.com/repositories/1/issues?page=2>; rel="next", ` +
				`<https://api.github.com/repositories/1/issues?page=5>; rel="last"`,
			"https://api.github.com/repositories/1/issues?page=2",
		},
		{
			"prev only",
			`<https://api.github.com/repositories/1/issues?page=1>; rel="prev"`,
			"",
		},
		{"empty header", "", ""},
		{"garbage", "not a link header", ""},
	}
	for _, c := range cases {
		if got := parseLinkNext(c.link); got != c.want {
			t.Errorf("%s: got %q want %q", c.name, got, c.want)
		}
	}
}

func TestComputeWait(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Retry-After wins over everything
	if got := computeWait(0, now.Add(time.Hour), 7, now); got != 7*time.Second {
		t.Fatalf("retry-after: got %v", got)
	}
	// exhausted quota waits until the reset instant
	if got := computeWait(0, now.Add(90*time.Second), 0, now); got != 90*time.Second {
		t.Fatalf("reset wait: got %v", got)
	}
	// reset in the past means no wait
	if got := computeWait(0, now.Add(-time.Minute), 0, now); got != 0 {
		t.Fatalf("past reset: got %v", got)
	}
	// quota left means no wait
	if got := computeWait(10, now.Add(time.Hour), 0, now); got != 0 {
		t.Fatalf("quota left: got %v", got)
	}
}

func TestParseRateHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "42")
	h.Set("X-RateLimit-Reset", "1767225600")
	h.Set("Retry-After", "3")

	rem, reset, after := parseRateHeaders(h)
	if rem != 42 || after != 3 {
		t.Fatalf("rem=%d after=%d", rem, after)
	}
	if reset.Unix() != 1767225600 {
		t.Fatalf("reset=%v", reset)
	}

	rem, reset, after = parseRateHeaders(http.Header{})
	if rem != 0 || after != 0 || !reset.IsZero() {
		t.Fatalf("empty headers: rem=%d reset=%v after=%d", rem, reset, after)
	}
}
