package service

import (
	"context"
	"testing"
	"time"

	"issuemirror/internal/services/mirror/domain"
)

func TestBuildRowsSkipsGhostAndUnresolved(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{}
	svc, _, mem := newTestService(st, &fakeSource{}, Config{})
	defer mem.Close()

	local := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return local }

	ghost := remoteIssue(1, ts, 0)
	ghost.Author = nil
	ok := remoteIssue(2, ts, 10)
	unresolved := remoteIssue(3, ts, 99)

	rows := svc.buildRows(testRepo(), []domain.RemoteIssue{ghost, ok, unresolved},
		map[int64]int64{10: 1010})

	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
	r := rows[0]
	if r.Number != 2 || r.AuthorID != 1010 {
		t.Fatalf("wrong row: %+v", r)
	}
	if r.Owner != "octo" || r.Repo != "hello" {
		t.Fatalf("repo identity wrong: %+v", r)
	}
	if !r.CreatedAt.Equal(local) || !r.UpdatedAt.Equal(local) {
		t.Fatalf("local timestamps not stamped: %+v", r)
	}
	if !r.RemoteUpdatedAt.Equal(ts) {
		t.Fatalf("remote timestamp lost: %v", r.RemoteUpdatedAt)
	}
}

func TestBuildRowsSanitizesText(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{}
	svc, _, mem := newTestService(st, &fakeSource{}, Config{})
	defer mem.Close()

	is := remoteIssue(1, ts, 10)
	is.Title = "ti\x00tle"
	body := "bo\x00dy"
	is.Body = &body

	rows := svc.buildRows(testRepo(), []domain.RemoteIssue{is}, map[int64]int64{10: 1})
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
	if rows[0].Title != "title" {
		t.Fatalf("title not sanitized: %q", rows[0].Title)
	}
	if rows[0].Body == nil || *rows[0].Body != "body" {
		t.Fatalf("body not sanitized: %v", rows[0].Body)
	}
}

func TestWriteAcceptedBatchesPerTx(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{}
	svc, db, mem := newTestService(st, &fakeSource{}, Config{FlushThreshold: 2})
	defer mem.Close()

	accepted := []domain.RemoteIssue{
		remoteIssue(1, ts, 10),
		remoteIssue(2, ts, 10),
		remoteIssue(3, ts, 20),
		remoteIssue(4, ts, 20),
		remoteIssue(5, ts, 30),
	}
	n, err := svc.writeAccepted(context.Background(), testRepo(), accepted)
	if err != nil {
		t.Fatalf("writeAccepted: %v", err)
	}
	if n != 5 {
		t.Fatalf("written=%d want 5", n)
	}

	// 5 issues at threshold 2 means 3 slices, one transaction each
	if db.txs != 3 {
		t.Fatalf("txs=%d want 3", db.txs)
	}
	if len(st.issueBatches) != 3 {
		t.Fatalf("issue batches=%d want 3", len(st.issueBatches))
	}
	// authors ride inside the same transaction as their batch
	if len(st.authorBatches) != 3 {
		t.Fatalf("author batches=%d want 3", len(st.authorBatches))
	}
}

func TestWriteAcceptedEmpty(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{}
	svc, db, mem := newTestService(st, &fakeSource{}, Config{})
	defer mem.Close()

	n, err := svc.writeAccepted(context.Background(), testRepo(), nil)
	if err != nil || n != 0 {
		t.Fatalf("empty write: n=%d err=%v", n, err)
	}
	if db.txs != 0 {
		t.Fatal("empty write must not open a transaction")
	}
}
