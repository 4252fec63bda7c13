package service

import (
	"context"
	"testing"
	"time"

	perr "issuemirror/internal/platform/errors"
	"issuemirror/internal/services/mirror/domain"
)

func TestSyncRepositoryRejectsZeroRef(t *testing.T) {
	t.Parallel()

	svc, _, mem := newTestService(&fakeStorage{}, &fakeSource{}, Config{})
	defer mem.Close()

	err := svc.SyncRepository(context.Background(), domain.RepoRef{})
	if err == nil {
		t.Fatal("want error for zero ref")
	}
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("code=%v want invalid argument", perr.CodeOf(err))
	}
}

func TestSyncFullRun(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{existing: map[int]time.Time{}}
	src := &fakeSource{pages: [][]domain.RemoteIssue{
		{remoteIssue(1, ts, 10), remoteIssue(2, ts, 10)},
		{remoteIssue(3, ts, 20), remoteIssue(4, ts, 30)},
	}}
	svc, _, mem := newTestService(st, src, Config{})
	defer mem.Close()

	// pre-seed cached reads so we can observe invalidation
	r := testRepo()
	mem.Set(issueCachePrefix(r)+"open:1:25:123", []byte("x"), 0)
	mem.Set(statCacheKey(r), []byte("y"), 0)
	mem.Set("issues:other/repo:open:1:25:1", []byte("z"), 0)

	if err := svc.SyncRepository(context.Background(), r); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// no cursor row means a full walk without a since filter
	if src.lastOpt.Since != nil {
		t.Fatal("full sync must not carry a since filter")
	}
	total := 0
	for _, b := range st.issueBatches {
		total += len(b)
	}
	if total != 4 {
		t.Fatalf("persisted %d issues want 4", total)
	}
	if st.recomputes != 1 {
		t.Fatalf("recomputes=%d want 1", st.recomputes)
	}

	// finalize drops this repo's cached reads and stat, other repos survive
	if _, ok := mem.Get(issueCachePrefix(r) + "open:1:25:123"); ok {
		t.Fatal("cached page not invalidated")
	}
	if _, ok := mem.Get(statCacheKey(r)); ok {
		t.Fatal("cached stat not invalidated")
	}
	if _, ok := mem.Get("issues:other/repo:open:1:25:1"); !ok {
		t.Fatal("unrelated repo cache must survive")
	}
}

func TestSyncEmptyFirstPageIsTerminal(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{}
	src := &fakeSource{pages: [][]domain.RemoteIssue{{}}}
	svc, db, mem := newTestService(st, src, Config{})
	defer mem.Close()

	if err := svc.SyncRepository(context.Background(), testRepo()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("source calls=%d want 1", src.calls)
	}
	if db.txs != 0 {
		t.Fatal("nothing to write for an empty page")
	}
	// finalize still runs so the aggregate reflects reality
	if st.recomputes != 1 {
		t.Fatalf("recomputes=%d want 1", st.recomputes)
	}
}

func TestSyncEarlyStop(t *testing.T) {
	t.Parallel()

	cursor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{cursor: cursor, cursorFound: true}
	src := &fakeSource{pages: [][]domain.RemoteIssue{
		{remoteIssue(1, cursor.Add(-time.Hour), 10)},
		{remoteIssue(2, cursor.Add(-2*time.Hour), 10)},
	}}
	svc, db, mem := newTestService(st, src, Config{})
	defer mem.Close()

	if err := svc.SyncRepository(context.Background(), testRepo()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	// first page is entirely older than the cursor, the second is never fetched
	if src.calls != 1 {
		t.Fatalf("source calls=%d want 1", src.calls)
	}
	if db.txs != 0 {
		t.Fatal("early stop must not write")
	}
	if st.recomputes != 1 {
		t.Fatalf("recomputes=%d want 1", st.recomputes)
	}
}

func TestSyncCursorEqualityContinues(t *testing.T) {
	t.Parallel()

	cursor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{
		cursor:      cursor,
		cursorFound: true,
		existing:    map[int]time.Time{1: cursor},
	}
	src := &fakeSource{pages: [][]domain.RemoteIssue{
		{remoteIssue(1, cursor, 10)},
		{remoteIssue(2, cursor.Add(-time.Hour), 10)},
	}}
	svc, db, mem := newTestService(st, src, Config{})
	defer mem.Close()

	if err := svc.SyncRepository(context.Background(), testRepo()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	// an item exactly at the cursor forces the next page fetch
	if src.calls != 2 {
		t.Fatalf("source calls=%d want 2", src.calls)
	}
	// reconciliation then drops the unchanged item, nothing is written
	if db.txs != 0 {
		t.Fatalf("txs=%d want 0", db.txs)
	}
}

func TestSyncFlushesAtThreshold(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{existing: map[int]time.Time{}}
	src := &fakeSource{pages: [][]domain.RemoteIssue{
		{remoteIssue(1, ts, 10), remoteIssue(2, ts, 10)},
		{remoteIssue(3, ts, 10), remoteIssue(4, ts, 10)},
	}}
	svc, db, mem := newTestService(st, src, Config{FlushThreshold: 2})
	defer mem.Close()

	if err := svc.SyncRepository(context.Background(), testRepo()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if db.txs != 2 {
		t.Fatalf("txs=%d want 2, one per threshold flush", db.txs)
	}
	total := 0
	for _, b := range st.issueBatches {
		total += len(b)
	}
	if total != 4 {
		t.Fatalf("persisted %d want 4", total)
	}
}

func TestSyncFinalizeRunsOnFetchFailure(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{}
	src := &fakeSource{fetchErr: errBoom}
	svc, _, mem := newTestService(st, src, Config{})
	defer mem.Close()

	err := svc.SyncRepository(context.Background(), testRepo())
	if err == nil {
		t.Fatal("want fetch error")
	}
	if st.recomputes != 1 {
		t.Fatalf("recomputes=%d want 1, finalize must run on failure", st.recomputes)
	}
}

func TestSyncFinalizeRunsOnMidWalkFailure(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStorage{existing: map[int]time.Time{}}
	src := &fakeSource{
		pages: [][]domain.RemoteIssue{
			{remoteIssue(1, ts, 10)},
			{remoteIssue(2, ts, 10)},
		},
		failPage: 1,
	}
	svc, _, mem := newTestService(st, src, Config{})
	defer mem.Close()

	err := svc.SyncRepository(context.Background(), testRepo())
	if err == nil {
		t.Fatal("want mid-walk error")
	}
	if st.recomputes != 1 {
		t.Fatalf("recomputes=%d want 1", st.recomputes)
	}
}

func TestSyncRecomputeFailureDoesNotMaskSuccess(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{recomputeErr: errBoom}
	src := &fakeSource{pages: [][]domain.RemoteIssue{{}}}
	svc, _, mem := newTestService(st, src, Config{})
	defer mem.Close()

	// a failed stat recompute is logged, never returned
	if err := svc.SyncRepository(context.Background(), testRepo()); err != nil {
		t.Fatalf("sync: %v", err)
	}
}
