package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"issuemirror/internal/modkit/repokit"
	"issuemirror/internal/platform/cache"
	"issuemirror/internal/platform/store"
	"issuemirror/internal/services/mirror/domain"
	"issuemirror/internal/services/mirror/repo"

	"github.com/rs/zerolog"
)

// fakeStorage is an in-memory repo.Storage with call recording
type fakeStorage struct {
	cursor      time.Time
	cursorFound bool
	cursorErr   error

	lastWrite      time.Time
	lastWriteFound bool
	lastWriteErr   error

	existing      map[int]time.Time
	existingCalls [][]int

	authorBatches [][]domain.RemoteAuthor
	authorIDs     map[int64]int64

	issueBatches [][]domain.Issue
	upsertErr    error

	count       int64
	countErr    error
	listed      []domain.Issue
	listErr     error
	lists       int
	listQueries []domain.ListQuery

	stat         domain.RepoStat
	statErr      error
	recomputes   int
	recomputeErr error
}

func (f *fakeStorage) MaxRemoteUpdated(context.Context, domain.RepoRef) (time.Time, bool, error) {
	return f.cursor, f.cursorFound, f.cursorErr
}

func (f *fakeStorage) LastLocalWrite(context.Context, domain.RepoRef) (time.Time, bool, error) {
	return f.lastWrite, f.lastWriteFound, f.lastWriteErr
}

func (f *fakeStorage) ExistingUpdatedByNumber(
	_ context.Context, _ domain.RepoRef, numbers []int,
) (map[int]time.Time, error) {
	f.existingCalls = append(f.existingCalls, numbers)
	out := make(map[int]time.Time)
	for _, n := range numbers {
		if ts, ok := f.existing[n]; ok {
			out[n] = ts
		}
	}
	return out, nil
}

func (f *fakeStorage) UpsertAuthors(_ context.Context, xs []domain.RemoteAuthor) error {
	f.authorBatches = append(f.authorBatches, xs)
	return nil
}

func (f *fakeStorage) AuthorIDsByRemote(_ context.Context, remoteIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(remoteIDs))
	for _, id := range remoteIDs {
		if f.authorIDs != nil {
			if local, ok := f.authorIDs[id]; ok {
				out[id] = local
			}
			continue
		}
		out[id] = id + 1000
	}
	return out, nil
}

func (f *fakeStorage) UpsertIssues(_ context.Context, rows []domain.Issue) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.issueBatches = append(f.issueBatches, rows)
	return int64(len(rows)), nil
}

func (f *fakeStorage) CountIssues(context.Context, domain.RepoRef, string) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeStorage) ListIssues(_ context.Context, q domain.ListQuery) ([]domain.Issue, error) {
	f.lists++
	f.listQueries = append(f.listQueries, q)
	return f.listed, f.listErr
}

func (f *fakeStorage) RecomputeStat(context.Context, domain.RepoRef) (domain.RepoStat, error) {
	f.recomputes++
	return f.stat, f.recomputeErr
}

func (f *fakeStorage) GetStat(context.Context, domain.RepoRef) (domain.RepoStat, error) {
	if f.statErr != nil {
		return domain.RepoStat{}, f.statErr
	}
	return f.stat, nil
}

// fakeDB satisfies repokit.TxRunner without a database, Tx hands itself back
type fakeDB struct{ txs int }

func (f *fakeDB) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (f *fakeDB) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, nil }
func (f *fakeDB) QueryRow(context.Context, string, ...any) store.Row             { return nil }

func (f *fakeDB) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	f.txs++
	return fn(f)
}

// fakeSource serves canned pages, the handle encodes the next page index
type fakeSource struct {
	pages    [][]domain.RemoteIssue
	fetchErr error
	failPage int // FetchPage for this index errors, 0 disables

	calls   int
	lastOpt domain.FetchOptions
}

func (f *fakeSource) FetchIssues(
	_ context.Context, _ domain.RepoRef, opt domain.FetchOptions,
) ([]domain.RemoteIssue, domain.PageHandle, error) {
	f.calls++
	f.lastOpt = opt
	if f.fetchErr != nil {
		return nil, domain.PageHandle(""), f.fetchErr
	}
	return f.page(0)
}

func (f *fakeSource) FetchPage(
	_ context.Context, h domain.PageHandle,
) ([]domain.RemoteIssue, domain.PageHandle, error) {
	f.calls++
	i, _ := strconv.Atoi(string(h))
	if f.failPage > 0 && i == f.failPage {
		return nil, domain.PageHandle(""), errBoom
	}
	return f.page(i)
}

func (f *fakeSource) page(i int) ([]domain.RemoteIssue, domain.PageHandle, error) {
	if i >= len(f.pages) {
		return nil, domain.PageHandle(""), nil
	}
	next := domain.PageHandle("")
	if i+1 < len(f.pages) {
		next = domain.PageHandle(strconv.Itoa(i + 1))
	}
	return f.pages[i], next, nil
}

type fakeEnqueuer struct {
	calls int
	ok    bool
}

func (f *fakeEnqueuer) Enqueue(domain.RepoRef) bool {
	f.calls++
	return f.ok
}

var errBoom = errors.New("boom")

func testRepo() domain.RepoRef { return domain.RepoRef{Owner: "octo", Name: "hello"} }

// newTestService wires a Service onto the fakes with a nop logger
func newTestService(st *fakeStorage, src *fakeSource, cfg Config) (*Service, *fakeDB, *cache.Memory) {
	db := &fakeDB{}
	mem := cache.NewMemory(0)
	bind := repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return st })
	svc := New(db, bind, src, mem, zerolog.Nop(), cfg)
	return svc, db, mem
}

func remoteIssue(number int, updated time.Time, authorID int64) domain.RemoteIssue {
	return domain.RemoteIssue{
		Number:    number,
		Title:     "issue " + strconv.Itoa(number),
		State:     domain.StateOpen,
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
		Author: &domain.RemoteAuthor{
			RemoteID: authorID,
			Login:    "user" + strconv.FormatInt(authorID, 10),
		},
	}
}
