package domain

import "context"

// SourcePort fetches issue pages from the remote provider.
// Implementations must exclude pull-request records and cap page size at 100
type SourcePort interface {
	// FetchIssues requests the first page for repo under opt and returns the
	// continuation handle for the next page, None when exhausted
	FetchIssues(ctx context.Context, repo RepoRef, opt FetchOptions) ([]RemoteIssue, PageHandle, error)
	// FetchPage follows a continuation handle from a previous call
	FetchPage(ctx context.Context, handle PageHandle) ([]RemoteIssue, PageHandle, error)
}

// SyncPort runs one synchronization pass for a repository
type SyncPort interface {
	SyncRepository(ctx context.Context, repo RepoRef) error
}

// ReaderPort serves paginated reads against local state
type ReaderPort interface {
	FetchForRead(ctx context.Context, q ListQuery) (ListResult, error)
	// TriggerSyncIfStale enqueues a background sync when local data is stale
	// or absent, it never blocks on sync completion
	TriggerSyncIfStale(ctx context.Context, repo RepoRef) bool
}

// EnqueuerPort accepts fire-and-forget sync requests
type EnqueuerPort interface {
	// Enqueue returns false when the repo is already queued or running,
	// or the queue is full
	Enqueue(repo RepoRef) bool
}
