package service

import (
	"context"
	"time"

	perr "issuemirror/internal/platform/errors"
	"issuemirror/internal/services/mirror/domain"
)

// reconcile partitions a batch into the subset that is new or newer than
// local state. The existing-map query is bounded to the batch's issue
// numbers, never a full table scan
func (s *Service) reconcile(
	ctx context.Context,
	r domain.RepoRef,
	batch []domain.RemoteIssue,
) ([]domain.RemoteIssue, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	numbers := make([]int, 0, len(batch))
	for _, is := range batch {
		numbers = append(numbers, is.Number)
	}
	existing, err := s.storage().ExistingUpdatedByNumber(ctx, r, numbers)
	if err != nil {
		return nil, perr.FromPostgresf(err, "mirror existing lookup %s", r.Slug())
	}
	return acceptNewer(batch, existing), nil
}

// acceptNewer keeps issues that are absent locally or strictly newer than
// the stored remote_updated_at, preserving input order. Strict inequality
// makes re-processing the same page a no-op
func acceptNewer(batch []domain.RemoteIssue, existing map[int]time.Time) []domain.RemoteIssue {
	out := make([]domain.RemoteIssue, 0, len(batch))
	for _, is := range batch {
		prev, ok := existing[is.Number]
		if !ok || prev.Before(is.UpdatedAt) {
			out = append(out, is)
		}
	}
	return out
}
