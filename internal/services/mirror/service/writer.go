package service

import (
	"context"

	"issuemirror/internal/modkit/repokit"
	perr "issuemirror/internal/platform/errors"
	pstrings "issuemirror/internal/platform/strings"
	"issuemirror/internal/services/mirror/domain"
)

// writeAccepted persists reconciled issues in fixed-size slices, each slice
// upserting authors and issues inside one transaction so a batch can never
// contain issues pointing at authors that were not written
func (s *Service) writeAccepted(
	ctx context.Context,
	r domain.RepoRef,
	accepted []domain.RemoteIssue,
) (int64, error) {
	var written int64
	for start := 0; start < len(accepted); start += s.cfg.FlushThreshold {
		end := min(start+s.cfg.FlushThreshold, len(accepted))
		slice := accepted[start:end]

		err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			authorIDs, err := s.resolveAuthors(ctx, q, slice)
			if err != nil {
				return err
			}
			rows := s.buildRows(r, slice, authorIDs)
			n, err := s.binder.Bind(q).UpsertIssues(ctx, rows)
			if err != nil {
				return perr.FromPostgresf(err, "mirror issue upsert %s", r.Slug())
			}
			written += n
			return nil
		})
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// buildRows converts remote issues into persistable records, skipping any
// whose author is missing or could not be resolved post-upsert
func (s *Service) buildRows(
	r domain.RepoRef,
	slice []domain.RemoteIssue,
	authorIDs map[int64]int64,
) []domain.Issue {
	now := s.now().UTC()
	rows := make([]domain.Issue, 0, len(slice))
	for _, is := range slice {
		if is.Author == nil {
			s.log.Warn().
				Str("repo", r.Slug()).
				Int("number", is.Number).
				Msg("issue has no author, skipping")
			continue
		}
		localID, ok := authorIDs[is.Author.RemoteID]
		if !ok {
			// should not happen after a successful upsert, guarded anyway
			s.log.Error().
				Str("repo", r.Slug()).
				Int("number", is.Number).
				Int64("remote_author_id", is.Author.RemoteID).
				Msg("author unresolved after upsert, skipping issue")
			continue
		}
		var body *string
		if is.Body != nil {
			clean := pstrings.SanitizeNull(*is.Body)
			body = &clean
		}
		rows = append(rows, domain.Issue{
			Owner:           r.Owner,
			Repo:            r.Name,
			Number:          is.Number,
			Title:           pstrings.SanitizeNull(is.Title),
			Body:            body,
			State:           is.State,
			AuthorID:        localID,
			RemoteCreatedAt: is.CreatedAt.UTC(),
			RemoteUpdatedAt: is.UpdatedAt.UTC(),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return rows
}
