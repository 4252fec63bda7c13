package service

import (
	"context"

	"issuemirror/internal/modkit/repokit"
	perr "issuemirror/internal/platform/errors"
	pstrings "issuemirror/internal/platform/strings"
	"issuemirror/internal/services/mirror/domain"
)

// resolveAuthors deduplicates the batch's authors by remote id, upserts them
// in one statement, and returns remote id -> local id for every author seen.
// Issues without an author are counted and logged by the caller, they do not
// fail the batch. Runs against q so it shares the writer's transaction
func (s *Service) resolveAuthors(
	ctx context.Context,
	q repokit.Queryer,
	batch []domain.RemoteIssue,
) (map[int64]int64, error) {
	distinct := distinctAuthors(batch)
	if len(distinct) == 0 {
		return map[int64]int64{}, nil
	}

	st := s.binder.Bind(q)
	if err := st.UpsertAuthors(ctx, distinct); err != nil {
		return nil, perr.FromPostgresf(err, "mirror author upsert")
	}

	ids := make([]int64, 0, len(distinct))
	for _, a := range distinct {
		ids = append(ids, a.RemoteID)
	}
	m, err := st.AuthorIDsByRemote(ctx, ids)
	if err != nil {
		return nil, perr.FromPostgresf(err, "mirror author lookup")
	}
	return m, nil
}

// distinctAuthors extracts unique authors by remote id with free-text fields
// sanitized for storage, preserving first-seen order
func distinctAuthors(batch []domain.RemoteIssue) []domain.RemoteAuthor {
	seen := make(map[int64]bool, len(batch))
	out := make([]domain.RemoteAuthor, 0, len(batch))
	for _, is := range batch {
		a := is.Author
		if a == nil || seen[a.RemoteID] {
			continue
		}
		seen[a.RemoteID] = true
		out = append(out, domain.RemoteAuthor{
			RemoteID:   a.RemoteID,
			Login:      pstrings.SanitizeNull(a.Login),
			AvatarURL:  pstrings.SanitizeNull(a.AvatarURL),
			Kind:       pstrings.SanitizeNull(a.Kind),
			ProfileURL: pstrings.SanitizeNull(a.ProfileURL),
		})
	}
	return out
}
