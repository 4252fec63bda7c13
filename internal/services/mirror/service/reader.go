package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	perr "issuemirror/internal/platform/errors"
	"issuemirror/internal/services/mirror/domain"
)

func issueCachePrefix(r domain.RepoRef) string {
	return "issues:" + r.Slug() + ":"
}

// issueCacheKey includes the fingerprint so any remote update changes the
// key, stale entries are simply never read again and swept by the cache.
// The requested state goes in as given: a defaulted request shares the open
// listing filter with an explicit state=open but not the total, so the two
// must not share an entry
func issueCacheKey(q domain.ListQuery, fingerprintNS int64) string {
	return fmt.Sprintf("%s%s:%d:%d:%d",
		issueCachePrefix(q.Repo), q.State, q.Page, q.PageSize, fingerprintNS)
}

func statCacheKey(r domain.RepoRef) string {
	return "stat:" + r.Slug()
}

// cachedPage is the materialized cache value for one list query
type cachedPage struct {
	Issues       []domain.Issue `json:"issues"`
	Total        int64          `json:"total"`
	RecomputedAt int64          `json:"recomputed_at_ns"`
}

// FetchForRead serves one page of locally mirrored issues.
// Cache key carries the repository freshness fingerprint, total comes from
// the stat aggregate when unfiltered and an exact count when state-filtered.
// A repository with zero local rows is served straight from the remote
// source without touching storage or cache
func (s *Service) FetchForRead(ctx context.Context, q domain.ListQuery) (domain.ListResult, error) {
	if q.Repo.Zero() {
		return domain.ListResult{}, perr.InvalidArgf("owner and name are required")
	}
	if q.State != "" && q.State != domain.StateOpen && q.State != domain.StateClosed {
		return domain.ListResult{}, perr.Validationf("state must be open or closed")
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = s.cfg.DefaultReadPageSize
	}

	fp, found, err := s.storage().MaxRemoteUpdated(ctx, q.Repo)
	if err != nil {
		return domain.ListResult{}, perr.FromPostgresf(err, "mirror fingerprint %s", q.Repo.Slug())
	}
	if !found {
		return s.readRemote(ctx, q)
	}

	key := issueCacheKey(q, fp.UnixNano())
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			var cp cachedPage
			if err := json.Unmarshal(raw, &cp); err == nil {
				return domain.ListResult{
					Issues:       cp.Issues,
					Total:        cp.Total,
					Fingerprint:  fp,
					RecomputedAt: nsToTime(cp.RecomputedAt),
				}, nil
			}
			s.cache.Delete(key)
		}
	}

	// the listing defaults to open issues, the total for an unfiltered
	// request still covers every state
	listQ := q
	if listQ.State == "" {
		listQ.State = domain.StateOpen
	}
	issues, err := s.storage().ListIssues(ctx, listQ)
	if err != nil {
		return domain.ListResult{}, perr.FromPostgresf(err, "mirror list %s", q.Repo.Slug())
	}

	total, recomputedAt, err := s.totalFor(ctx, q)
	if err != nil {
		return domain.ListResult{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(cachedPage{
			Issues:       issues,
			Total:        total,
			RecomputedAt: recomputedAt.UnixNano(),
		}); err == nil {
			// fingerprint change is the invalidation signal, not time
			s.cache.Set(key, raw, 0)
		}
	}

	return domain.ListResult{
		Issues:       issues,
		Total:        total,
		Fingerprint:  fp,
		RecomputedAt: recomputedAt,
	}, nil
}

// totalFor picks the cheap aggregate for unfiltered queries and an exact
// count when filtering by state, the aggregate does not split by state
func (s *Service) totalFor(ctx context.Context, q domain.ListQuery) (int64, time.Time, error) {
	stat, statErr := s.readStat(ctx, q.Repo)

	if q.State == "" {
		if statErr == nil {
			return stat.IssuesCount, stat.RecomputedAt, nil
		}
		if !perr.IsCode(statErr, perr.ErrorCodeNotFound) {
			return 0, time.Time{}, statErr
		}
		// no stat row yet, fall through to an exact count
	}

	n, err := s.storage().CountIssues(ctx, q.Repo, q.State)
	if err != nil {
		return 0, time.Time{}, perr.FromPostgresf(err, "mirror count %s", q.Repo.Slug())
	}
	if statErr == nil {
		return n, stat.RecomputedAt, nil
	}
	return n, time.Time{}, nil
}

// readStat reads the aggregate through a short-lived cache
func (s *Service) readStat(ctx context.Context, r domain.RepoRef) (domain.RepoStat, error) {
	key := statCacheKey(r)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			var st domain.RepoStat
			if err := json.Unmarshal(raw, &st); err == nil {
				return st, nil
			}
			s.cache.Delete(key)
		}
	}
	st, err := s.storage().GetStat(ctx, r)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.RepoStat{}, err
		}
		return domain.RepoStat{}, perr.FromPostgresf(err, "mirror stat %s", r.Slug())
	}
	if s.cache != nil {
		if raw, err := json.Marshal(st); err == nil {
			s.cache.Set(key, raw, s.cfg.StatTTL)
		}
	}
	return st, nil
}

// readRemote is the empty-repository fast path: one synchronous remote page
// for the caller's filter, nothing persisted. Background sync fills storage
// for subsequent calls
func (s *Service) readRemote(ctx context.Context, q domain.ListQuery) (domain.ListResult, error) {
	// an empty state is forwarded as-is, the remote API defaults to open
	// just like the local listing does
	page, _, err := s.source.FetchIssues(ctx, q.Repo, domain.FetchOptions{
		State:   q.State,
		Page:    q.Page,
		PerPage: q.PageSize,
	})
	if err != nil {
		return domain.ListResult{}, err
	}
	issues := make([]domain.Issue, 0, len(page))
	for _, is := range page {
		x := domain.Issue{
			Owner:           q.Repo.Owner,
			Repo:            q.Repo.Name,
			Number:          is.Number,
			Title:           is.Title,
			Body:            is.Body,
			State:           is.State,
			RemoteCreatedAt: is.CreatedAt,
			RemoteUpdatedAt: is.UpdatedAt,
		}
		if is.Author != nil {
			x.AuthorLogin = is.Author.Login
		}
		issues = append(issues, x)
	}
	return domain.ListResult{
		Issues: issues,
		Total:  int64(len(issues)),
		Remote: true,
	}, nil
}

// TriggerSyncIfStale enqueues a background sync when the newest local write
// is older than the staleness window or the repository has no rows at all.
// Fire and forget, reads never block on sync completion
func (s *Service) TriggerSyncIfStale(ctx context.Context, r domain.RepoRef) bool {
	if s.enq == nil || r.Zero() {
		return false
	}
	last, found, err := s.storage().LastLocalWrite(ctx, r)
	if err != nil {
		s.log.Error().Err(err).Str("repo", r.Slug()).Msg("staleness check failed")
		return false
	}
	if found && s.now().Sub(last) < s.cfg.Staleness {
		return false
	}
	return s.enq.Enqueue(r)
}

func nsToTime(ns int64) time.Time {
	if ns <= 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
