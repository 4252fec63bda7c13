package service

import (
	"context"

	perr "issuemirror/internal/platform/errors"
	"issuemirror/internal/platform/logger"
	"issuemirror/internal/services/mirror/domain"

	"github.com/google/uuid"
)

// SyncRepository drives one full synchronization pass:
// plan, fetch pages through the continuation handle, early-stop when the
// incremental cursor proves the rest is known, flush accepted records in
// bounded batches, then finalize bookkeeping.
// Finalize runs even when the run fails, its own errors are logged and
// never returned so they cannot mask the run outcome
func (s *Service) SyncRepository(ctx context.Context, r domain.RepoRef) error {
	if r.Zero() {
		return perr.InvalidArgf("owner and name are required")
	}

	log := s.log.With().
		Str("run_id", uuid.NewString()).
		Str("repo", r.Slug()).
		Logger()

	plan, err := s.buildPlan(ctx, r)
	if err != nil {
		log.Error().Err(err).Msg("sync plan failed")
		return err
	}
	log.Info().Str("mode", plan.Mode.String()).Time("cursor", plan.Cursor).Msg("sync started")

	var (
		acc     []domain.RemoteIssue
		pages   int
		written int64
	)

	flush := func() error {
		if len(acc) == 0 {
			return nil
		}
		accepted, err := s.reconcile(ctx, r, acc)
		if err != nil {
			return err
		}
		n, err := s.writeAccepted(ctx, r, accepted)
		if err != nil {
			return err
		}
		written += n
		acc = acc[:0]
		return nil
	}

	fail := func(err error, stage string) error {
		log.Error().Err(err).Str("stage", stage).Int("pages", pages).Msg("sync failed")
		s.finalize(ctx, r, log)
		return err
	}

	page, next, err := s.source.FetchIssues(ctx, r, plan.Options)
	for {
		if err != nil {
			return fail(err, "fetch")
		}
		pages++

		// empty page means no more data, not an error
		if len(page) == 0 {
			break
		}
		if canStopEarly(plan, page) {
			log.Debug().Int("pages", pages).Msg("early stop, page older than cursor")
			break
		}
		acc = append(acc, page...)
		if len(acc) >= s.cfg.FlushThreshold {
			if err := flush(); err != nil {
				return fail(err, "flush")
			}
		}
		if next.None() {
			break
		}
		page, next, err = s.source.FetchPage(ctx, next)
	}

	// final partial batch
	if err := flush(); err != nil {
		return fail(err, "final flush")
	}

	s.finalize(ctx, r, log)
	log.Info().Int("pages", pages).Int64("written", written).Msg("sync done")
	return nil
}

// finalize recomputes the aggregate and drops every cached read for the
// repository. Best effort by contract, failures here are logged only
func (s *Service) finalize(ctx context.Context, r domain.RepoRef, log logger.Logger) {
	if _, err := s.storage().RecomputeStat(ctx, r); err != nil {
		log.Error().Err(err).Msg("stat recompute failed")
	}
	if s.cache != nil {
		s.cache.DeletePrefix(issueCachePrefix(r))
		s.cache.Delete(statCacheKey(r))
	}
}
