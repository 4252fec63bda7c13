package service

import (
	"context"
	"time"

	perr "issuemirror/internal/platform/errors"
	"issuemirror/internal/services/mirror/domain"
)

// syncMode distinguishes first-time backfill from incremental catch-up
type syncMode int

const (
	modeFull syncMode = iota
	modeIncremental
)

func (m syncMode) String() string {
	if m == modeFull {
		return "full"
	}
	return "incremental"
}

// syncPlan carries the resolved mode, cursor, and remote query options
type syncPlan struct {
	Mode    syncMode
	Cursor  time.Time
	Options domain.FetchOptions
}

// buildPlan resolves the sync mode from the local cursor and shapes the
// remote query. Incremental runs sort updated-desc and widen the since
// filter by the cursor buffer so boundary updates are never missed,
// re-fetches are absorbed by reconciliation
func (s *Service) buildPlan(ctx context.Context, r domain.RepoRef) (syncPlan, error) {
	cursor, found, err := s.storage().MaxRemoteUpdated(ctx, r)
	if err != nil {
		return syncPlan{}, perr.FromPostgresf(err, "mirror cursor lookup %s", r.Slug())
	}
	return planFor(cursor, found, s.cfg.PageSize, s.cfg.CursorBuffer), nil
}

// planFor is the pure policy core, split out for tests
func planFor(cursor time.Time, found bool, pageSize int, buffer time.Duration) syncPlan {
	if !found {
		return syncPlan{
			Mode: modeFull,
			Options: domain.FetchOptions{
				State:   domain.StateAll,
				PerPage: pageSize,
			},
		}
	}
	since := cursor.Add(-buffer)
	return syncPlan{
		Mode:   modeIncremental,
		Cursor: cursor,
		Options: domain.FetchOptions{
			State:     domain.StateAll,
			Sort:      "updated",
			Direction: "desc",
			Since:     &since,
			PerPage:   pageSize,
		},
	}
}

// canStopEarly reports whether pagination may stop before exhausting the
// remote source. Incremental only: every item on the page must be strictly
// older than the cursor, an item exactly at the cursor forces continuation.
// Empty pages never reach this check, the orchestrator treats them as
// terminal on their own
func canStopEarly(plan syncPlan, page []domain.RemoteIssue) bool {
	if plan.Mode != modeIncremental || len(page) == 0 {
		return false
	}
	for _, is := range page {
		if !is.UpdatedAt.Before(plan.Cursor) {
			return false
		}
	}
	return true
}
