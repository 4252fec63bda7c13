// Package service implements the synchronization engine and read path for
// mirrored issues
package service

import (
	"time"

	"issuemirror/internal/modkit/repokit"
	"issuemirror/internal/platform/cache"
	"issuemirror/internal/platform/logger"
	"issuemirror/internal/services/mirror/domain"
	"issuemirror/internal/services/mirror/repo"
)

// Config for the mirror service
type Config struct {
	// PageSize is the remote fetch page size, capped at 100 by the source
	PageSize int
	// FlushThreshold is the accumulator size that forces a batch flush
	FlushThreshold int
	// CursorBuffer widens the incremental since filter to absorb clock skew
	CursorBuffer time.Duration
	// Staleness is the local-write age beyond which a read triggers a sync
	Staleness time.Duration
	// DefaultReadPageSize applies when a list query carries no page size
	DefaultReadPageSize int
	// StatTTL bounds the repo stat read-through cache
	StatTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = 5000
	}
	if c.CursorBuffer <= 0 {
		c.CursorBuffer = time.Minute
	}
	if c.Staleness <= 0 {
		c.Staleness = 10 * time.Minute
	}
	if c.DefaultReadPageSize <= 0 {
		c.DefaultReadPageSize = 25
	}
	if c.StatTTL <= 0 {
		c.StatTTL = 5 * time.Minute
	}
	return c
}

// Service implements domain.SyncPort and domain.ReaderPort
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Storage]
	source domain.SourcePort
	cache  cache.Cache
	enq    domain.EnqueuerPort
	log    logger.Logger
	cfg    Config

	// test seam
	now func() time.Time
}

// New constructs the mirror service.
// The enqueuer is attached later via SetEnqueuer since the queue consumes
// the service itself
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Storage],
	source domain.SourcePort,
	c cache.Cache,
	log logger.Logger,
	cfg Config,
) *Service {
	return &Service{
		db:     db,
		binder: binder,
		source: source,
		cache:  c,
		log:    log,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// SetEnqueuer wires the background queue used by TriggerSyncIfStale
func (s *Service) SetEnqueuer(enq domain.EnqueuerPort) { s.enq = enq }

// storage binds the repo to the pool-level querier
func (s *Service) storage() repo.Storage { return repokit.MustBind(s.binder, s.db) }
