// Package module wires the mirror service into the API using modkit
package module

import (
	"context"
	"net/http"

	gh "issuemirror/internal/adapters/github"
	modkit "issuemirror/internal/modkit"
	"issuemirror/internal/modkit/httpkit"
	str "issuemirror/internal/platform/strings"

	"issuemirror/internal/services/mirror/domain"
	mhttp "issuemirror/internal/services/mirror/http"
	mrepo "issuemirror/internal/services/mirror/repo"
	msvc "issuemirror/internal/services/mirror/service"
)

// Ports exposed by the mirror module
type Ports struct {
	Reader   domain.ReaderPort
	Sync     domain.SyncPort
	Enqueuer domain.EnqueuerPort
}

// Module implements the mirror service module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	register func(httpkit.Router)

	ports Ports
	queue *msvc.Queue
}

// New constructs the mirror module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("mirror"),
		modkit.WithPrefix("/repos"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)

	ghc := gh.NewClient(gh.Options{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		TokensCSV:      cfg.TokensCSV,
		MaxRetries:     cfg.MaxRetries,
		RetryBase:      cfg.RetryBase,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
	})
	source := gh.NewSource(ghc)

	svc := msvc.New(deps.PG, mrepo.NewPG(), source, deps.Cache, deps.Log, msvc.Config{
		PageSize:            cfg.PageSize,
		FlushThreshold:      cfg.FlushThreshold,
		CursorBuffer:        cfg.CursorBuffer,
		Staleness:           cfg.Staleness,
		DefaultReadPageSize: cfg.DefaultPageSize,
		StatTTL:             cfg.StatTTL,
	})

	queue := msvc.NewQueue(deps.Log, svc, cfg.Workers, cfg.QueueDepth)
	svc.SetEnqueuer(queue)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		queue:  queue,
		ports: Ports{
			Reader:   svc,
			Sync:     svc,
			Enqueuer: queue,
		},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		mhttp.Register(r, m.ports.Reader, m.ports.Enqueuer)
		if external != nil {
			external(r)
		}
	}

	return m
}

// Start launches the background sync worker pool
func (m *Module) Start(ctx context.Context) { m.queue.Start(ctx) }

// Close drains the background queue
func (m *Module) Close() { m.queue.Close() }

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.name, "mirror") }

// Prefix implements the modkit.Module interface
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return m.ports }
