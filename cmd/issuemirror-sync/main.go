package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"issuemirror/internal/modkit"
	"issuemirror/internal/modkit/module"
	"issuemirror/internal/platform/cache"
	"issuemirror/internal/platform/config"
	"issuemirror/internal/platform/logger"
	"issuemirror/internal/platform/store"

	"issuemirror/internal/services/mirror/domain"
	mirrormod "issuemirror/internal/services/mirror/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	var (
		fRepo    = flag.String("repo", "", "repository to mirror, owner/name")
		fTimeout = flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	)
	flag.Parse()

	owner, name, ok := strings.Cut(*fRepo, "/")
	if !ok || owner == "" || name == "" {
		l.Fatal().Str("repo", *fRepo).Msg("must provide -repo as owner/name")
	}

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	mem := cache.NewMemory(time.Minute)
	defer mem.Close()

	deps := modkit.Deps{
		Cfg:   root,
		PG:    st.PG,
		Cache: mem,
		Log:   *l,
	}

	mirror := mirrormod.New(deps)
	module.Register(mirror.Name(), mirror.Ports())

	ctx, cancel := context.WithTimeout(context.Background(), *fTimeout)
	defer cancel()

	ports, ok := module.PortsAs[mirrormod.Ports](mirror.Name())
	if !ok {
		l.Fatal().Msg("mirror ports not registered")
	}
	if err := ports.Sync.SyncRepository(ctx, domain.RepoRef{Owner: owner, Name: name}); err != nil {
		l.Fatal().Err(err).Str("repo", *fRepo).Msg("sync failed")
	}
}
