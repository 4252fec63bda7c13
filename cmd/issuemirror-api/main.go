package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"issuemirror/internal/platform/cache"
	"issuemirror/internal/platform/config"
	"issuemirror/internal/platform/logger"
	phttp "issuemirror/internal/platform/net/http"
	"issuemirror/internal/platform/store"

	"issuemirror/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (MIRROR_API_PORT and friends)
	root := config.New()
	apiCfg := root.Prefix("MIRROR_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	// bring up logging early
	l := logger.Get()

	// open the platform store (postgres)
	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// process-wide read cache, swept every minute
	mem := cache.NewMemory(time.Minute)
	defer mem.Close()

	// http server (reads MIRROR_API_PORT)
	srv := phttp.NewServer(apiCfg)

	// mount the API and start the sync worker pool
	mirror := api.Mount(
		srv.Router(),
		api.Options{
			Config: root,
			Store:  st,
			Cache:  mem,
			Logger: l,
		},
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mirror.Start(ctx)
	defer mirror.Close()

	// run until SIGINT/SIGTERM, then drain
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
