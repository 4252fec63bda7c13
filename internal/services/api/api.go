// Package api provides the HTTP API for the application
package api

import (
	"issuemirror/internal/platform/cache"
	"issuemirror/internal/platform/config"
	"issuemirror/internal/platform/logger"
	phttp "issuemirror/internal/platform/net/http"
	"issuemirror/internal/platform/store"

	"issuemirror/internal/modkit"
	"issuemirror/internal/modkit/httpkit"
	"issuemirror/internal/modkit/module"

	metamod "issuemirror/internal/services/meta/module"
	mirrormod "issuemirror/internal/services/mirror/module"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	Cache  cache.Cache
	Logger *logger.Logger
}

// Mount mounts the API service onto the given router and returns the mirror
// module so the caller can start and drain its worker pool
func Mount(r phttp.Router, opt Options) *mirrormod.Module {
	deps := modkit.Deps{
		Log:   *opt.Logger,
		Cfg:   opt.Config,
		PG:    opt.Store.PG,
		Cache: opt.Cache,
	}

	mirror := mirrormod.New(deps)

	mods := []module.Module{
		metamod.New(deps),
		mirror,
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			m.MountRoutes(api)
		}
	})

	return mirror
}
