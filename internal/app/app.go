// Package app assembles the services and the HTTP handler from settings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"movieverse/api"
	"movieverse/config"
	"movieverse/handlers"
	"movieverse/internal/database"
	"movieverse/services/catalog"
	"movieverse/services/httpretry"
	"movieverse/services/payloadcache"
	"movieverse/services/player"
	"movieverse/services/requests"
	"movieverse/services/tmdb"
	"movieverse/utils"
)

// manifestReloads bounds StartLoad retries of the player engine.
const manifestReloads = 2

// App holds the long-lived services of one process.
type App struct {
	Config   *config.Settings
	DB       *database.DB
	Catalog  *catalog.Client
	TMDB     *tmdb.Client
	Payloads *payloadcache.Service
	Requests *requests.Service

	MediaHosts *utils.MediaHostPolicy

	playerRetrier *httpretry.Client
	closers       []func() error
}

// New opens storage and builds every service. On error everything opened so
// far is closed again.
func New(ctx context.Context, cfg *config.Settings) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	var respCache *catalog.ResponseCache
	if cfg.Catalog.CacheDir != "" {
		respCache, err = catalog.OpenResponseCache(cfg.Catalog.CacheDir)
		if err != nil {
			return fmt.Errorf("open catalog cache: %w", err)
		}
		a.closers = append(a.closers, respCache.Close)
	}
	a.Catalog = catalog.New(&http.Client{Timeout: cfg.Catalog.Timeout}, respCache, catalog.Options{
		BaseURL:  cfg.Catalog.BaseURL,
		ListTTL:  cfg.Catalog.ListTTL,
		TokenTTL: cfg.Catalog.TokenTTL,
	})

	tmdbRetrier := httpretry.New(nil, httpretry.Options{
		Target:    "tmdb",
		BaseDelay: cfg.TMDB.BaseDelay,
		MaxJitter: cfg.TMDB.MaxJitter,
	})
	a.TMDB = tmdb.New(tmdbRetrier, tmdb.Options{
		BaseURL:        cfg.TMDB.BaseURL,
		APIKey:         cfg.TMDB.APIKey,
		MaxRetries:     cfg.TMDB.MaxRetries,
		AttemptTimeout: cfg.TMDB.AttemptTimeout,
	})
	if cfg.TMDB.APIKey == "" {
		log.Printf("[app] TMDB_API_KEY not set; title requests will fail")
	}

	a.MediaHosts = utils.NewMediaHostPolicy(cfg.Player.MediaHosts, cfg.Player.AllowPrivateMedia)
	a.playerRetrier = httpretry.New(a.MediaHosts.HTTPClient(cfg.Catalog.Timeout), httpretry.Options{
		Target:    "player",
		BaseDelay: cfg.TMDB.BaseDelay,
		MaxJitter: cfg.TMDB.MaxJitter,
	})

	store, err := newPayloadStore(ctx, cfg.PayloadCache)
	if err != nil {
		return err
	}
	a.Payloads = payloadcache.NewService(store)
	a.closers = append(a.closers, a.Payloads.Close)

	a.Requests = requests.NewService(a.Catalog, database.NewMarkerRepository(db.Connection()))
	return nil
}

func newPayloadStore(ctx context.Context, cfg config.PayloadCacheSettings) (payloadcache.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		log.Printf("[app] payload cache on redis %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
		return payloadcache.NewRedisStore(client, cfg.TabTTL), nil
	default:
		store, err := payloadcache.NewMemoryStore(cfg.MaxTabs, cfg.TabQuotaBytes, cfg.TabTTL)
		if err != nil {
			return nil, fmt.Errorf("create payload cache: %w", err)
		}
		return store, nil
	}
}

// NewEngine returns a fresh player engine for one playback source.
func (a *App) NewEngine() player.Engine {
	return player.NewManifestEngine(a.playerRetrier, manifestReloads, httpretry.DefaultAttemptTimeout)
}

// Handler builds the full HTTP handler. ctx bounds background work such as
// rate limiter sweeps.
func (a *App) Handler(ctx context.Context, started time.Time) (http.Handler, error) {
	cfg := a.Config

	renderer, err := handlers.NewRenderer(cfg.Images)
	if err != nil {
		return nil, err
	}

	r := utils.NewRouter(utils.NewOriginPolicy(cfg.Server.AllowedOrigins, cfg.Server.AllowLocalCORS), started)
	r.Use(api.RecoverMiddleware, api.AccessLogMiddleware, api.VisitorMiddleware(cfg.Server.SecureCookies))

	limiter := api.NewIPRateLimiter(ctx, api.PerMinute(cfg.RateLimit.SearchPerMinute), cfg.RateLimit.SearchBurst)

	handlers.Register(r, handlers.Routes{
		Pages:       handlers.NewPageHandler(a.Catalog, a.Payloads, renderer),
		Requests:    handlers.NewRequestHandler(a.TMDB, a.Catalog, a.Requests, a.Payloads, renderer),
		Watch:       handlers.NewWatchHandler(a.NewEngine, a.MediaHosts, renderer),
		Search:      handlers.NewSearchHandler(a.Catalog, cfg.Search.DefaultLimit),
		TMDB:        handlers.NewTMDBHandler(a.TMDB),
		Token:       handlers.NewTokenHandler(a.Catalog),
		Cache:       handlers.NewCacheHandler(a.Payloads),
		Items:       handlers.NewItemHandler(a.Catalog),
		Version:     handlers.NewVersionHandler(),
		Logs:        handlers.NewLogsHandler(cfg.Server.LogFile),
		Static:      handlers.NewStaticHandler(cfg.Server.StaticDir),
		Metrics:     promhttp.Handler(),
		SearchLimit: limiter.Middleware(),
	})
	return r, nil
}

// Close releases storage in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
