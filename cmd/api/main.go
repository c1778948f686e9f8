package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "fixia/internal/adapters/http_server"
	"fixia/internal/adapters/notify"
	"fixia/internal/adapters/observability"
	redisad "fixia/internal/adapters/redis"
	"fixia/internal/app"
	"fixia/internal/domain"
	"fixia/internal/shared"
	mysqlrepo "fixia/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var notifier domain.Notifier
	if cfg.NotifyBase != "" {
		n, err := notify.New(cfg.NotifyBase, cfg.NotifyKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize notification client")
		}
		notifier = n
	} else {
		log.Warn().Msg("NOTIFY_BASE_URL is empty; notifications disabled")
	}

	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	r := app.NewReviewService(repo, cache, notifier)
	c := app.NewConnectionService(repo)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, R: r, C: c, Auth: server.NewAuth(cfg.JWTSecret)})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
