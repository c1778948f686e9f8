package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"fixia/internal/adapters/notify"
	"fixia/internal/adapters/observability"
	redisad "fixia/internal/adapters/redis"
	"fixia/internal/app"
	"fixia/internal/domain"
	"fixia/internal/shared"
	mysqlrepo "fixia/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.SweepWorkers).
		Int("limit", cfg.SweepLimit).
		Dur("grace", cfg.GracePeriod).
		Msg("sweeper starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var notifier domain.Notifier
	if cfg.NotifyBase != "" {
		n, err := notify.New(cfg.NotifyBase, cfg.NotifyKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize notification client")
		}
		notifier = n
	}

	sw := app.NewSweepService(repo, cache, notifier, cfg.GracePeriod)

	candidates, err := sw.Candidates(ctx, cfg.SweepLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("listing sweep candidates failed")
	}
	log.Info().Int("candidates", len(candidates)).Msg("sweep candidates loaded")

	sem := semaphore.NewWeighted(int64(cfg.SweepWorkers))
	var wg sync.WaitGroup
	var created, failed int64

	for _, c := range candidates {
		c := c

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(conn domain.ServiceConnection) {
			defer wg.Done()
			defer sem.Release(int64(1))

			if err := sw.Materialize(ctx, conn); err != nil {
				atomic.AddInt64(&failed, 1)
				observability.ObserveSweep("failed")
				log.Warn().Int64("connection_id", conn.ID).Err(err).Msg("materialize failed")
				return
			}
			atomic.AddInt64(&created, 1)
			observability.ObserveSweep("created")
			log.Info().Int64("connection_id", conn.ID).Msg("obligation materialized")
		}(c)
	}

	wg.Wait()
	log.Info().
		Int64("created", atomic.LoadInt64(&created)).
		Int64("failed", atomic.LoadInt64(&failed)).
		Msg("sweep completed")
}
