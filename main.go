package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/castaway-social/indexer/models"
)

func main() {
	app := cli.App{
		Name:  "indexer",
		Usage: "farcaster hub event indexer",
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:  "max-db-connections",
			Value: 50,
		},
		&cli.StringFlag{
			Name:    "hub-url",
			EnvVars: []string{"HUB_URL"},
			Value:   "https://hub.farcaster.standardcrypto.vc:2281",
		},
		&cli.StringFlag{
			Name:    "redis-url",
			EnvVars: []string{"REDIS_URL"},
			Value:   "redis://localhost:6379",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "backfill-workers",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "resolver-max-hops",
			Value: 1000,
		},
		&cli.DurationFlag{
			Name:  "resolver-hop-timeout",
			Value: time.Second * 5,
		},
		&cli.StringFlag{
			Name:  "metrics-listen",
			Value: ":5151",
		},
		&cli.StringFlag{
			Name:  "ingest-stream",
			Value: "hub:messages",
		},
		&cli.StringFlag{
			Name:  "event-stream",
			Value: "indexer:events",
		},
		&cli.BoolFlag{
			Name: "no-live-tail",
		},
	}
	app.Action = func(cctx *cli.Context) error {
		db, err := setupDatabase(cctx.String("db-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		if err := db.AutoMigrate(
			models.Cast{},
			models.CastEmbedCast{},
			models.CastEmbedURL{},
			models.CastMention{},
			models.CastStats{},
			models.UserStats{},
			models.ParentURLStats{},
			models.Link{},
			models.CastReaction{},
			models.URLReaction{},
			models.Verification{},
			models.UserData{},
			models.UsernameProof{},
			models.HubCursor{},
			models.BackfillJob{},
		); err != nil {
			return err
		}

		ropts, err := redis.ParseURL(cctx.String("redis-url"))
		if err != nil {
			return fmt.Errorf("bad redis url: %w", err)
		}
		rdb := redis.NewClient(ropts)

		hub := NewHTTPHubClient(cctx.String("hub-url"))

		resolver := NewRootResolver(db, hub,
			cctx.Int("resolver-max-hops"),
			cctx.Duration("resolver-hop-timeout"))

		pub := NewRedisPublisher(rdb,
			cctx.String("event-stream"),
			cctx.String("event-stream")+":priority")

		proc := NewProcessor(db, resolver, pub)
		bf := NewBackfiller(db, hub, resolver)

		ing := NewIngester(db, hub, rdb, proc, bf,
			cctx.String("ingest-stream"), "indexer")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := ing.LoadCursor(ctx); err != nil {
			return err
		}
		if err := ing.ensureGroup(ctx); err != nil {
			return err
		}

		go ing.syncCursorRoutine(ctx)

		for i := 0; i < cctx.Int("workers"); i++ {
			go ing.runWorker(ctx, fmt.Sprintf("worker-%d", i))
		}
		go ing.reclaimLoop(ctx, "reclaimer")

		for i := 0; i < cctx.Int("backfill-workers"); i++ {
			go bf.Run(ctx)
		}

		tailClosed := make(chan struct{})
		if !cctx.Bool("no-live-tail") {
			go func() {
				if err := ing.pollEvents(ctx); err != nil && ctx.Err() == nil {
					slog.Error("hub event tail failed", "err", err)
				}
				close(tailClosed)
			}()
		}

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), nil); err != nil {
				slog.Error("metrics server failed", "err", err)
			}
		}()

		quit := make(chan struct{})
		exitSignals := make(chan os.Signal, 1)
		signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-exitSignals:
				slog.Info("received OS exit signal", "signal", sig)
			case <-tailClosed:
			}

			cancel()

			if err := ing.FlushCursor(); err != nil {
				slog.Error("final flush cursor failed", "err", err)
			}

			close(quit)
		}()

		<-quit

		return nil
	}

	app.RunAndExitOnError()
}

func setupDatabase(dburl string, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dburl), &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(maxConns)
	sqldb.SetMaxIdleConns(maxConns / 2)
	sqldb.SetConnMaxIdleTime(time.Hour)

	return db, nil
}
