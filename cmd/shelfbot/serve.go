package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/shelfbot/internal/api"
	"github.com/kalambet/shelfbot/internal/bot"
	"github.com/kalambet/shelfbot/internal/cleanup"
	"github.com/kalambet/shelfbot/internal/config"
	"github.com/kalambet/shelfbot/internal/ingest"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the cleanup worker and the ops HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("shelfbot starting", logger.String("version", version), logger.String("data_dir", cfg.Storage.DataDir))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tb, err := telegram.NewBot(telegram.Options{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, log.With(logger.String("component", "telegram")))
	if err != nil {
		return err
	}
	if cfg.Telegram.ProbeChatID == 0 {
		log.Warn("no probe chat configured; deleted source messages will not be detected")
	}

	sh, err := openShelf(cfg, telegram.NewResolver(tb, cfg.Telegram.ProbeChatID, log), log.With(logger.String("component", "catalog")))
	if err != nil {
		return err
	}
	defer func() {
		if err := sh.Close(); err != nil {
			log.Warn("closing storage", logger.Error(err))
		}
	}()

	scheduler := cleanup.NewScheduler(sh.store, log)
	worker := cleanup.NewWorker(sh.store, telegram.NewDeleter(tb), log.With(logger.String("component", "cleanup")), cleanup.Options{
		PollInterval: cfg.Cleanup.PollInterval,
	})

	handler := bot.New(bot.Deps{
		Catalog:   sh.catalog,
		Search:    sh.search,
		Ingest:    ingest.NewPipeline(sh.catalog, log.With(logger.String("component", "ingest"))),
		Scheduler: scheduler,
	}, bot.Config{
		AdminIDs:     cfg.Telegram.AdminIDs,
		CleanupDelay: cfg.Cleanup.Delay,
		SearchOnText: cfg.Telegram.SearchOnText,
	}, log.With(logger.String("component", "bot")))
	telegram.Register(ctx, tb, handler)

	if cfg.API.Token == "" {
		log.Info("SHELFBOT_API_TOKEN not set; HTTP API serves /health only")
	}
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewHandler(api.Deps{
			Search:  sh.search,
			Catalog: sh.catalog,
			Token:   cfg.API.Token,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telegram.Run(gctx, tb, log)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("http listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := config.Watch(gctx, func(next config.Config) {
			if next.Log.Level == cfg.Log.Level {
				return
			}
			if err := log.SetLevel(next.Log.Level); err != nil {
				log.Warn("ignoring log level from config", logger.String("level", next.Log.Level), logger.Error(err))
				return
			}
			cfg.Log.Level = next.Log.Level
			log.Info("log level changed", logger.String("level", next.Log.Level))
		})
		if err != nil {
			log.Warn("config reload disabled", logger.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "shelfbot stopped")
	return nil
}
