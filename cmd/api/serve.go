package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway and the redis broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func serve() error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}
	defer lg.Sync()
	if err := cfg.Validate(); err != nil {
		return err
	}
	sugar := lg.Sugar()
	sugar.Infow("starting service-user", "mode", cfg.App.Mode)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.App.Mode,
		}); err != nil {
			sugar.Errorw("sentry init failed", "err", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := newRepos(db).migrate(ctx); err != nil {
			return err
		}
		sugar.Info("schema ensured")
	}

	svc, err := newServices(cfg, db, sugar)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.App.Addr(),
		Handler: router.New(router.Deps{
			Registry:    svc.registry,
			Tokens:      svc.tokens,
			Permissions: svc.users,
			Logs:        svc.monitoring,
			Logger:      sugar.Named("http"),
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// redis is checked before the listener starts so a failed ping leaves nothing running
	var broker *rpc.Server
	if cfg.Broker.Enabled {
		var rdb *redis.Client
		broker, rdb, err = openBroker(ctx, cfg.Broker, svc.registry, sugar.Named("broker"))
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if broker != nil {
		g.Go(func() error { return broker.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("shutting down")
		doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(doneCtx); err != nil {
			sugar.Warnf("http server shutdown failed: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	sugar.Info("goodbye")
	return nil
}

// openBroker connects to redis and builds the broker server. The client is
// closed again when the ping fails.
func openBroker(ctx context.Context, bc config.BrokerConfig, reg *rpc.Registry, logger *zap.SugaredLogger) (*rpc.Server, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     bc.Addr,
		Password: bc.Password,
		DB:       bc.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	broker := rpc.NewServer(rdb, reg, rpc.ServerConfig{
		Queue:    bc.Queue,
		Workers:  bc.Workers,
		ReplyTTL: bc.ReplyTTL,
		PollWait: bc.PollWait,
	}, logger)
	broker.ReportError = func(_ context.Context, err error) {
		sentry.CaptureException(err)
	}
	return broker, rdb, nil
}
