package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/config"
	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/internal/platform/httpserver"
	"github.com/example/comment-platform/internal/platform/logging"
	"github.com/example/comment-platform/internal/platform/natsconn"
	"github.com/example/comment-platform/internal/platform/ratelimit"
	"github.com/example/comment-platform/internal/platform/run"
	threadscfg "github.com/example/comment-platform/services/threads/internal/config"
	"github.com/example/comment-platform/services/threads/internal/grpcapi"
	"github.com/example/comment-platform/services/threads/internal/handlers"
	"github.com/example/comment-platform/services/threads/internal/idempotency"
	"github.com/example/comment-platform/services/threads/internal/notify"
	"github.com/example/comment-platform/services/threads/internal/store"
	"github.com/example/comment-platform/services/threads/internal/thread"
	"github.com/example/comment-platform/services/threads/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	svc, err := threadscfg.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.NewWithFile(cfg.Log.Level, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Stdout:     cfg.Log.Stdout,
	})
	if err != nil {
		panic(err)
	}
	log = log.With(zap.String("service", cfg.ServiceName))
	defer func() { _ = log.Sync() }()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		return serve(ctx, cfg, svc, runner, log)
	})

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

func serve(ctx context.Context, cfg config.AppConfig, svc threadscfg.Config, runner *run.Runner, log *zap.Logger) error {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	comments, closeStore, err := store.Open(openCtx, svc.StoreBackend, svc.DatabaseURL, svc.IsProd())
	cancel()
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("comment store ready", zap.String("backend", svc.StoreBackend))

	// NATS is optional outside production: without it the service still
	// serves reads and admin purges, but neither notifies nor consumes.
	var js nats.JetStreamContext
	nc, err := natsconn.Connect(natsconn.Options{URL: svc.NATSURL, Name: cfg.ServiceName, Logger: log})
	switch {
	case err == nil:
		defer nc.Close()
		if js, err = natsconn.JetStream(nc); err != nil {
			return err
		}
	case svc.IsProd():
		return err
	default:
		log.Warn("nats unavailable, page events and removal notifications disabled", zap.Error(err))
	}

	var notifier notify.Notifier = notify.Nop{}
	if js != nil && svc.Notify {
		if err := events.EnsureStream(js, events.StreamComments, events.SubjectCommentRemoved); err != nil {
			return err
		}
		notifier = notify.NewBreakerNotifier(notify.NewNATSNotifier(events.New(js, log)), notify.BreakerConfig{
			FailureThreshold: svc.NotifyCBFailures,
			Timeout:          svc.NotifyCBTimeout,
		}, log)
	}
	engine := thread.NewEngine(comments, notifier, log.Named("thread"))

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log,
		ReadyFunc: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return comments.Ping(pingCtx)
		},
	})
	limiter := ratelimit.New(svc.RateLimitRPS, svc.RateLimitBurst)
	handlers.Mount(r, engine, auth.JWTVerifier{Secret: []byte(svc.JWTSecret), Issuer: svc.JWTIssuer, Leeway: 30 * time.Second}, limiter, log)
	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	health := grpcapi.NewHealth(comments, log)
	grpcSrv := grpcapi.NewServer(health, log)
	lis, err := net.Listen("tcp", svc.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", svc.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		log.Info("grpc server starting", zap.String("addr", svc.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		health.Watch(gctx, 10*time.Second)
		return nil
	})
	if js != nil {
		idem, err := idempotency.NewStore(svc.RedisDSN, svc.DatabaseURL, svc.IdempotencyTTL, svc.IsProd())
		if err != nil {
			return err
		}
		consumer := worker.NewPageEvents(js, worker.PageEventsConfig{
			Subject:       svc.PageEventsSubject,
			BatchSize:     svc.WorkerBatchSize,
			BatchInterval: svc.WorkerBatchInterval,
		}, engine, idem, log)
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		runner.Graceful("http", srv.Shutdown)
		runner.Graceful("grpc", func(ctx context.Context) error {
			stopped := make(chan struct{})
			go func() {
				grpcSrv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				grpcSrv.Stop()
				return ctx.Err()
			}
		})
		return nil
	})
	return g.Wait()
}
