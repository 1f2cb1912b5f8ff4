package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/alarmkit/alarmd/internal/api"
	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
	"github.com/alarmkit/alarmd/internal/janitor"
	"github.com/alarmkit/alarmd/internal/kv"
	"github.com/alarmkit/alarmd/internal/metrics"
	alarmnats "github.com/alarmkit/alarmd/internal/nats"
	"github.com/alarmkit/alarmd/internal/notify"
	"github.com/alarmkit/alarmd/internal/ring"
	"github.com/alarmkit/alarmd/internal/scheduler"
	"github.com/alarmkit/alarmd/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := server.LoadConfig()
	ctx := context.Background()

	// Connect to NATS
	channel, nc, err := alarmnats.Connect(cfg.NatsURL)
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	defer channel.Close()
	slog.Info("connected to NATS", "url", cfg.NatsURL)

	metrics.Init(core.Version, "nats")

	// Blob store for audio clips
	blobs, err := blob.Open(ctx)
	if err != nil {
		slog.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}
	slog.Info("blob store ready", "driver", blobs.Driver())

	notifier := notify.NewNATS(nc)

	var fg *scheduler.Foreground
	var hub *api.Hub
	var srv *http.Server
	var grpcServer *grpc.Server
	var keepalive *scheduler.Keepalive
	var sweeper *janitor.Janitor

	if cfg.RunsForeground() {
		bucket, err := alarmnats.OpenAlarmBucket(ctx, nc)
		if err != nil {
			slog.Error("failed to open alarm bucket", "error", err)
			os.Exit(1)
		}
		store := kv.NewAlarmStore(kv.NewStore(bucket))

		var sink ring.Sink = ring.Silent{}
		if cfg.Audio {
			sink = ring.NewOtoSink()
		}

		hub = api.NewHub()
		fg = scheduler.NewForeground(scheduler.ForegroundConfig{
			Channel:  channel,
			Store:    store,
			Ringer:   ring.New(sink, blobs),
			Notifier: notifier,
			OnFire: func(a core.SlimAlarm) {
				hub.Broadcast(api.EventFired, a)
			},
			OnDismiss: func(a core.SlimAlarm) {
				hub.Broadcast(api.EventDismissed, a)
			},
		})
		if err := fg.Start(ctx); err != nil {
			slog.Error("failed to start foreground scheduler", "error", err)
			os.Exit(1)
		}
		defer fg.Stop()

		keepalive = scheduler.NewKeepalive(channel, 0)
		keepalive.Start(ctx)
		defer keepalive.Stop()

		sweeper = janitor.New(fg, blobs)
		if err := sweeper.Start(cfg.JanitorSchedule); err != nil {
			slog.Error("failed to schedule janitor", "spec", cfg.JanitorSchedule, "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()

		router := server.NewRouter(api.NewHandler(fg, blobs, hub))
		srv = &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}
		go func() {
			slog.Info("alarmd HTTP server listening", "port", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("server error", "error", err)
				os.Exit(1)
			}
		}()

		// gRPC health + reflection for orchestrator probes
		grpcServer = grpc.NewServer()
		healthSrv := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthSrv)
		healthSrv.SetServingStatus("alarmkit.v1.AlarmService", healthpb.HealthCheckResponse_SERVING)
		reflection.Register(grpcServer)
		go func() {
			lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
			if err != nil {
				slog.Error("failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
				os.Exit(1)
			}
			slog.Info("alarmd gRPC server listening", "port", cfg.GRPCPort)
			if err := grpcServer.Serve(lis); err != nil {
				slog.Error("gRPC server error", "error", err)
			}
		}()
	}

	var bg *scheduler.Background
	if cfg.RunsBackground() {
		bg = scheduler.NewBackground(scheduler.BackgroundConfig{
			Channel:  channel,
			Notifier: notifier,
		})
		if err := bg.Start(ctx); err != nil {
			slog.Error("failed to start background scheduler", "error", err)
			os.Exit(1)
		}
		defer bg.Stop()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	if bg != nil {
		bg.Stop()
	}
	if fg != nil {
		fg.Stop()
	}
	if keepalive != nil {
		keepalive.Stop()
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}
	slog.Info("stopped")
}
