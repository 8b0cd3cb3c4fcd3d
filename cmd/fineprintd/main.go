package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/fineprint/internal/async"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/compare"
	"github.com/joseph-ayodele/fineprint/internal/export"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/ingest"
	"github.com/joseph-ayodele/fineprint/internal/llm/openai"
	"github.com/joseph-ayodele/fineprint/internal/mail"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
	"github.com/joseph-ayodele/fineprint/internal/normalize"
	"github.com/joseph-ayodele/fineprint/internal/notifications"
	"github.com/joseph-ayodele/fineprint/internal/pipeline"
	"github.com/joseph-ayodele/fineprint/internal/regulations"
	repo "github.com/joseph-ayodele/fineprint/internal/repository"
	"github.com/joseph-ayodele/fineprint/internal/review"
	"github.com/joseph-ayodele/fineprint/internal/segment"
	"github.com/joseph-ayodele/fineprint/internal/server"
	"github.com/joseph-ayodele/fineprint/internal/storage"
	"github.com/joseph-ayodele/fineprint/internal/users"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}
	store := repo.NewSQLStore(db, logger)

	objects, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open object store", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Analysis pipeline
	extractor, err := extract.New(cfg.Extractor, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}
	oracle := openai.NewClient(openai.ConfigFromCommon(cfg.LLM), m, logger)
	segmenter, err := segment.New(cfg.Ingest.Segmenter, oracle, m, logger)
	if err != nil {
		logger.Error("failed to build segmenter", "error", err)
		os.Exit(1)
	}
	processor := pipeline.NewProcessor(
		extractor,
		segmenter,
		compare.NewComparator(oracle, cfg.LLM.MaxInputChars, logger),
		normalize.New(m, logger),
		m,
		logger,
	)

	// Best-effort email
	queue := async.NewWorkerQueue(logger,
		async.WithWorkers(cfg.Mail.Workers),
		async.WithQueueSize(cfg.Mail.QueueSize),
		async.WithJobTimeout(cfg.Mail.SendTimeout),
	)
	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.Mail.Enabled() {
		smtp, err := mail.NewSMTPSender(cfg.Mail, logger)
		if err != nil {
			logger.Error("failed to build smtp sender", "error", err)
			os.Exit(1)
		}
		sender = smtp
	} else {
		logger.Warn("SMTP not configured, notification emails will only be logged")
	}
	dispatcher := mail.NewDispatcher(queue, sender, m, logger)

	notes := notifications.NewService(store.Notifications, store.Users, dispatcher, cfg.Mail.SubjectPrefix, logger)
	regs := regulations.NewService(store.Regulations, objects, processor, notes, m,
		regulations.Options{IngestTimeout: cfg.Ingest.Timeout}, logger)

	// Optional drop folder
	if cfg.Ingest.InboxDir != "" {
		inbox, err := ingest.NewInbox(cfg.Ingest.InboxDir, regs, logger)
		if err != nil {
			logger.Error("failed to open inbox", "dir", cfg.Ingest.InboxDir, "error", err)
			os.Exit(1)
		}
		go func() {
			logger.Info("watching inbox", "dir", inbox.Root())
			if err := inbox.Run(ctx, cfg.Ingest.InboxDebounce, cfg.Ingest.InboxRescan); err != nil {
				logger.Error("inbox stopped", "error", err)
			}
		}()
	}

	api := server.New(server.Services{
		Regulations:   regs,
		Review:        review.NewService(regs, m, logger),
		Notifications: notes,
		Users:         users.NewService(store.Users, logger),
		Export:        export.NewService(store.Regulations, logger),
	}, server.Options{
		Gatherer: registry,
		Health: func(ctx context.Context) error {
			return db.HealthCheck(ctx, 2*time.Second, logger)
		},
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("fineprint http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	// gRPC health for orchestrators
	var (
		grpcServer   *grpc.Server
		healthServer *health.Server
	)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		go func() {
			logger.Info("fineprint grpc health listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}
	queue.Shutdown(shutdownCtx)
}
