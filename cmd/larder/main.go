package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/larder-erp/larder-erp/internal/app"
	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/auth"
	"github.com/larder-erp/larder-erp/internal/grn"
	"github.com/larder-erp/larder-erp/internal/indents"
	"github.com/larder-erp/larder-erp/internal/inventory"
	"github.com/larder-erp/larder-erp/internal/masterdata/items"
	"github.com/larder-erp/larder-erp/internal/masterdata/vendors"
	"github.com/larder-erp/larder-erp/internal/observability"
	"github.com/larder-erp/larder-erp/internal/platform/db"
	"github.com/larder-erp/larder-erp/internal/procurement"
	"github.com/larder-erp/larder-erp/internal/rbac"
	"github.com/larder-erp/larder-erp/internal/rtv"
	"github.com/larder-erp/larder-erp/internal/sequence"
	"github.com/larder-erp/larder-erp/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	sessions := shared.NewSessionManager(redisClient, cfg.SessionTTL)
	seq := sequence.NewGenerator(sequence.NewPGStore(pool))
	recorder := audit.NewAsynqRecorder(asynqClient, logger)

	authService := auth.NewService(auth.NewUserRepository(pool), sessions, logger)
	indentService := indents.NewService(indents.NewRepository(pool), seq, recorder)
	procurementService := procurement.NewService(procurement.NewRepository(pool), seq, recorder)
	grnService := grn.NewService(grn.NewRepository(pool), seq, recorder)
	rtvService := rtv.NewService(rtv.NewRepository(pool), seq, recorder)
	vendorService := vendors.NewService(vendors.NewRepository(pool), seq, recorder)
	itemService := items.NewService(items.NewRepository(pool), seq, recorder)
	inventoryService := inventory.NewService(pool)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Sessions:           sessions,
		AuthHandler:        auth.NewHandler(authService, sessions),
		IndentsHandler:     indents.NewHandler(indentService),
		ProcurementHandler: procurement.NewHandler(procurementService),
		GRNHandler:         grn.NewHandler(grnService),
		RTVHandler:         rtv.NewHandler(rtvService),
		InventoryHandler:   inventory.NewHandler(inventoryService),
		VendorsHandler:     vendors.NewHandler(vendorService),
		ItemsHandler:       items.NewHandler(itemService),
		AuditHandler:       audit.NewHandler(audit.NewStore(pool)),
		RBAC:               rbac.Middleware{Source: rbac.NewService(pool), Logger: logger},
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
