package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/config"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/engine"
	"github.com/mamadbah2/dairy-dwr/internal/lock"
	"github.com/mamadbah2/dairy-dwr/internal/repository/memory"
	"github.com/mamadbah2/dairy-dwr/internal/repository/mongodb"
	"github.com/mamadbah2/dairy-dwr/internal/repository/sheets"
	"github.com/mamadbah2/dairy-dwr/internal/scheduler"
	"github.com/mamadbah2/dairy-dwr/internal/server/handlers"
	"github.com/mamadbah2/dairy-dwr/internal/server/router"
	"github.com/mamadbah2/dairy-dwr/internal/service/advances"
	"github.com/mamadbah2/dairy-dwr/internal/service/directory"
	"github.com/mamadbah2/dairy-dwr/internal/service/notify"
	reportingsvc "github.com/mamadbah2/dairy-dwr/internal/service/reporting"
	whatsappclient "github.com/mamadbah2/dairy-dwr/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairy-dwr/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var store engine.Store
	switch cfg.Store.Driver {
	case config.DriverMongoDB:
		mongoStore, err := mongodb.NewStore(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
		}
		store = mongoStore
	default:
		baseLogger.Warn("using in-memory store, state is lost on restart")
		store = memory.New(baseLogger.Named("repo.memory"))
	}

	var locker lock.Locker
	if cfg.Lock.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			baseLogger.Fatal("failed to reach redis", zap.String("addr", cfg.Lock.RedisAddr), zap.Error(err))
		}
		locker = lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.WaitTimeout, baseLogger.Named("lock.redis"))
		baseLogger.Info("redis receipt lock enabled", zap.String("addr", cfg.Lock.RedisAddr))
	} else {
		locker = lock.NewKeyedLocker(cfg.Lock.WaitTimeout)
	}

	dir := directory.New(cfg.Ledger.DefaultPricePerLiter, baseLogger.Named("directory"))

	var waClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		waClient = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications disabled")
	}
	notifier := notify.NewWhatsAppNotifier(waClient, dir, baseLogger.Named("svc.notify"))

	eng := engine.New(engine.Deps{
		Store:     store,
		Locker:    locker,
		Directory: dir,
		Notifier:  notifier,
		Policy: advances.Policy{
			MaxLTV:   cfg.Ledger.MaxLTV,
			LenderID: cfg.Ledger.PlatformEntityID,
		},
		Location: loc,
		Logger:   baseLogger.Named("engine"),
	})

	jobs := scheduler.Jobs{
		Receipts: eng.Receipts,
		SLA:      eng.SLA,
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		loadPrices := func(ctx context.Context) ([]models.ReferencePrice, error) {
			return sheets.LoadReferencePrices(ctx, sheetsRepo, cfg.Sheets.PricesRange)
		}
		if err := dir.RefreshPrices(ctx, loadPrices); err != nil {
			baseLogger.Warn("initial price refresh failed, using default price", zap.Error(err))
		}
		jobs.Exporter = reportingsvc.NewService(sheetsRepo, eng.SLA, cfg.Sheets.SLAExportRange, baseLogger.Named("svc.reporting"))
		jobs.Prices = dir
		jobs.LoadPrices = loadPrices
	} else {
		baseLogger.Warn("google sheets not configured, price refresh and SLA export disabled")
	}

	sched, err := scheduler.NewScheduler(cfg.Scheduler, cfg.Ledger.PlatformEntityID, jobs, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	webhookHandler := handlers.NewWebhookHandler(eng.Settlement, cfg.Payments.WebhookSecret, cfg.Ledger.PlatformEntityID, baseLogger.Named("handlers.webhook"))
	verifyHandler := handlers.NewVerifyHandler(eng.Receipts, baseLogger.Named("handlers.verify"))
	r := router.New(webhookHandler, verifyHandler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
