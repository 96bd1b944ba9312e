package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	commissionapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/commission"
	escrowapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/escrow"
	payoutapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/payout"
	settlementapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/bank"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/cache"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/config"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/event"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/logger"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/notification"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/scheduler"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/interfaces/http/handler"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/interfaces/http/middleware"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting funds administration service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Connect to the database with a zap-backed gorm logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Repositories and read models
	escrowRepo := persistence.NewGormEscrowRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)
	settlementRepo := persistence.NewGormSettlementRepository(db.DB)
	ruleRepo := persistence.NewGormCommissionRuleRepository(db.DB)
	settingsReader := persistence.NewGormPayoutSettingsReader(db.DB)
	orderReader := persistence.NewGormOrderReader(db.DB)
	storeDirectory := persistence.NewGormStoreDirectory(db.DB)

	// Commission calculator shared by escrow recording and rule management
	calculator := commission.NewCalculator(ruleRepo, commission.Config{
		DefaultRate: cfg.Commission.DefaultRate,
	})

	// Outbound adapters
	gateway, err := bank.NewSimulatedGateway(&bank.SimulatedGatewayConfig{
		ProviderName: cfg.App.Name,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize transfer gateway", zap.Error(err))
	}
	notifier := notification.NewLogNotifier(log)

	// Application services
	escrowService := escrowapp.NewEscrowService(escrowRepo, orderReader, calculator, escrowapp.Config{
		HoldPeriodDays: cfg.Escrow.HoldPeriodDays,
	}, log)

	minimumPayout, err := valueobject.NewMoney(cfg.Payout.MinimumAmount, valueobject.Currency(cfg.Payout.Currency))
	if err != nil {
		log.Fatal("invalid payout minimum amount", zap.Error(err))
	}
	payoutWeekday, err := cfg.Payout.PayoutWeekday()
	if err != nil {
		log.Fatal("invalid payout weekday", zap.Error(err))
	}
	payoutService := payoutapp.NewPayoutService(payoutRepo, escrowRepo, settingsReader, gateway, notifier, payoutapp.Config{
		MinimumAmount: minimumPayout,
		MaxRetries:    cfg.Payout.MaxRetries,
		RetryDelay:    cfg.Payout.RetryDelay,
		Frequency:     payout.Frequency(cfg.Payout.Frequency),
		Weekday:       payoutWeekday,
	}, log)

	settlementService := settlementapp.NewSettlementService(settlementRepo, escrowRepo, storeDirectory, settlementapp.Config{
		Currency: valueobject.Currency(cfg.Settlement.Currency),
	}, log)

	commissionService := commissionapp.NewCommissionService(ruleRepo, escrowRepo, log)

	// Event bus bridges order lifecycle events into the escrow ledger.
	// Handlers are wrapped with idempotency so redelivered events are no-ops.
	eventBus := event.NewInMemoryEventBus(log)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("failed to initialize idempotency store", zap.Error(err))
	}

	lifecycleHandlers := []shared.EventHandler{
		escrowapp.NewOrderPaidHandler(escrowService, log),
		escrowapp.NewOrderCancelledHandler(escrowService, log),
		escrowapp.NewShipmentDeliveredHandler(escrowService, log),
		escrowapp.NewShipmentCancelledHandler(escrowService, log),
	}
	wrappedHandlers := event.WrapHandlersWithIdempotency(lifecycleHandlers, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyRetention,
			Enabled: true,
		}),
	)
	for i, h := range lifecycleHandlers {
		eventBus.Subscribe(wrappedHandlers[i], h.EventTypes()...)
	}

	escrowService.SetEventPublisher(eventBus)
	payoutService.SetEventPublisher(eventBus)
	settlementService.SetEventPublisher(eventBus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}

	// Background triggers for payout runs and monthly settlement generation
	var payoutTrigger *scheduler.PayoutCronTrigger
	var settlementTrigger *scheduler.SettlementCronTrigger
	if cfg.Scheduler.Enabled {
		payoutTrigger = scheduler.NewPayoutCronTrigger(scheduler.PayoutCronTriggerConfig{
			RunHour:       cfg.Scheduler.PayoutRunHour,
			RunMinute:     cfg.Scheduler.PayoutRunMinute,
			RetryInterval: cfg.Scheduler.RetryInterval,
			StalledAfter:  cfg.Scheduler.StalledAfter,
			CheckInterval: cfg.Scheduler.CheckInterval,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		}, payoutService, log)
		if err := payoutTrigger.Start(ctx); err != nil {
			log.Fatal("failed to start payout trigger", zap.Error(err))
		}

		settlementTrigger = scheduler.NewSettlementCronTrigger(scheduler.SettlementCronTriggerConfig{
			RunHour:       cfg.Scheduler.SettlementRunHour,
			CheckInterval: cfg.Scheduler.CheckInterval,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		}, settlementService, log)
		if err := settlementTrigger.Start(ctx); err != nil {
			log.Fatal("failed to start settlement trigger", zap.Error(err))
		}
	} else {
		log.Info("background scheduler disabled")
	}

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidations(); err != nil {
		log.Fatal("failed to register request validations", zap.Error(err))
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(1 << 20))
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("failed to set trusted proxies", zap.Error(err))
		}
	}

	r := router.NewRouter(engine)
	r.Register(&router.EscrowRoutes{Handler: handler.NewEscrowHandler(escrowService)}).
		Register(&router.PayoutRoutes{Handler: handler.NewPayoutHandler(payoutService)}).
		Register(&router.SettlementRoutes{Handler: handler.NewSettlementHandler(settlementService)}).
		Register(&router.CommissionRoutes{Handler: handler.NewCommissionHandler(commissionService)}).
		Register(&router.SystemRoutes{Handler: handler.NewSystemHandler()})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
	if payoutTrigger != nil {
		if err := payoutTrigger.Stop(shutdownCtx); err != nil {
			log.Error("payout trigger shutdown error", zap.Error(err))
		}
	}
	if settlementTrigger != nil {
		if err := settlementTrigger.Stop(shutdownCtx); err != nil {
			log.Error("settlement trigger shutdown error", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("event bus shutdown error", zap.Error(err))
	}
	log.Info("stopped")
}
