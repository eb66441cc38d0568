package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ms-checkout/internal/analytics"
	analytics_api "ms-checkout/internal/analytics/api"
	"ms-checkout/internal/auth"
	"ms-checkout/internal/catalog"
	catalog_api "ms-checkout/internal/catalog/api"
	"ms-checkout/internal/config"
	"ms-checkout/internal/database"
	"ms-checkout/internal/kafka"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/metrics"
	"ms-checkout/internal/notification"
	"ms-checkout/internal/order"
	orderdb "ms-checkout/internal/order/db"
	"ms-checkout/internal/order/discount"
	"ms-checkout/internal/order/order_api"
	orderredis "ms-checkout/internal/order/redis"
	"ms-checkout/internal/payment/faspay"
	"ms-checkout/internal/sse"
	ticket_db "ms-checkout/internal/tickets/db"
	qr_genrator "ms-checkout/internal/tickets/qr_genrator"
	tickets "ms-checkout/internal/tickets/service"
	"ms-checkout/internal/tickets/ticket_api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var bunDB *bun.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		bunDB, err = database.OpenPostgres(cfg.Database)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = bunDB.PingContext(ctx)
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		bunDB.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}
	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	// Payment deadlines are driven by key expiry events.
	_, err = redisClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result()
	if err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		logger.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	return bunDB, redisClient
}

// requestLogger writes one API log line per request.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprint(ww.Status()), time.Since(start).String())
		})
	}
}

func main() {
	migrate := flag.Bool("migrate", false, "create the schema and exit")
	reset := flag.Bool("reset", false, "drop all tables before migrating")
	seed := flag.Bool("seed", false, "insert demo data after migrating")
	flag.Parse()

	envErr := godotenv.Load()
	cfg := config.Load()

	logger := logger.NewLogger(cfg.App.LogDir, "order-service")
	defer logger.Close()

	logger.Info("APP", "Starting Order Service initialization")
	if envErr != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if *migrate || *reset || *seed {
		if err := runMigrations(ctx, bunDB, *reset, logger); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		if *seed {
			if err := seedData(ctx, bunDB, logger); err != nil {
				logger.Fatal("DATABASE", fmt.Sprintf("Seeding failed: %v", err))
			}
		}
		return
	}

	loc := cfg.App.Location()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.New(registry)

	orderStore := &orderdb.DB{Bun: bunDB}
	cache := orderredis.NewRedis(redisClient, logger)

	var notifier order.Notifier
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.NotificationTopic}, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		notifier = notification.NewPublisher(producer, cfg.Kafka.NotificationTopic)
		logger.Info("KAFKA", fmt.Sprintf("Notifications published to %s", cfg.Kafka.NotificationTopic))
	} else {
		notifier = notification.Inline{Worker: newNotificationWorker(cfg, orderStore, loc, logger, checkoutMetrics)}
		logger.Warn("KAFKA", "Kafka disabled, notifications are delivered in-process")
	}

	ticketService := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, logger, checkoutMetrics)
	gateway := faspay.NewClient(cfg.Faspay, loc, &http.Client{Timeout: cfg.Faspay.Timeout}, logger)
	statusEmitter := sse.NewStatusEmitter()

	orderService := order.NewOrderService(orderStore, ticketService, gateway, cache, notifier, order.Settings{
		BaseURL:         cfg.App.BaseURL,
		Location:        loc,
		PaymentDeadline: cfg.App.PaymentDeadline,
		OrderCacheTTL:   cfg.App.OrderCacheTTL,
		GatewayUserID:   cfg.Faspay.UserID,
		GatewayPassword: cfg.Faspay.Password,
	}, logger, checkoutMetrics)
	orderService.Status = statusEmitter

	discountService := discount.NewDiscountService(orderStore, logger)
	catalogService := catalog.NewService(&catalog.DB{Bun: bunDB}, cache, logger, cfg.App.EventsCacheTTL, cfg.App.ChannelsCacheTTL)
	analyticsService := analytics.NewService(bunDB, loc)

	if cfg.Auth.AdminJWTSecret == "" {
		logger.Warn("AUTH", "ADMIN_JWT_SECRET not set, admin routes will reject every request")
	}
	adminOnly := auth.AdminOnly(cfg.Auth.AdminJWTSecret, logger)

	orderHandler := order_api.NewHandler(orderService, discountService, statusEmitter, logger)
	ticketHandler := ticket_api.NewHandler(ticketService, qr_genrator.NewQRGenerator(cfg.App.BaseURL), logger)
	catalogHandler := catalog_api.NewHandler(catalogService, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// --- Public Routes ---
	catalogHandler.RegisterRoutes(r)
	logger.Info("ROUTER", "Catalog routes registered under /events and /payment-channels")

	orderHandler.RegisterRoutes(r, adminOnly)
	logger.Info("ROUTER", "Order, voucher and webhook routes registered")

	r.Get("/verify/{eventSlug}/{ticketCode}", ticketHandler.VerifyTicket)
	r.Get("/tickets/{ticketCode}/qr", ticketHandler.TicketQR)
	logger.Info("ROUTER", "Ticket verification routes registered")

	// --- Admin Routes ---
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/admin/tickets/{ticketCode}/check-in", ticketHandler.CheckInTicket)
		analyticsHandler.RegisterRoutes(r)
	})
	logger.Info("ROUTER", "Admin check-in and analytics routes registered under /admin")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP", fmt.Sprintf("🚀 Order Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("REDIS", "Starting payment deadline subscription")
		cache.SubscribeDeadlines(gctx, orderService.HandleDeadline)
		return nil
	})

	g.Go(func() error {
		return orderService.RunExpirySweeper(gctx, cfg.App.ExpirySweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")

		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
		}
		return nil
	})

	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("APP", fmt.Sprintf("Service stopped with error: %v", err))
	}

	orderService.Wait()
	logger.Info("HTTP", "✅ Order Service shutdown complete")
}

func newNotificationWorker(cfg *config.Config, store notification.Store, loc *time.Location, log *logger.Logger, m *metrics.Checkout) *notification.Worker {
	var whatsapp notification.WhatsAppSender
	if cfg.Notify.StarsenderURL != "" {
		whatsapp = notification.NewStarsender(cfg.Notify.StarsenderURL, cfg.Notify.StarsenderToken)
	}
	var email notification.EmailSender
	if cfg.Email.Enabled {
		email = notification.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUsername, cfg.Email.SMTPPassword, cfg.Email.From)
	}

	return notification.NewWorker(store, whatsapp, email, notification.WorkerConfig{
		BaseURL:         cfg.App.BaseURL,
		PaymentDeadline: cfg.App.PaymentDeadline,
		Location:        loc,
		MaxAttempts:     cfg.Notify.MaxAttempts,
		RetryBackoff:    cfg.Notify.RetryBackoff,
	}, log, m)
}
