package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ms-checkout/internal/config"
	"ms-checkout/internal/database"
	"ms-checkout/internal/kafka"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/metrics"
	"ms-checkout/internal/notification"
	orderdb "ms-checkout/internal/order/db"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/uptrace/bun"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.OpenPostgres(cfg.Database)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bunDB
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger(cfg.App.LogDir, "notification-worker")
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.Server.MetricsPort, mux); err != nil {
			log.Error("HTTP", fmt.Sprintf("Metrics server stopped: %v", err))
		}
	}()

	var whatsapp notification.WhatsAppSender
	if cfg.Notify.StarsenderURL != "" {
		whatsapp = notification.NewStarsender(cfg.Notify.StarsenderURL, cfg.Notify.StarsenderToken)
	} else {
		log.Warn("CONFIG", "STARSENDER_URL not set, WhatsApp delivery disabled")
	}
	var email notification.EmailSender
	if cfg.Email.Enabled {
		email = notification.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUsername, cfg.Email.SMTPPassword, cfg.Email.From)
	}

	worker := notification.NewWorker(&orderdb.DB{Bun: bunDB}, whatsapp, email, notification.WorkerConfig{
		BaseURL:         cfg.App.BaseURL,
		PaymentDeadline: cfg.App.PaymentDeadline,
		Location:        cfg.App.Location(),
		MaxAttempts:     cfg.Notify.MaxAttempts,
		RetryBackoff:    cfg.Notify.RetryBackoff,
	}, log, m)

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.NotificationTopic}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	log.Info("APP", fmt.Sprintf("🚀 Notification worker consuming %s as %s", cfg.Kafka.NotificationTopic, cfg.Kafka.GroupID))
	err := consumer.Start(ctx, func(ctx context.Context, msg kafkago.Message) error {
		ev, err := notification.Decode(msg.Value)
		if err != nil {
			// A malformed message is committed and dropped.
			return fmt.Errorf("decode %s: %w", string(msg.Key), err)
		}

		handleCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		return worker.Handle(handleCtx, ev)
	})
	if err != nil {
		log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
	}
	log.Info("APP", "✅ Notification worker shutdown complete")
}
