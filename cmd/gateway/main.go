package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/eventhive/eventhive/internal/gateway/application"
	"github.com/eventhive/eventhive/internal/gateway/infrastructure/clients"
	gatewayhttp "github.com/eventhive/eventhive/internal/gateway/infrastructure/http"
	gatewaykafka "github.com/eventhive/eventhive/internal/gateway/infrastructure/kafka"
	gatewayredis "github.com/eventhive/eventhive/internal/gateway/infrastructure/redis"
	"github.com/eventhive/eventhive/internal/gateway/session"
	"github.com/eventhive/eventhive/pkg/clock"
	"github.com/eventhive/eventhive/pkg/idempotency"
	"github.com/eventhive/eventhive/pkg/logging"
	"github.com/eventhive/eventhive/pkg/shutdown"
	"github.com/eventhive/eventhive/pkg/tracing"
)

func main() {
	log := logging.New("gateway")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Configuration
	kafkaBrokers := []string{env("KAFKA_ADDR", "localhost:9092")}
	redisAddr := env("REDIS_ADDR", "localhost:6379")
	otelURL := env("OTEL_URL", "http://localhost:4318")
	httpAddr := env("HTTP_ADDR", ":8080")
	serviceKey := env("SERVICE_KEY", "dev-service-key")
	eventsURL := env("EVENTS_URL", "http://localhost:8081")
	ordersURL := env("ORDERS_URL", "http://localhost:8082")
	orderTopic := env("ORDER_TOPIC", "order.created")
	sessions := env("SESSIONS", "dev-token=alice:A")

	tp, err := tracing.Init(ctx, "gateway", otelURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	// Redis
	rdb := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	defer rdb.Close()

	// Downstream clients & services
	events := clients.NewEventsClient(eventsURL, serviceKey)
	orders := clients.NewOrdersClient(ordersURL, serviceKey)
	clk := clock.NewSystem()
	checkout := application.NewCheckoutService(log, events, orders, clk)
	nextEvent := application.NewNextEventService(log, events, gatewayredis.NewNextEventStore(rdb), clk)
	verifier := session.ParseStatic(sessions)
	handler := gatewayhttp.NewHandler(log, verifier, events, orders, checkout, nextEvent)

	// Kafka consumer for the next-event read model
	idem := idempotency.NewStore(rdb, 24*time.Hour)
	consumer := gatewaykafka.NewConsumer(log, kafkaBrokers, orderTopic, nextEvent, idem)
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped with error", "err", err)
		}
	}()

	// HTTP server
	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Run HTTP
	go func() {
		log.Info("http listening", "addr", httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("gateway shutdown complete")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
