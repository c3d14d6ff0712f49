package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/auth"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/changefeed"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/natsstan"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/notify"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/postgres"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/orderdesk/internal/app/lifecycle"
	"github.com/YelzhanWeb/orderdesk/internal/app/order"
	"github.com/YelzhanWeb/orderdesk/internal/app/seed"
	"github.com/YelzhanWeb/orderdesk/internal/app/tracking"
	"github.com/YelzhanWeb/orderdesk/internal/app/view"
	"github.com/YelzhanWeb/orderdesk/internal/config"
	"github.com/YelzhanWeb/orderdesk/internal/domain"
	"github.com/YelzhanWeb/orderdesk/internal/interfaces"

	httpAdapter "github.com/YelzhanWeb/orderdesk/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: order-service, notification-subscriber, migrate, seed, issue-token")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	count := flag.Int("count", 20, "Number of orders to generate (for seed)")
	seedDelay := flag.Duration("seed-delay", 100*time.Millisecond, "Pause between generated orders (for seed)")
	subject := flag.String("subject", "", "Staff member the token is issued to (for issue-token)")
	role := flag.String("role", "", "Staff role: kitchen, delivery, admin (for issue-token)")
	mute := flag.Bool("mute", false, "Do not ring the bell on new orders (for notification-subscriber)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	lgr, err := logger.New(*mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer lgr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "issue-token":
		err = runIssueToken(cfg, *subject, domain.Role(*role))

	case "migrate":
		err = postgres.Migrate(ctx, cfg.Database)
		if err == nil {
			lgr.Info("migrations_applied", "Database schema is up to date", "startup", nil)
		}

	case "order-service":
		err = withInfra(ctx, cfg, lgr, func(db postgres.DB, bus *feedBus) error {
			return runOrderService(ctx, cfg, db, bus, lgr)
		})

	case "seed":
		err = withInfra(ctx, cfg, lgr, func(db postgres.DB, bus *feedBus) error {
			return runSeed(ctx, cfg, db, bus, lgr, *count, *seedDelay)
		})

	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr, !*mute)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil {
		lgr.Error("fatal_error", "Service stopped with error", "runtime", nil, err)
		lgr.Sync()
		os.Exit(1)
	}
}

// feedBus is the change feed transport chosen by config.
type feedBus struct {
	publisher interfaces.ChangePublisher
	feed      interfaces.ChangeFeed
	close     func()
}

func openFeed(cfg *config.Config, lgr logger.Logger) (*feedBus, error) {
	switch cfg.Feed.Transport {
	case config.FeedSTAN:
		f, err := natsstan.Connect(cfg.Feed.STAN, cfg.Feed.Buffer, lgr)
		if err != nil {
			return nil, err
		}
		lgr.Info("stan_connected", "Connected to NATS Streaming", "startup", map[string]interface{}{
			"url":     cfg.Feed.STAN.URL,
			"subject": cfg.Feed.STAN.Subject,
		})
		return &feedBus{publisher: f, feed: f, close: func() { f.Close() }}, nil

	case config.FeedMemory:
		b := changefeed.NewBroker(cfg.Feed.Buffer)
		return &feedBus{publisher: b, feed: b, close: func() {}}, nil

	default:
		conn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host":     cfg.RabbitMQ.Host,
			"exchange": cfg.RabbitMQ.Exchange,
		})
		return &feedBus{
			publisher: rabbitmq.NewPublisher(conn, cfg.RabbitMQ.Exchange),
			feed:      rabbitmq.NewChangeFeed(conn, cfg.RabbitMQ.Exchange, cfg.Feed.Buffer, lgr),
			close:     func() { conn.Close() },
		}, nil
	}
}

func withInfra(ctx context.Context, cfg *config.Config, lgr logger.Logger, run func(postgres.DB, *feedBus) error) error {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	bus, err := openFeed(cfg, lgr)
	if err != nil {
		return fmt.Errorf("failed to open change feed: %w", err)
	}
	defer bus.close()

	return run(db, bus)
}

func runOrderService(ctx context.Context, cfg *config.Config, db postgres.DB, bus *feedBus, lgr logger.Logger) error {
	issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	orderRepo := postgres.NewOrderRepository(db)

	orderService := order.NewService(orderRepo, bus.publisher, lgr)
	lifecycleService := lifecycle.NewService(orderRepo, bus.publisher, lgr, cfg.Delivery.EstimateHorizon)
	trackingService := tracking.NewService(orderRepo, lgr)
	generator := seed.NewGenerator(orderService, lifecycleService, lgr)

	router := httpAdapter.NewRouter(httpAdapter.Handlers{
		Orders:   httpAdapter.NewOrderHandler(orderService, lifecycleService, lgr),
		Tracking: httpAdapter.NewTrackingHandler(trackingService, trackingService, lgr),
		Views: httpAdapter.NewViewHandler(view.Deps{
			Orders:      orderRepo,
			Feed:        bus.feed,
			Transitions: lifecycleService,
			Logger:      lgr,
		}, lgr),
		Admin: httpAdapter.NewAdminHandler(generator, db.Ping, lgr),
	}, issuer, lgr)

	// No write timeout: view streams stay open for the whole session.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.Server.Port), "startup", map[string]interface{}{
		"port":      cfg.Server.Port,
		"transport": cfg.Feed.Transport,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
	}
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, db postgres.DB, bus *feedBus, lgr logger.Logger, count int, delay time.Duration) error {
	orderRepo := postgres.NewOrderRepository(db)
	orderService := order.NewService(orderRepo, bus.publisher, lgr)
	lifecycleService := lifecycle.NewService(orderRepo, bus.publisher, lgr, cfg.Delivery.EstimateHorizon)

	created, err := seed.NewGenerator(orderService, lifecycleService, lgr, seed.WithDelay(delay)).Seed(ctx, count)
	fmt.Printf("Generated %d of %d orders\n", created, count)
	return err
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger, sound bool) error {
	if cfg.Feed.Transport == config.FeedMemory {
		return fmt.Errorf("notification-subscriber needs a shared feed transport, got %q", cfg.Feed.Transport)
	}

	bus, err := openFeed(cfg, lgr)
	if err != nil {
		return fmt.Errorf("failed to open change feed: %w", err)
	}
	defer bus.close()

	handler := notify.NewNotificationHandler(lgr, os.Stdout, sound)

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"transport": cfg.Feed.Transport,
		"sound":     sound,
	})

	err = handler.Run(ctx, bus.feed)

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	return err
}

func runIssueToken(cfg *config.Config, subject string, role domain.Role) error {
	issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	token, err := issuer.Issue(subject, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
