package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marco-pos/api/controllers"
	"github.com/angelmondragon/marco-pos/api/routes"
	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/angelmondragon/marco-pos/internal/catalog"
	"github.com/angelmondragon/marco-pos/internal/checkout"
	"github.com/angelmondragon/marco-pos/internal/connectivity"
	"github.com/angelmondragon/marco-pos/internal/cron"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/internal/sink"
	pkgAuth "github.com/angelmondragon/marco-pos/pkg/auth"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/db"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	"github.com/angelmondragon/marco-pos/pkg/env"
	"github.com/angelmondragon/marco-pos/pkg/localstore"
	"github.com/angelmondragon/marco-pos/pkg/logger"
	"github.com/angelmondragon/marco-pos/pkg/metrics"
	"github.com/angelmondragon/marco-pos/pkg/migrate"
	"github.com/angelmondragon/marco-pos/pkg/pubsub"
	"github.com/angelmondragon/marco-pos/pkg/redis"
)

const (
	serviceName     = "terminal"
	shutdownTimeout = 10 * time.Second
	sweepLockName   = "offline-queue-sweep"
)

func main() {
	issueToken := flag.Bool("issue-token", false, "print a signed cashier token and exit")
	email := flag.String("email", "", "cashier email for -issue-token")
	role := flag.String("role", string(enums.MemberRoleCashier), "cashier role for -issue-token: owner|cashier")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if strings.TrimSpace(cfg.Terminal.ID) == "" {
		cfg.Terminal.ID = env.TerminalID()
	}

	if *issueToken {
		if err := printToken(cfg, *email, *role); err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "terminal stopped unexpectedly", err)
		os.Exit(1)
	}
}

func printToken(cfg *config.Config, email, rawRole string) error {
	role, err := enums.ParseMemberRole(rawRole)
	if err != nil {
		return err
	}
	token, err := pkgAuth.MintCashierToken(cfg.JWT, time.Now(), pkgAuth.CashierTokenPayload{
		Email:      email,
		Role:       role,
		TerminalID: cfg.Terminal.ID,
	})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithTerminalID(ctx, cfg.Terminal.ID)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"location": cfg.Terminal.Location,
	})

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			if strings.EqualFold(strings.TrimSpace(cfg.LocalStore.Driver), config.LocalStoreRedis) {
				return fmt.Errorf("bootstrap redis: %w", err)
			}
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unavailable, using a local sweep lock")
			redisClient = nil
		} else {
			closers = append(closers, redisClient.Close)
		}
	}

	store, err := localstore.Open(ctx, cfg.LocalStore, redisClient, cfg.Terminal.ID)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	closers = append(closers, store.Close)

	var dbClient *db.Client
	var psClient *pubsub.Client
	switch strings.ToLower(strings.TrimSpace(cfg.Sink.Driver)) {
	case config.SinkPostgres:
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
		closers = append(closers, dbClient.Close)
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "dev migrations skipped")
		}
	case config.SinkPubSub:
		psClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return fmt.Errorf("bootstrap pubsub: %w", err)
		}
		closers = append(closers, psClient.Close)
	}

	remote, err := sink.New(cfg.Sink, dbClient, psClient, logg)
	if err != nil {
		return fmt.Errorf("build sink: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	queueMetrics := metrics.NewQueueMetrics(registry)

	queue, err := offlinequeue.New(offlinequeue.Params{
		Store:       store,
		Key:         cfg.LocalStore.Key,
		Logger:      logg,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Metrics:     queueMetrics,
	})
	if err != nil {
		return fmt.Errorf("build offline queue: %w", err)
	}
	if err := queue.Restore(ctx); err != nil {
		return fmt.Errorf("restore offline queue: %w", err)
	}

	var source connectivity.Source
	if strings.TrimSpace(cfg.Connectivity.ProbeURL) == "" {
		source = connectivity.NewManualSource(true)
	} else {
		source = connectivity.NewProbeSource(cfg.Connectivity, connectivity.WithLogger(logg))
	}
	monitor := connectivity.NewMonitor(ctx, source, logg)
	defer monitor.Close()

	active := cart.New()
	products := catalog.NewSeeded()

	svc, err := checkout.NewService(checkout.ServiceParams{
		Cart:     active,
		Queue:    queue,
		Sink:     remote,
		Monitor:  monitor,
		Terminal: cfg.Terminal,
		Metrics:  queueMetrics,
		Logger:   logg,

		WriteTimeout: cfg.Sink.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("build checkout service: %w", err)
	}
	defer svc.Close()

	if monitor.Online() && queue.Size() > 0 {
		result, err := svc.Sync(ctx)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "startup sync skipped")
		} else {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"delivered": result.Delivered,
				"remaining": result.Remaining,
			}), "startup sync finished")
		}
	}

	cronService, err := newCronService(cfg, logg, redisClient, registry, svc, queue)
	if err != nil {
		return err
	}
	cronDone := make(chan error, 1)
	go func() {
		cronDone <- cronService.Run(ctx)
	}()

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Catalog: products,
			Cart: controllers.CartDeps{
				Cart:    active,
				Catalog: products,
				TaxRate: svc.TaxRate(),
			},
			Checkout:   svc,
			Queue:      queue,
			LocalStore: store,
			Sink:       remote,
			Gatherer:   registry,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"addr":    addr,
			"sink":    remote.Name(),
			"pending": queue.Size(),
			"online":  monitor.Online(),
		}), "starting terminal")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logg.Info(ctx, "terminal shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "http server shutdown failed", err)
	}
	stop()
	if err := <-cronDone; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(shutdownCtx, "cron stopped unexpectedly", err)
	}
	return nil
}

func newCronService(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	reg prometheus.Registerer,
	svc *checkout.Service,
	queue *offlinequeue.Queue,
) (*cron.Service, error) {
	var lock cron.Lock = &cron.LocalLock{}
	if redisClient != nil {
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(sweepLockName+":"+cfg.Terminal.ID), 0)
		if err != nil {
			return nil, fmt.Errorf("build cron lock: %w", err)
		}
		lock = redisLock
	}

	sweep, err := cron.NewQueueSweepJob(cron.QueueSweepJobParams{Logger: logg, Syncer: svc})
	if err != nil {
		return nil, fmt.Errorf("build queue sweep job: %w", err)
	}
	alert, err := cron.NewDeadLetterAlertJob(cron.DeadLetterAlertJobParams{Logger: logg, Source: queue})
	if err != nil {
		return nil, fmt.Errorf("build dead letter alert job: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweep, alert),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Queue.SweepInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("build cron service: %w", err)
	}
	return service, nil
}
