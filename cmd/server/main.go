package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	modconfig "chatguard/internal/moderation/config"
	"chatguard/internal/moderation/detector"
	"chatguard/internal/moderation/gate"
	"chatguard/internal/moderation/handler"
	"chatguard/internal/moderation/lock"
	"chatguard/internal/moderation/metrics"
	"chatguard/internal/moderation/notify"
	"chatguard/internal/moderation/ports"
	ledgerstore "chatguard/internal/moderation/store/ledger"
	userstore "chatguard/internal/moderation/store/users"
	"chatguard/internal/platform/config"
	"chatguard/internal/platform/httpserver"
	"chatguard/internal/platform/kafka"
	"chatguard/internal/platform/logger"
	"chatguard/internal/platform/postgres"
	"chatguard/internal/platform/redis"
	"chatguard/internal/platform/servicetoken"
	"chatguard/internal/platform/tracing"
	"chatguard/pkg/platform/circuit"
	"chatguard/pkg/platform/middleware/request"
)

const shutdownTimeout = 10 * time.Second

// main wires infrastructure into the moderation gate and keeps the server
// lifecycle small. Business logic lives in internal/moderation.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	db       *sql.DB
	redis    *redis.Client
	kafka    *kgo.Client
	closeFns []func()
}

func (i *infra) close() {
	for n := len(i.closeFns) - 1; n >= 0; n-- {
		i.closeFns[n]()
	}
}

func (i *infra) checks() []handler.Check {
	var checks []handler.Check
	if i.db != nil {
		checks = append(checks, handler.Check{Name: "postgres", Probe: i.db.PingContext})
	}
	if i.redis != nil {
		checks = append(checks, handler.Check{Name: "redis", Probe: i.redis.Health})
	}
	if i.kafka != nil {
		checks = append(checks, handler.Check{Name: "kafka", Probe: i.kafka.Ping})
	}
	return checks
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(cfg.TracesExporter, "chatguard", os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace exporter shutdown failed", "error", err)
		}
	}()

	infra, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.close()

	patterns, err := detector.LoadPatternConfig(cfg.PatternsFile)
	if err != nil {
		return fmt.Errorf("load detection patterns: %w", err)
	}

	modCfg := modconfig.DefaultConfig()
	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		ledger ports.Ledger
		users  ports.UserDirectory
	)
	if infra.db != nil {
		ledger = ledgerstore.NewPostgres(infra.db)
		users = userstore.NewPostgres(infra.db)
	} else {
		log.Warn("DATABASE_URL not set; violation ledger and user directory are in-memory")
		ledger = ledgerstore.New()
		users = userstore.New()
	}

	locker, err := buildLocker(cfg, modCfg, infra)
	if err != nil {
		return err
	}
	dispatcher, err := buildDispatcher(cfg, modCfg, infra, log)
	if err != nil {
		return err
	}

	gateSvc, err := gate.New(users, ledger, locker, dispatcher,
		gate.WithLogger(log),
		gate.WithMetrics(m),
		gate.WithConfig(modCfg),
		gate.WithDetector(detector.New(patterns)),
	)
	if err != nil {
		return fmt.Errorf("build message gate: %w", err)
	}

	tokens := servicetoken.New(cfg.ServiceTokenKey, cfg.ServiceTokenIssuer, cfg.ServiceTokenAudience)

	router := chi.NewRouter()
	router.Use(request.Recovery(log))
	router.Use(request.RequestID)
	router.Use(request.Logger(log))
	router.Get("/healthz", handler.Health)
	router.Get("/readyz", handler.Ready(infra.checks()...))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(gateSvc, tokens, log).Register(router)

	srv := httpserver.New(cfg.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting chatguard", "addr", cfg.Addr, "lock_backend", cfg.LockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		if err := gateSvc.Drain(shutdownCtx); err != nil {
			log.Warn("pending notices dropped at shutdown", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	i := &infra{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		i.db = db
		i.closeFns = append(i.closeFns, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			i.close()
			return nil, err
		}
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		i.close()
		return nil, err
	}
	if rc != nil {
		i.redis = rc
		i.closeFns = append(i.closeFns, func() { _ = rc.Close() })
	}

	kc, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		i.close()
		return nil, err
	}
	if kc != nil {
		i.kafka = kc
		i.closeFns = append(i.closeFns, kc.Close)
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.NoticeTopic, 6); err != nil {
			log.Warn("could not ensure notice topic", "topic", cfg.Kafka.NoticeTopic, "error", err)
		}
	}
	return i, nil
}

func buildLocker(cfg config.Server, modCfg *modconfig.Config, i *infra) (ports.Locker, error) {
	switch cfg.LockBackend {
	case "", "memory":
		return lock.NewKeyed(lock.WithWaitTimeout(modCfg.Lock.WaitTimeout)), nil
	case "redis":
		if i.redis == nil {
			return nil, errors.New("LOCK_BACKEND=redis requires REDIS_URL")
		}
		return lock.NewRedis(i.redis.Universal(), lock.WithLockConfig(modCfg.Lock))
	case "postgres":
		if i.db == nil {
			return nil, errors.New("LOCK_BACKEND=postgres requires DATABASE_URL")
		}
		return lock.NewPostgres(i.db, modCfg.Lock.TTL)
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.LockBackend)
	}
}

func buildDispatcher(cfg config.Server, modCfg *modconfig.Config, i *infra, log *slog.Logger) (ports.NotificationDispatcher, error) {
	fallback := notify.NewLog(log)
	if i.kafka == nil {
		return fallback, nil
	}
	broker, err := notify.NewKafka(i.kafka, cfg.Kafka.NoticeTopic)
	if err != nil {
		return nil, err
	}
	retrying, err := notify.NewRetrying(broker, modCfg.Notice)
	if err != nil {
		return nil, err
	}
	return notify.NewCircuit(retrying, fallback, circuit.New("notices", circuit.WithCooldown(30*time.Second)), log)
}
