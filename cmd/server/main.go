package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"datapass/internal/audit"
	"datapass/internal/company"
	enrollmenthandler "datapass/internal/enrollment/handler"
	enrollmentmetrics "datapass/internal/enrollment/metrics"
	"datapass/internal/enrollment/service"
	"datapass/internal/enrollment/store"
	httpapi "datapass/internal/http"
	"datapass/internal/jobs"
	jwttoken "datapass/internal/jwt_token"
	"datapass/internal/platform/config"
	"datapass/internal/platform/httpserver"
	"datapass/internal/platform/logger"
	"datapass/internal/platform/metrics"
	platformredis "datapass/internal/platform/redis"
	"datapass/internal/roles"
	"datapass/internal/tokenmanager"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Every external system is optional: with no configuration the process runs
// entirely on in-memory stores, which is how local development works.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var enrollments store.Store = store.NewInMemory()
	var trail audit.Store = audit.NewInMemoryStore()
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		enrollments = store.NewPostgres(db)
		trail = audit.NewPostgres(db)
		log.Info("using postgres stores")
	}

	var roleStore roles.Store = roles.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		roleStore = roles.NewRedisStore(redisClient.Client)
		log.Info("using redis role store")
	}

	group, ctx := errgroup.WithContext(ctx)

	var queue jobs.Queue
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaQueue, err := jobs.NewKafkaQueue(ctx, cfg.Kafka.Brokers)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaQueue.Close()
		queue = kafkaQueue
		log.Info("using kafka job queue", "topic", jobs.Topic)
	} else {
		memQueue := jobs.NewInMemoryQueue(256, log)
		queue = memQueue
		worker := jobs.NewWorker(memQueue.Jobs(), func(ctx context.Context, job jobs.Job) error {
			log.InfoContext(ctx, "processing job",
				"kind", job.Kind,
				"enrollment_id", job.EnrollmentID.String(),
			)
			return nil
		}, log)
		group.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(enrollmentmetrics.New()),
	}
	if cfg.TokenManager.Host != "" {
		opts = append(opts, service.WithTokenManager(
			tokenmanager.NewHTTPClient(cfg.TokenManager.Host, cfg.TokenManager.APIKey)))
	}
	if cfg.CompanyAPI.Host != "" {
		opts = append(opts, service.WithCompanyLookup(company.NewHTTPLookup(cfg.CompanyAPI.Host)))
	}

	svc := service.New(enrollments, trail, roleStore, queue, opts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := httpapi.NewRouter(
		enrollmenthandler.New(svc, log),
		jwttoken.NewJWTServiceAdapter(jwtService),
		metrics.New(),
		log,
	)

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting datapass", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
