package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/config"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/handler"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/notification"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/payload"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/repository"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/usecase"
	"github.com/vasapolrittideah/task-manager-api/shared/auth"
	"github.com/vasapolrittideah/task-manager-api/shared/database"
	"github.com/vasapolrittideah/task-manager-api/shared/discovery"
	"github.com/vasapolrittideah/task-manager-api/shared/logger"
	"github.com/vasapolrittideah/task-manager-api/shared/mailer"
	"github.com/vasapolrittideah/task-manager-api/shared/utilities"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// best-effort: real environment variables win and a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("task service stopped")
	}

	log.Info().Msg("goodbye")
}

// run wires the service and serves until ctx is done. Everything that can fail
// without side effects is checked before the store is opened, and every later
// failure is returned so the deferred cleanup runs.
func run(ctx context.Context, cfg *config.TaskServiceConfig, log *zerolog.Logger) error {
	m, err := mailer.NewMailer(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}

	v, err := payload.NewValidator()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	var (
		registrar    *discovery.ConsulRegistrar
		registration discovery.Registration
	)
	if cfg.Discovery.ConsulAddr != "" {
		registration, err = consulRegistration(cfg)
		if err != nil {
			return err
		}
		registrar, err = discovery.NewConsulRegistrar(cfg.Discovery.ConsulAddr, log)
		if err != nil {
			return err
		}
	}

	userRepo, taskRepo, closeStore, err := newRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var healthLis net.Listener
	if addr := cfg.Discovery.GRPCHealthAddr; addr != "" {
		healthLis, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen for grpc health on %s: %w", addr, err)
		}
	}

	jwtAuth := auth.NewJWTAuthenticator(cfg.Session.Issuer, cfg.Session.Issuer)
	authUsecase := usecase.NewAuthUsecase(userRepo, notification.NewOTPMailer(m, log), jwtAuth, cfg.Session)
	taskUsecase := usecase.NewTaskUsecase(taskRepo)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: handler.NewRouter(handler.RouterConfig{
			AuthUsecase: authUsecase,
			TaskUsecase: taskUsecase,
			Validator:   v,
			Session:     cfg.Session,
			Logger:      log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var healthServer *utilities.HealthServer
	if healthLis != nil {
		healthServer = utilities.NewHealthServer(cfg.Discovery.ServiceName)
		g.Go(func() error {
			log.Info().Str("addr", healthLis.Addr().String()).Msg("grpc health server listening")
			return healthServer.Serve(healthLis)
		})
	}

	// an unreachable Consul agent leaves the service running unregistered
	if registrar != nil {
		if err := registrar.Register(registration); err != nil {
			log.Warn().Err(err).Msg("failed to register with consul")
			registrar = nil
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		if registrar != nil {
			if err := registrar.Deregister(); err != nil {
				log.Warn().Err(err).Msg("failed to deregister from consul")
			}
		}
		if healthServer != nil {
			healthServer.MarkNotServing()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if healthServer != nil {
			healthServer.Stop()
		}
		return err
	})

	return g.Wait()
}

func newRepositories(
	ctx context.Context,
	cfg *config.TaskServiceConfig,
	log *zerolog.Logger,
) (repository.UserRepository, repository.TaskRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDatabase(cfg.Database.URI, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite database: %w", err)
		}

		closeStore := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}

		return repository.NewUserGormRepository(log, db), repository.NewTaskGormRepository(log, db), closeStore, nil
	default:
		client, db, err := database.NewMongoDatabase(ctx, cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}

		closeStore := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Warn().Err(err).Msg("failed to disconnect from mongodb")
			}
		}

		return repository.NewUserMongoRepository(ctx, log, db),
			repository.NewTaskMongoRepository(ctx, log, db),
			closeStore,
			nil
	}
}

// consulRegistration describes the HTTP API for Consul. A gRPC health address
// without a host is announced on ServiceHost.
func consulRegistration(cfg *config.TaskServiceConfig) (discovery.Registration, error) {
	_, portStr, err := net.SplitHostPort(cfg.HTTPAddr)
	if err != nil {
		return discovery.Registration{}, fmt.Errorf("parse http address %q: %w", cfg.HTTPAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return discovery.Registration{}, fmt.Errorf("parse http port %q: %w", portStr, err)
	}

	grpcHealthAddr := cfg.Discovery.GRPCHealthAddr
	if host, grpcPort, err := net.SplitHostPort(grpcHealthAddr); err == nil && host == "" {
		grpcHealthAddr = net.JoinHostPort(cfg.Discovery.ServiceHost, grpcPort)
	}

	return discovery.Registration{
		ServiceName:    cfg.Discovery.ServiceName,
		Host:           cfg.Discovery.ServiceHost,
		Port:           port,
		GRPCHealthAddr: grpcHealthAddr,
		HTTPHealthPath: "/health",
	}, nil
}
