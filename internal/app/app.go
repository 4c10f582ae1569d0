package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tutor-service/common/logger"
	"tutor-service/common/telemetry"
	"tutor-service/internal/account"
	"tutor-service/internal/auth"
	"tutor-service/internal/backend"
	"tutor-service/internal/config"
	"tutor-service/internal/currency"
	"tutor-service/internal/health"
	"tutor-service/internal/income"
	"tutor-service/internal/lesson"
	"tutor-service/internal/messaging"
	"tutor-service/internal/metrics"
	"tutor-service/internal/middleware"
	"tutor-service/internal/student"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	healthInterval = 15 * time.Second
	purgeInterval  = time.Hour
)

type App struct {
	config     *config.Config
	router     chi.Router
	server     *http.Server
	grpcServer *grpc.Server
	grpcHealth *health.GrpcHealth
	backend    *backend.Backend
	emitter    *messaging.Emitter
	telemetry  *telemetry.Telemetry
	auth       *auth.Service
	logger     *slog.Logger
}

// New loads configuration and builds the application
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("config loaded", "env", cfg.Env, "remote_storage", cfg.Storage.Remote, "events", cfg.Events.Driver)

	return NewWithConfig(ctx, cfg, slogLogger)
}

func NewWithConfig(ctx context.Context, cfg *config.Config, slogLogger *slog.Logger) (*App, error) {
	slogLogger.Info("initializing application", "version", Version, "commit", GitCommit, "built", BuildTime)

	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	defaultCurrency, err := currency.Parse(cfg.App.Currency)
	if err != nil {
		defaultCurrency = currency.Default
	}

	tel, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Env:            cfg.Env,
		Storage:        storageKind(cfg),
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
	}, slogLogger)
	if err != nil {
		return nil, err
	}

	meter := otel.Meter(ServiceName)
	businessMetrics, err := metrics.New(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize business metrics: %w", err)
	}

	be, err := backend.New(ctx, cfg, slogLogger, tel.Metrics)
	if err != nil {
		tel.Shutdown(ctx, slogLogger)
		return nil, err
	}
	if err := tel.Metrics.Health.RegisterDependencies(meter, be.Kind()); err != nil {
		slogLogger.Warn("failed to register dependency metrics", "error", err)
	}

	publisher := messaging.New(cfg.Events, slogLogger)
	emitter := messaging.NewEmitter(publisher, tel.Metrics, slogLogger)
	slogLogger.Info("event publisher ready", "driver", publisher.Driver())

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		backend:   be,
		emitter:   emitter,
		telemetry: tel,
		logger:    slogLogger,
	}

	app.router.Use(chimw.RequestID)
	app.router.Use(chimw.RealIP)
	app.router.Use(middleware.RequestLogger(slogLogger))
	app.router.Use(chimw.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	health.NewHandler(be, be.Kind(), tel.Metrics.Health, slogLogger).RegisterRoutes(app.router)

	lessonService := lesson.NewService(be.Lessons, emitter, businessMetrics)
	studentService := student.NewService(be.Students, emitter, businessMetrics)

	var (
		ownerMiddleware func(http.Handler) http.Handler
		resolver        income.CurrencyResolver
		accountHandler  *account.Handler
	)

	if be.Remote() {
		tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTTLMinutes)*time.Minute)
		app.auth = auth.NewService(be.Tokens, be.Accounts, tokens, auth.Options{
			RefreshTTL:      time.Duration(cfg.Auth.RefreshTTLHours) * time.Hour,
			DefaultCurrency: defaultCurrency,
		}, businessMetrics, slogLogger)
		auth.NewHandler(app.auth, tokens, cfg.Env, slogLogger).RegisterRoutes(app.router)

		accountService := account.NewService(be.Accounts, defaultCurrency, slogLogger)
		accountHandler = account.NewHandler(accountService, slogLogger)
		resolver = accountService.Currency
		ownerMiddleware = auth.Middleware(tokens, slogLogger)
	} else {
		ownerID, err := localOwner(cfg.Storage.Local.OwnerID)
		if err != nil {
			app.Shutdown(ctx)
			return nil, err
		}
		slogLogger.Info("local mode, requests act as the local owner", "owner_id", ownerID)
		resolver = income.FixedCurrency(defaultCurrency)
		ownerMiddleware = auth.LocalOwner(ownerID)
	}

	lessonHandler := lesson.NewHandler(lessonService, slogLogger)
	studentHandler := student.NewHandler(studentService, slogLogger)
	incomeHandler := income.NewHandler(lessonService, resolver, businessMetrics, slogLogger)

	app.router.Route("/api", func(r chi.Router) {
		r.Use(ownerMiddleware)
		lessonHandler.RegisterRoutes(r)
		studentHandler.RegisterRoutes(r)
		incomeHandler.RegisterRoutes(r)
		if accountHandler != nil {
			accountHandler.RegisterRoutes(r)
		}
	})

	app.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(tel.Metrics.Grpc.UnaryServerInterceptor()))
	app.grpcHealth = health.NewGrpcHealth(slogLogger)
	app.grpcHealth.Register(app.grpcServer)

	slogLogger.Info("application initialized successfully", "storage", be.Kind())

	return app, nil
}

// Handler is the HTTP handler of the whole API
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP and gRPC until ctx is cancelled or a server fails
func (a *App) Run(ctx context.Context) error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  seconds(a.config.Server.ReadTimeout, 15),
		WriteTimeout: seconds(a.config.Server.WriteTimeout, 15),
		IdleTimeout:  seconds(a.config.Server.IdleTimeout, 60),
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("gRPC server starting", "port", a.config.Grpc.Port)
		if err := a.grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.grpcHealth.Monitor(ctx, a.backend, healthInterval)
	})

	if a.auth != nil {
		g.Go(func() error {
			return a.auth.PurgeExpired(ctx, purgeInterval)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		a.grpcHealth.Shutdown()
		a.grpcServer.GracefulStop()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown releases the event publisher, the storage backend and telemetry
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.emitter.Close(); err != nil {
		a.logger.Error("event publisher close error", "error", err)
		errs = append(errs, err)
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
		errs = append(errs, err)
	}
	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func localOwner(raw string) (uuid.UUID, error) {
	if raw == "" {
		return auth.DefaultLocalOwner, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage.local.owner_id: %w", err)
	}
	return id, nil
}

func storageKind(cfg *config.Config) string {
	if cfg.Storage.Remote {
		return backend.KindPostgres
	}
	return cfg.Storage.Local.Driver
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
