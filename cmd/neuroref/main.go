package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	v1 "github.com/dmehra2102/prod-golang-projects/neuroref/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/jobs"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/pdf"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/storage"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "neuroref",
		Short:         "Epilepsy referral API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), bootstrapAdminCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(*cobra.Command, []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

func bootstrapAdminCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first administrator account",
		Long:  "Creates the first administrator. The password is read from NEUROREF_ADMIN_PASSWORD.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			users := repository.NewUserRepository(db)
			auditSvc := service.NewAuditService(repository.NewAuditRepository(db), metrics.NewCollector("neuroref", prometheus.NewRegistry()), log)
			defer auditSvc.Shutdown()

			authSvc := service.NewAuthService(users, auth.NewJWTManager(cfg.JWT), auditSvc, log)
			u, err := authSvc.BootstrapAdmin(cmd.Context(), service.BootstrapAdminCommand{
				Name:     name,
				Email:    email,
				Password: os.Getenv("NEUROREF_ADMIN_PASSWORD"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created (id %d)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, log, nil
}

func runServer(parent context.Context, migrate bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	if migrate {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}

	backend, err := newBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	attachments, err := storage.NewAttachmentStore(backend, cfg.Storage.Key())
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events)
	}

	m := metrics.NewCollector("neuroref", prometheus.DefaultRegisterer)

	var (
		tx          = repository.NewTransactor(db)
		users       = repository.NewUserRepository(db)
		forms       = repository.NewFormRepository(db)
		responses   = repository.NewResponseRepository(db)
		patients    = repository.NewPatientRepository(db)
		attachRepo  = repository.NewAttachmentRepository(db)
		notifyRepo  = repository.NewNotificationRepository(db)
		auditSvc    = service.NewAuditService(repository.NewAuditRepository(db), m, log)
		notifySvc   = service.NewNotificationService(notifyRepo, publisher, m, log)
		jwtManager  = auth.NewJWTManager(cfg.JWT)
		assignments = service.NewAssignmentService(users, forms, m, log)
	)

	formSvc := service.NewFormService(service.FormDeps{
		Tx:          tx,
		Forms:       forms,
		Attachments: attachRepo,
		Responses:   responses,
		Patients:    patients,
		Assigner:    assignments,
		Store:       attachments,
		Documents:   backend,
		Renderer:    pdf.NewRenderer(cfg.PDF),
		Notifier:    notifySvc,
		Audit:       auditSvc,
		Metrics:     m,
	}, cfg.Upload, log)

	services := v1.Services{
		Auth:          service.NewAuthService(users, jwtManager, auditSvc, log),
		Accounts:      service.NewAccountService(users, auditSvc, log),
		Forms:         formSvc,
		Responses:     service.NewResponseService(tx, forms, responses, users, notifySvc, auditSvc, m, log),
		Summaries:     service.NewSummaryService(forms, log),
		Notifications: notifySvc,
		Admin:         service.NewAdminService(tx, users, forms, notifySvc, auditSvc, log),
		Identity:      service.NewIdentityResolver(users, log),
		Tokens:        jwtManager,
	}

	var scheduler *gocron.Scheduler
	if cfg.Jobs.PDFBackfillEnabled {
		scheduler, err = jobs.NewPDFBackfill(formSvc, cfg.Jobs, log).Start()
		if err != nil {
			return err
		}
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterConfig{
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
		Upload:    cfg.Upload,
		Metrics:   m,
		Health:    pinger(db),
	}, services, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	auditSvc.Shutdown()
	if err := publisher.Close(); err != nil {
		log.Warn("closing event publisher", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("server stopped")
	return nil
}

func newBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Backend(ctx, cfg)
	default:
		return storage.NewLocalBackend(cfg.LocalDir)
	}
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}
