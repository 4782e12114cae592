package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"outingrewards/config"
	_ "outingrewards/docs"
	"outingrewards/internal/adapters/auth"
	"outingrewards/internal/adapters/email"
	"outingrewards/internal/adapters/notify"
	httpDelivery "outingrewards/internal/delivery/http"
	"outingrewards/internal/delivery/http/controllers"
	"outingrewards/internal/delivery/http/middleware"
	"outingrewards/internal/repository/postgres"
	"outingrewards/internal/scheduler"
	"outingrewards/internal/services"
)

const shutdownTimeout = 15 * time.Second

// @title Outing Rewards API
// @version 1.0
// @description Outing admission and reward vouchers.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("database ready")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	outingRepo := postgres.NewOutingRepository(db)
	rewardRepo := postgres.NewRewardRepository(db)
	participationRepo := postgres.NewParticipationRepository(db, cfg.LockTimeout)
	voucherRepo := postgres.NewVoucherRepository(db)

	// Notifications
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(logger)
	dispatcher.Subscribe(notify.NewLogSubscriber(logger))
	dispatcher.Subscribe(notify.NewMailSubscriber(userRepo, email.NewTemplateRenderer(), mailer, email.NotificationTemplate))

	// Services
	rewardEngine := services.NewRewardEngine(outingRepo, userRepo, rewardRepo, participationRepo, voucherRepo, dispatcher, cfg.VoucherValidity, logger)
	participationService := services.NewParticipationService(outingRepo, userRepo, participationRepo, rewardEngine, dispatcher, logger)
	voucherService := services.NewVoucherService(voucherRepo, rewardRepo, logger)

	expiry, err := scheduler.NewVoucherExpiry(voucherService, cfg.VoucherExpiryCron, logger)
	if err != nil {
		return err
	}

	// HTTP
	router := httpDelivery.NewRouter(
		controllers.NewParticipationController(logger, participationService),
		controllers.NewVoucherController(logger, voucherService),
		auth.NewJWTVerifier(cfg.JWTSecret),
		logger,
	)
	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, router))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	expiry.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return errors.Join(
			server.Shutdown(shutdownCtx),
			expiry.Shutdown(),
			dispatcher.Close(shutdownCtx),
		)
	})
	return g.Wait()
}
