package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/config"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/hris-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/kafka"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/xendit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/hris-payroll-go/internal/service/notification"
	payrollService "github.com/cmlabs-hris/hris-payroll-go/internal/service/payroll"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Payroll service exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	payrollRepo := postgresql.NewPayrollRepository(db)
	employeeDirectory := postgresql.NewEmployeeDirectory(db)
	attendanceSource := postgresql.NewAttendanceSource(db)
	leaveSource := postgresql.NewLeaveSource(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	xenditClient := xendit.NewClient(cfg.Xendit)
	paymentGateway := xendit.NewGateway(xenditClient, cfg.Xendit.PayoutChannelCode)
	webhookVerifier := xendit.NewWebhookVerifier(cfg.Xendit.WebhookToken)
	if xenditClient.IsSandbox() {
		slog.Warn("Xendit is running in sandbox mode")
	}
	if cfg.Xendit.PayoutChannelCode == "" {
		slog.Warn("No default payout channel, destinations need a CHANNEL:account prefix")
	}

	var publisher notification.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Async))
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				slog.Error("Failed to close kafka writer", "error", err)
			}
		}()
		publisher = kafkaPublisher
	}

	hub := sse.NewHub()
	notifier := notification.NewNotifier(hub, publisher, notification.Config{})
	defer notifier.Stop()

	policy := payroll.DefaultPolicy()
	policy.DefaultStandardWorkingHours = cfg.Payroll.DefaultStandardWorkingHours
	policy.OvertimeApprovalThresholdHours = cfg.Payroll.OvertimeApprovalThresholdHours
	policy.WeeklyHoursLimit = cfg.Payroll.WeeklyHoursLimit
	policy.PremiumOvertimeLimitHours = cfg.Payroll.PremiumOvertimeLimitHours
	policy.MinimumBasicSalary = cfg.Payroll.MinimumBasicSalary

	payrollSvc := payrollService.NewPayrollService(
		payrollRepo,
		employeeDirectory,
		attendanceSource,
		leaveSource,
		paymentGateway,
		notifier,
		payrollService.Config{
			Policy:   policy,
			Currency: cfg.Payroll.Currency,
		},
	)

	var locker *lock.RedisLocker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		locker = lock.NewRedisLocker(rdb, "hris-payroll:lock:")
	}

	scheduler := cron.NewScheduler()
	cron.NewPayrollJobs(payrollSvc, locker, cfg.Payroll.ReconcileInterval, cfg.Payroll.ReconcileBatchSize).RegisterJobs(scheduler)

	router := appHTTP.NewRouter(
		cfg.App,
		JWTService,
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewNotificationHandler(hub, JWTService),
		appHTTP.NewWebhookHandler(payrollSvc, webhookVerifier),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start(gCtx)
		<-gCtx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
