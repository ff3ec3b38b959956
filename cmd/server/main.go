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

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/cache"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/config"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/database"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/governance"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/handler"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/media"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/notify"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/realtime"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/repository"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/router"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/scheduler"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "titaflow",
		Short: "TitaFlow crowdfunding service",
		RunE:  runServe,
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the scheduler",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE:  runMigrate,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := logger.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if _, err := database.Init(cfg.Database); err != nil {
		return err
	}
	logger.Info("Database migration completed")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		return err
	}

	rdb, err := cache.NewClient(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	currencies := money.NewRegistry(cfg.Currencies)

	flowRepo := repository.NewFlowRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	updateRepo := repository.NewUpdateRepository(db)
	userRepo := repository.NewUserRepository(db)
	governanceRepo := repository.NewGovernanceEventRepository(db)

	// 邮件渠道按配置开启
	var mailer notify.Mailer
	if cfg.Email.Enabled {
		mailer = notify.NewSMTPMailer(cfg.Email)
	}
	dispatcher, err := notify.NewDispatcher(notify.Options{
		PoolSize:  cfg.Notify.PoolSize,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   time.Duration(cfg.Notify.TimeoutSeconds) * time.Second,
	}, notificationRepo, contributionRepo, userRepo, realtime.NewPublisher(rdb), mailer, currencies)
	if err != nil {
		return fmt.Errorf("failed to create notification dispatcher: %w", err)
	}
	defer dispatcher.Close()

	tokens := middleware.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	nonces := cache.NewNonceStore(rdb, time.Duration(cfg.Auth.NonceTTLSeconds)*time.Second)

	flowLogic := logic.NewFlowLogic(flowRepo, currencies, dispatcher)
	contributionLogic := logic.NewContributionLogic(flowRepo, contributionRepo, currencies, dispatcher)
	notificationLogic := logic.NewNotificationLogic(notificationRepo)
	updateLogic := logic.NewUpdateLogic(flowRepo, updateRepo, dispatcher)
	userLogic := logic.NewUserLogic(userRepo, currencies)
	authLogic := logic.NewAuthLogic(userRepo, nonces, wallet.Verifier{}, tokens, dispatcher)

	uploader, err := media.NewCloudinary(cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to create media uploader: %w", err)
	}
	mediaService := media.NewService(uploader, cfg.Media.RootFolder)

	intake := governance.NewIntake(governanceRepo, governance.NewProcessorManager(flowLogic))

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	r := router.Setup(cfg, router.Handlers{
		Flow:         handler.NewFlowHandler(flowLogic, contributionLogic, currencies),
		Contribution: handler.NewContributionHandler(flowLogic, contributionLogic, currencies),
		Notification: handler.NewNotificationHandler(notificationLogic, realtime.NewStream(realtime.NewSubscriber(rdb), cfg.Server.Cors)),
		Update:       handler.NewUpdateHandler(updateLogic),
		User:         handler.NewUserHandler(userLogic, authLogic),
		Media:        handler.NewMediaHandler(mediaService, cfg.Media.MaxBytes),
		Governance:   handler.NewGovernanceHandler(intake),
	}, tokens, limiter)

	// 启动定时任务
	tasks, err := scheduler.NewManager(scheduler.NewFlowCompletionJob(flowLogic, cfg.Task.Interval))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := tasks.Start(); err != nil {
		return err
	}
	defer tasks.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	return nil
}
