package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/handler"
	"github.com/xxxsen/readlater/internal/job"
	"github.com/xxxsen/readlater/internal/middleware"
	"github.com/xxxsen/readlater/internal/schedule"
	"github.com/xxxsen/readlater/internal/service"
)

func newRunCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run readlater server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(a)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config.json")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "optional .env file with secret overrides")
	return cmd
}

func runServer(a *app) error {
	cfg := a.cfg
	logger := logutil.GetLogger(context.Background())
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", a.files.Type()),
		zap.String("pubsub", cfg.PubSub.Type),
	)

	deps := handler.RouterDeps{
		Saves:         handler.NewSaveHandler(a.saveSvc, a.userCache),
		Imports:       handler.NewImportHandler(a.importSvc, cfg.MaxImportFileBytes),
		Labels:        handler.NewLabelHandler(a.labelSvc),
		JWTSecret:     []byte(cfg.JWTSecret),
		InboundToken:  cfg.InboundToken,
		SaveRateLimit: time.Duration(cfg.SaveRateLimitMs) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewImportCleanupJob(a.jobs, a.files, time.Duration(cfg.ImportCleanup.MaxAgeHour)*time.Hour, service.ImportRunTimeout)
	if err := scheduler.AddJob(cleanup, cfg.ImportCleanup.Spec); err != nil {
		return fmt.Errorf("schedule import cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logger.Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
