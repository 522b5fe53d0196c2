package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/config"
	"github.com/xxxsen/readlater/internal/db"
	"github.com/xxxsen/readlater/internal/filestore"
	"github.com/xxxsen/readlater/internal/pubsub"
	"github.com/xxxsen/readlater/internal/repo"
	"github.com/xxxsen/readlater/internal/service"
	"github.com/xxxsen/readlater/internal/usercache"
)

type commonFlags struct {
	configPath string
	envFile    string
}

type app struct {
	cfg       *config.Config
	db        *sql.DB
	jobs      *repo.ImportJobRepo
	userCache usercache.UserGetter
	files     filestore.Store
	publisher pubsub.Publisher
	labelSvc  *service.LabelService
	saveSvc   *service.SaveService
	importSvc *service.ImportService
	userSvc   *service.UserService
}

func loadApp(flags commonFlags) (*app, error) {
	if flags.configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	var envFiles []string
	if flags.envFile != "" {
		envFiles = append(envFiles, flags.envFile)
	}
	cfg, err := config.Load(flags.configPath, envFiles...)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", flags.configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	a, err := buildApp(cfg, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

func buildApp(cfg *config.Config, conn *sql.DB) (*app, error) {
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}
	publisher, err := pubsub.New(cfg.PubSub)
	if err != nil {
		return nil, fmt.Errorf("init publisher: %w", err)
	}
	userRepo := repo.NewUserRepo(conn)
	jobRepo := repo.NewImportJobRepo(conn)
	userCache := usercache.WrapLruCache(userRepo, cfg.UserCache.Size, time.Duration(cfg.UserCache.TTLSeconds)*time.Second)

	labelSvc := service.NewLabelService(repo.NewLabelRepo(conn))
	saveSvc := service.NewSaveService(repo.NewSaveRequestRepo(conn), labelSvc, userCache, publisher, cfg.HomePageURL)
	return &app{
		cfg:       cfg,
		db:        conn,
		jobs:      jobRepo,
		userCache: userCache,
		files:     store,
		publisher: publisher,
		labelSvc:  labelSvc,
		saveSvc:   saveSvc,
		importSvc: service.NewImportService(saveSvc, userCache, jobRepo, store),
		userSvc:   service.NewUserService(userRepo, []byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour),
	}, nil
}

func (a *app) Close() {
	logger := logutil.GetLogger(context.Background())
	if err := a.publisher.Close(); err != nil {
		logger.Warn("close publisher failed", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		logger.Warn("close db failed", zap.Error(err))
	}
}
