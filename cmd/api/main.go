package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"task-manager/internal/core/auth"
	"task-manager/internal/core/cache"
	"task-manager/internal/core/config"
	"task-manager/internal/core/database"
	"task-manager/internal/core/logger"
	"task-manager/internal/core/server"
	"task-manager/internal/domain"
	"task-manager/internal/notify"
	"task-manager/internal/repo"
	"task-manager/internal/service"
	"task-manager/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Enable:     cfg.Log.File.Enable,
		Filename:   cfg.Log.File.Path,
		MaxSizeMB:  cfg.Log.File.MaxSizeMB,
		MaxBackups: cfg.Log.File.MaxBackups,
		MaxAgeDays: cfg.Log.File.MaxAgeDays,
		Compress:   cfg.Log.File.Compress,
	})
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.User{}, &domain.SessionToken{}, &domain.Task{}); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// 会话令牌签发
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
	}

	// 头像缓存
	avatarCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// 协作方 + 业务
	mailer := notify.NewEmailNotifier(notify.SMTPConfig{
		Host: cfg.SMTP.Host, Port: cfg.SMTP.Port,
		User: cfg.SMTP.User, Pass: cfg.SMTP.Pass, From: cfg.SMTP.From,
	}, log)

	users := repo.NewUserRepo(db)
	tasks := repo.NewTaskRepo(db)
	accounts := service.NewAccountService(users, jwter, mailer, repo.IsDupKey, log)
	taskSvc := service.NewTaskService(tasks)

	r := router.NewAPIEngine(router.Deps{
		Log:      log,
		Users:    users,
		Accounts: accounts,
		Tasks:    taskSvc,
		JWTer:    jwter,
		Cache:    avatarCache,
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	log.Info("api starting", zap.String("addr", addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start failed", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	std, err := logger.ToStdLogger(l, zapcore.InfoLevel)
	if err != nil {
		l.Fatal("std logger", zap.Error(err))
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		StdLogger:          std,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
