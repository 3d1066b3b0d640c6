package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/FilingPulse/internal/api"
	"github.com/LJTian/FilingPulse/internal/app"
	"github.com/LJTian/FilingPulse/internal/config"
	"github.com/LJTian/FilingPulse/internal/logging"
	"github.com/LJTian/FilingPulse/internal/scheduler"
	"github.com/LJTian/FilingPulse/internal/storage"
)

func main() {
	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			logging.New("info").Fatalf("load config failed: %v", err)
		}
	}
	log := logging.New(cfg.LogLevel)

	deps := app.Deps{}
	var runStore api.RunStore
	if cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		deps.Observer = store
		deps.Redis = store.Redis
		runStore = store
	} else if cfg.RedisAddr != "" {
		deps.Redis = storage.NewRedis(cfg.RedisAddr, log)
	}

	job, err := app.BuildJob(cfg, log, deps)
	if err != nil {
		log.Fatalf("init job failed: %v", err)
	}

	s, err := scheduler.New([]scheduler.JobSpec{
		{Name: job.Name, CronSpec: cfg.CronSpec, Runner: job},
	}, log)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(runStore, s, job.Name).RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		log.Infof("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exit: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server shutdown: %v", err)
	}
	// 进行中的任务在当前条目结束后落盘退出
	s.Stop()
}
