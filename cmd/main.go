package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breakcode4d/internal/api"
	"breakcode4d/internal/cache"
	"breakcode4d/internal/config"
	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
	"breakcode4d/internal/metrics"
	"breakcode4d/internal/predictor"
	"breakcode4d/internal/scheduler"
	"breakcode4d/internal/service"
	"breakcode4d/internal/telegram"
)

// App 应用程序主结构
type App struct {
	config  *config.Config
	cache   *cache.DrawCache
	service *service.Service
}

// NewApp 加载配置并初始化各组件
func NewApp(configPath string) (*App, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	logger.InitLogger(cfg.App.LogLevel)
	logger.SetOutput(os.Stderr)

	store, err := database.Open(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %v", err)
	}
	drawCache := cache.NewDrawCache(store, cfg.Storage.CacheTTL)

	var src rand.Source
	if cfg.Engine.Seed != 0 {
		src = rand.NewSource(cfg.Engine.Seed)
	}
	generator := predictor.NewGenerator(src)
	client := api.NewClient(&cfg.Source)
	logger.WithFields(client.GetAPIStats()).Debug("Result source configured")
	backfiller := api.NewBackfiller(client, &cfg.Source)

	svc, err := service.New(cfg.Engine, drawCache, backfiller, generator)
	if err != nil {
		drawCache.Close()
		return nil, err
	}

	return &App{config: cfg, cache: drawCache, service: svc}, nil
}

// loadConfig 配置文件不存在时使用默认配置
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) && path == defaultConfigPath {
		return config.Default(), nil
	}
	return nil, err
}

// Close 释放资源
func (a *App) Close() {
	logger.WithFields(a.cache.Stats()).Debug("Draw cache stats")
	if err := a.cache.Close(); err != nil {
		logger.Errorf("Failed to close storage: %v", err)
	}
}

// RunBot 运行Telegram机器人直到收到退出信号
func (a *App) RunBot() error {
	sched := scheduler.New()
	if schedule := a.config.App.UpdateSchedule; schedule != "" {
		job := scheduler.JobFunc{JobName: "update", Fn: func(ctx context.Context) error {
			res, err := a.service.Update(ctx)
			if err != nil {
				return err
			}
			logger.Infof("Scheduled update done: %d bases regenerated, %d failed", len(res.Bases), len(res.Failures))
			return nil
		}}
		if err := sched.AddJob(schedule, job); err != nil {
			return fmt.Errorf("invalid update schedule %q: %v", schedule, err)
		}
	}

	// 调度表达式校验通过后再创建机器人，NewBot 会立即开始拉取更新
	bot, err := telegram.NewBot(&a.config.Telegram, a.service)
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if addr := a.config.App.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
		logger.Infof("Metrics listening on %s", addr)
	}

	logger.WithFields(bot.GetBotInfo()).Debug("Bot ready")
	bot.Start()
	sched.Start()
	fmt.Println("🤖 Bot started, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sched.Stop()
	bot.Stop()
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Errorf("Failed to shut down metrics server: %v", err)
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
