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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"image-enhancer/internal/api"
	"image-enhancer/internal/core/cache"
	"image-enhancer/internal/core/enhance"
	imageService "image-enhancer/internal/core/image"
	"image-enhancer/internal/core/vision/opencv"
	"image-enhancer/internal/infrastructure/config"
	"image-enhancer/internal/pkg/common"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, common.LogFileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("backend", cfg.Enhance.Backend),
		zap.Int("jpeg_quality", cfg.Image.JPEGQuality),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	pipeline, closePipeline, err := newPipeline(cfg.Enhance)
	if err != nil {
		common.LogFatal("Failed to initialize pipeline", zap.Error(err))
	}
	defer closePipeline()

	// 初始化快取，連線失敗時不啟動
	store, err := cache.New(context.Background(), cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	codec := imageService.NewService(cfg.Image.MaxSizeBytes,
		imageService.WithMaxDimension(cfg.Image.MaxDimension),
		imageService.WithMaxPixels(cfg.Image.MaxPixels),
		imageService.WithQuality(cfg.Image.JPEGQuality),
	)

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Pipeline: pipeline,
		Codec:    codec,
		Cache:    store,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.String("pipeline", pipeline.Name()),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時，讓進行中的請求完成
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// newPipeline 依設定選擇純 Go 或 OpenCV 管線
func newPipeline(cfg config.EnhanceConfig) (enhance.Transformer, func(), error) {
	noop := func() {}
	opts := []enhance.Option{enhance.WithSimulatedLatency(cfg.SimulatedLatency)}

	switch cfg.Backend {
	case config.BackendOpenCV:
		ocv, err := opencv.NewPipeline()
		if err != nil {
			return nil, noop, err
		}
		closer := func() { _ = ocv.Close() }
		return enhance.New(ocv.Name(), []enhance.Transformer{ocv}, opts...), closer, nil
	default:
		return enhance.Default(opts...), noop, nil
	}
}
