package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yokitheyo/tubeaudio/internal/api"
	"github.com/yokitheyo/tubeaudio/internal/config"
	"github.com/yokitheyo/tubeaudio/internal/fetcher"
	"github.com/yokitheyo/tubeaudio/internal/janitor"
	"github.com/yokitheyo/tubeaudio/internal/service"
	"github.com/yokitheyo/tubeaudio/internal/taskmgr"
)

func main() {
	logger := log.New(os.Stdout, "[tubeaudio] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	if err := os.MkdirAll(cfg.Download.OutputDir, 0755); err != nil {
		logger.Fatalf("failed to create output directory: %v", err)
	}

	tm := taskmgr.NewTaskManager(cfg.Download.MaxConcurrent)
	yt := fetcher.NewYouTube(fetcher.Options{
		Timeout: cfg.Download.RequestTimeout,
		Headers: cfg.Download.Headers,
	})
	dl := service.NewDownloader(yt, tm, service.Options{
		OutputDir:           cfg.Download.OutputDir,
		AudioExt:            cfg.Download.AudioExt,
		Timeout:             cfg.Download.DownloadTimeout,
		MaxBytesPerSec:      cfg.Download.MaxBytesPerSec,
		ProgressLogInterval: cfg.Download.ProgressLogInterval,
	}, logger)

	var limiter *rate.Limiter
	if cfg.Server.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RequestsPerSecond), cfg.Server.Burst)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	api.RegisterHandlers(r, &api.APIHandler{
		DL:      dl,
		TM:      tm,
		Limiter: limiter,
		Ext:     cfg.Download.AudioExt,
	})

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf("server starting on %s", cfg.Addr())
		logger.Printf("open http://localhost:%d in your browser", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx, cfg.Download.OutputDir, cfg.Janitor.StaleAfter, cfg.Janitor.Interval, logger)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("shutdown error: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(err)
	}
	logger.Printf("server stopped")
}
