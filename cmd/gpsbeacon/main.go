package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gpsbeacon/internal/config"
	"gpsbeacon/internal/logging"
	"gpsbeacon/internal/web"
)

func main() {
	var configPath string
	var summarizePath string
	flag.StringVar(&configPath, "config", "./configs/dev.yaml", "Path to YAML config")
	flag.StringVar(&summarizePath, "summarize", "", "Summarize an NMEA capture file and exit")
	flag.Parse()

	if summarizePath != "" {
		s, err := summarizeCaptureFile(summarizePath)
		if err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		fmt.Print(s.String())
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(cfg.Log.BufferLines)
	logger, level, err := logging.New(cfg.Log.Level, logs)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	// Library output through the stdlib log package lands in the same sinks.
	undoRedirect := zap.RedirectStdLog(logger.Desugar())
	defer undoRedirect()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(cfg, logger, logs, level)
	if err != nil {
		logger.Fatalw("runtime init failed", "err", err)
	}

	logger.Infow("gpsbeacon starting", "config", configPath, "source", cfg.GPS.Source)
	if err := rt.Start(ctx); err != nil {
		logger.Errorw("runtime start failed", "err", err)
		cancel()
	}

	<-ctx.Done()
	logger.Infow("gpsbeacon stopping")
	if err := rt.Close(); err != nil {
		logger.Warnw("shutdown", "err", err)
	}
}
