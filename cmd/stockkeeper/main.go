package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/adapter/handler"
	"github.com/rl1809/stock-keeper/internal/app"
	"github.com/rl1809/stock-keeper/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := app.Build(ctx, cfg, "stockkeeper")
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	cli := handler.NewCLIHandler(a.Gate, a.Auth, a.LowStockThreshold, a.Logger)
	runErr := cli.Run(ctx, os.Stdin, os.Stdout)
	stop()
	if errors.Is(runErr, context.Canceled) {
		a.Logger.Info("session interrupted")
		runErr = nil
	}
	if runErr != nil {
		a.Logger.Error("session ended with error", zap.Error(runErr))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil || runErr != nil {
		os.Exit(1)
	}
}
