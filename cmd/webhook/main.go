package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kubernetes-cost-optimizer/pkg/admission"
	"kubernetes-cost-optimizer/pkg/config"
	"kubernetes-cost-optimizer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, false)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := admission.NewServer(log, cfg.WebhookAddr, cfg.TLSCertFile, cfg.TLSKeyFile)
	if err := server.Run(ctx); err != nil {
		log.Errorw("Webhook server failed", "error", err)
		os.Exit(1)
	}
}
