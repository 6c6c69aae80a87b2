// Command swapcore runs an interactive cross-chain swap session against
// the THORChain network. It quotes swaps, estimates inbound and outbound
// fees, and journals submitted attempts.
//
// Usage:
//
//	swapcore setup                  (interactive configuration wizard)
//	swapcore --config config.yaml
//	swapcore (uses CLI arguments)
//
// Without a wallet the session runs in preview mode: quotes and fee
// estimates work, submission stays disabled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/config"
	"github.com/runevault/swapcore/dashboard"
	"github.com/runevault/swapcore/internal"
	"github.com/runevault/swapcore/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		// the wizard writes config.gen.yaml; restart the flag parse on it
		os.Args = []string{os.Args[0], "--config", "config.gen.yaml"}
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// no signer is wired here: the session quotes and estimates, and the
	// submission machine rejects broadcasts until a wallet backend is set up
	swapper, closeAll, err := internal.BuildSwapper(ctx, cfg, nil, nil, logger)
	if err != nil {
		logger.Fatal("failed to build swap session", zap.Error(err))
	}
	defer closeAll()

	if cfg.DashboardAddr != "" {
		srv := dashboard.NewServer(cfg.DashboardAddr, swapper, swapper.Machine())
		go func() {
			var serveErr error
			if cfg.DashboardDomain != "" {
				serveErr = srv.StartWithAutoTLS(ctx, []string{cfg.DashboardDomain}, "")
			} else {
				serveErr = srv.Start(ctx)
			}
			if serveErr != nil {
				logger.Error("dashboard server stopped", zap.Error(serveErr))
			}
		}()
		logger.Info("dashboard listening", zap.String("addr", cfg.DashboardAddr))
	}

	if err := swapper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("swap session failed", zap.Error(err))
	}
}
