package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/bank_system/internal/app"
	"github.com/congo-pay/bank_system/internal/cli"
	"github.com/congo-pay/bank_system/internal/config"
	"github.com/congo-pay/bank_system/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// stdout belongs to the interactive shell.
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bank, err := app.Open(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := bank.Close(); err != nil {
			logger.Warn("close app", "error", err)
		}
	}()

	shell := cli.New(bank.Manager, os.Stdin, os.Stdout,
		cli.WithTitle(cfg.AppName),
		cli.WithPause(cfg.UXPause),
		cli.WithLogger(logger),
		cli.WithPasswordReader(cli.TerminalPassword(int(os.Stdin.Fd()), os.Stdout)),
	)

	shellErrCh := make(chan error, 1)
	go func() {
		shellErrCh <- shell.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	case err := <-shellErrCh:
		if err != nil {
			logger.Error("shell error", "error", err)
		}
	}

	if active, ok := bank.Manager.Active(); ok {
		logger.Info("session ended", "username", active.Username, "session_id", active.ID)
	}
	logger.Info("bank system exited")
}
