package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/musicmoon/marketplace/internal/cli"
	"github.com/musicmoon/marketplace/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, closeApp, err := cli.Open(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer closeApp()

	return cli.NewRootCommand(app, os.Stdin).ExecuteContext(ctx)
}
