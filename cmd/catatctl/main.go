package main

import (
	"context"
	"fmt"
	"os"

	"catat/internal/backend"
	"catat/internal/cli"
	"catat/internal/config"
	applog "catat/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	// Command output owns stdout; logs go to stderr.
	logger := applog.New(applog.Config{Level: cfg.Level(), Output: os.Stderr})
	applog.SetDefault(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	root := cli.NewRootCmd(cli.BackendOpener(cfg, backend.NewReadOnlyFactory(logger.Logger)))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
