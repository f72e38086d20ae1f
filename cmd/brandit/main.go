// Command brandit runs the dynamic-price storefront and progression tracker
// backend. It loads configuration, validates it, wires dependencies, sets up
// signal handling, and starts the application in the configured mode.
//
// Two helper subcommands prepare secrets for the config file:
//
//	brandit hash-admin-key <key>
//	brandit seal-secret -password <pw> -out <file> <secret>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/brandit/internal/app"
	"github.com/alanyoungcy/brandit/internal/config"
	"github.com/alanyoungcy/brandit/internal/crypto"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash-admin-key":
			os.Exit(hashAdminKey(os.Args[2:]))
		case "seal-secret":
			os.Exit(sealSecret(os.Args[2:]))
		}
	}

	configPath := flag.String("config", "config.toml", "path to configuration file (empty for defaults)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("brandit starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error",
			slog.String("error", err.Error()),
		)
		application.Close()
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("brandit stopped")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func hashAdminKey(args []string) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: brandit hash-admin-key <key>")
		return 2
	}
	hash, err := crypto.HashAdminKey(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-admin-key: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

func sealSecret(args []string) int {
	fs := flag.NewFlagSet("seal-secret", flag.ContinueOnError)
	password := fs.String("password", "", "password protecting the sealed file")
	out := fs.String("out", "", "file to write")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *password == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: brandit seal-secret -password <pw> -out <file> <secret>")
		return 2
	}
	sealed, err := crypto.SealSecret(fs.Arg(0), *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seal-secret: %v\n", err)
		return 1
	}
	if err := os.WriteFile(*out, sealed, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "seal-secret: %v\n", err)
		return 1
	}
	return 0
}
