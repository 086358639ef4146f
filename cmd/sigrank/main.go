package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sigrank/internal/config"
	"sigrank/internal/logger"

	"github.com/spf13/cobra"
)

const (
	configEnv         = "SIGRANK_CONFIG"
	defaultConfigPath = "configs/sigrank.yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "sigrank",
		Short:         "Rank signal miners and aggregate their open positions into per-asset depth",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $"+configEnv+" or "+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override app.log_level")
	root.AddCommand(newRankCmd(opts), newServeCmd(opts))
	return root
}

// loadConfig resolves the config path from the flag, then the environment, then the default
// location, and runs on built-in defaults when none of them exists.
func (o *rootOptions) loadConfig() (*config.Config, func(), error) {
	path := strings.TrimSpace(o.configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(configEnv))
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.App.LogLevel = strings.ToLower(o.logLevel)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	if path == "" {
		logger.Infof("no config file found, running on defaults (env=%s)", cfg.App.Env)
	} else {
		logger.Infof("config loaded from %s (env=%s)", path, cfg.App.Env)
	}
	cleanup := func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}
	return cfg, cleanup, nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
