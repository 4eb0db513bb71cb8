// Package cmd implements the drtmdp command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/drtmdp/app"
	"github.com/kilianp07/drtmdp/config"
	"github.com/kilianp07/drtmdp/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "drtmdp",
	Short:         "Dispatch policy optimiser for demand-responsive fleets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, applies overrides and runs fn with a
// service bound to a context cancelled on SIGINT or SIGTERM.
func withService(override func(*config.Config), fn func(context.Context, *app.Service) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	defer svc.Monitor().Recover()
	return fn(ctx, svc)
}
