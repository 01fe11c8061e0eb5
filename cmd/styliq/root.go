package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"styliq/internal/infra"
)

// Version is the CLI version.
const Version = "0.1.0"

var (
	cfg    *infra.Config
	logger infra.Logger
)

var rootCmd = &cobra.Command{
	Use:           "styliq",
	Short:         "Face-shape hairstyle consultations from the terminal",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		infra.LoadDotEnv()
		loaded, err := infra.LoadConfig()
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		cfg = loaded
		logger = infra.NewLoggerTo(os.Stderr, cfg.AppEnv)
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
