// Command flashpay drives a merchant payment ledger from the shell. Every
// invocation is an independent context over the configured shared storage,
// so concurrent invocations (and `flashpay watch`) see each other's writes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/zomasamka-bot/flashpay/config"
	"github.com/zomasamka-bot/flashpay/internal/app"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/spf13/cobra"
)

var Version = "dev"

type rootOptions struct {
	configPath string
	jsonOutput bool
	showTrail  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "flashpay",
		Short:         "FlashPay - merchant payment ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&opts.showTrail, "trail", false, "Print the audit and error trail of this invocation")

	rootCmd.AddCommand(connectCmd(opts))
	rootCmd.AddCommand(createCmd(opts))
	rootCmd.AddCommand(payCmd(opts))
	rootCmd.AddCommand(getCmd(opts))
	rootCmd.AddCommand(listCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(clearCmd(opts))
	rootCmd.AddCommand(toggleCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))

	return rootCmd
}

// withContext opens a ledger context, runs fn and closes the context so
// pending writes are flushed before the process exits.
func withContext(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, c *app.Context) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays parseable.
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx := cmd.Context()
	c, err := app.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	runErr := fn(ctx, c)
	if opts.showTrail {
		printTrail(cmd.ErrOrStderr(), c)
	}
	if err := c.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
