// Command playersim behaves like a signage screen: it announces a pairing
// code, waits for an admin to claim it and prints every content change.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/logger"
	"github.com/iliyamo/signage-pairing/internal/playerclient"
)

type options struct {
	server   string
	deviceID string
	code     string
	interval time.Duration
	refresh  time.Duration
	verbose  bool
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "playersim",
		Short:        "Simulate a signage player against the pairing API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.server, "server", "s", "http://localhost:5000", "API base URL")
	f.StringVar(&o.deviceID, "device", "", "device id (random when empty)")
	f.StringVar(&o.code, "code", "", "six digit pairing code (random when empty)")
	f.DurationVar(&o.interval, "pair-interval", 3*time.Second, "check-pairing poll interval")
	f.DurationVar(&o.refresh, "refresh", 0, "override the server's content refresh interval")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, o options) error {
	level := "info"
	if o.verbose {
		level = "debug"
	}
	log := logger.New("dev", level)
	defer func() { _ = log.Sync() }()

	if o.deviceID == "" {
		o.deviceID = "sim-" + uuid.NewString()[:8]
	}
	if o.code == "" {
		o.code = fmt.Sprintf("%06d", rand.Intn(1_000_000))
	}

	c := playerclient.New(o.server, log)
	if err := c.Declare(ctx, o.deviceID, o.code); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "device %s waiting; pairing code %s\n", o.deviceID, o.code)

	st, err := c.WaitForPairing(ctx, o.deviceID, o.code, o.interval)
	if err != nil {
		return ignoreCancel(err)
	}
	fmt.Fprintf(out, "paired as %s (%s)\n", st.PlayerName, st.PlayerID)

	err = c.PollContent(ctx, o.deviceID, st.Token, o.refresh, func(ct playerclient.Content) {
		log.Info("content changed", zap.String("url", ct.ContentURL), zap.Int("refresh_interval", ct.RefreshInterval))
		fmt.Fprintf(out, "showing %s\n", ct.ContentURL)
	})
	return ignoreCancel(err)
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
