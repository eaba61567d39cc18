package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"dokianime/internal/apiclient"
	"dokianime/internal/logging"

	"github.com/spf13/cobra"
)

const defaultGateway = "http://localhost:3000"

type commandContext struct {
	gateway string
	timeout time.Duration
	verbose bool
}

func (c *commandContext) client() (*apiclient.Client, error) {
	gateway := strings.TrimSpace(c.gateway)
	if gateway == "" {
		gateway = defaultGateway
	}
	return apiclient.New(gateway, &http.Client{Timeout: c.timeout})
}

func (c *commandContext) logger(w io.Writer) *slog.Logger {
	if !c.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "dokictl",
		Short:         "Browse and play the Dokianime catalog from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.gateway, "gateway", "g", envOr("DOKIANIME_GATEWAY", defaultGateway), "Gateway base URL")
	rootCmd.PersistentFlags().DurationVar(&ctx.timeout, "timeout", 2*time.Minute, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log pipeline activity to stderr")

	rootCmd.AddCommand(newRecentCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newDetailsCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// status prints a progress line only when stdout is a terminal.
func status(cmd *cobra.Command, format string, args ...any) {
	if logging.IsTerminal(cmd.OutOrStdout()) {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}
