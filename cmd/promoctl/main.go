package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-promo/internal/obs"
)

type cli struct {
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zerolog.Nop()}
	var logLevel string

	root := &cobra.Command{
		Use:   "promoctl",
		Short: "Operate the coupon discount service",
		Long: `promoctl manages the promo database and resolves orders against coupon
files without a running server. Database commands read DATABASE_URL and token
commands read JWT_SECRET, either from the environment or a .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.logger = obs.NewLoggerTo(cmd.ErrOrStderr(), "console", logLevel).With().Str("cmd", cmd.Name()).Logger()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.solveCmd(),
		c.tokenCmd(),
		c.callCmd(),
		c.topicsCmd(),
		c.cacheCmd(),
	)
	return root
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
