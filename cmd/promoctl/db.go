package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-promo/internal/repo"
)

func (c *cli) migrateCmd() *cobra.Command {
	var databaseURL string
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back schema migrations",
		Example:   "  promoctl migrate up\n  promoctl migrate down --steps 1",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := repo.NewMigrator(databaseURL)
			if err != nil {
				return err
			}
			defer func() {
				srcErr, dbErr := m.Close()
				if srcErr != nil || dbErr != nil {
					c.logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrator")
				}
			}()

			switch args[0] {
			case "up":
				err = repo.MigrateUp(m)
			default:
				err = repo.MigrateDown(m, steps)
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			version, dirty, verr := m.Version()
			c.logger.Info().Str("direction", args[0]).Uint("version", version).Bool("dirty", dirty).AnErr("version_err", verr).Msg("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres DSN")
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		databaseURL string
		userID      int64
		term        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample coupons and hand them to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user must be positive")
			}
			if strings.TrimSpace(databaseURL) == "" {
				return errors.New("DATABASE_URL is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			ids, err := repo.Seed(ctx, pool, userID, repo.SampleCoupons(), term)
			if err != nil {
				return err
			}
			c.logger.Info().Int64("user_id", userID).Ints64("coupon_ids", ids).Msg("sample coupons seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres DSN")
	cmd.Flags().Int64Var(&userID, "user", 1, "user receiving the coupons")
	cmd.Flags().DurationVar(&term, "term", 30*24*time.Hour, "how long the user coupons stay valid")
	return cmd
}

func (c *cli) cacheCmd() *cobra.Command {
	var redisURL string

	invalidate := &cobra.Command{
		Use:   "invalidate <coupon-id>...",
		Short: "Drop cached coupon scopes after editing coupon_scope",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid coupon id %q", arg)
				}
				ids = append(ids, id)
			}
			opts, err := redis.ParseURL(redisURL)
			if err != nil {
				return fmt.Errorf("parse redis url: %w", err)
			}
			client := redis.NewClient(opts)
			defer client.Close()

			cache := &repo.ScopeCache{Client: client, Logger: c.logger}
			if err := cache.Invalidate(cmd.Context(), ids...); err != nil {
				return err
			}
			c.logger.Info().Ints64("coupon_ids", ids).Msg("scope cache invalidated")
			return nil
		},
	}
	invalidate.Flags().StringVar(&redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL")

	cmd := &cobra.Command{Use: "cache", Short: "Manage the coupon scope cache"}
	cmd.AddCommand(invalidate)
	return cmd
}
