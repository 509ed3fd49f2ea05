package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/repo"
)

type solveOptions struct {
	couponsFile string
	scopesFile  string
	orderFile   string
	couponIDs   []int64
	workers     int
	queue       int
	deadline    time.Duration
	maxCoupons  int
}

type calculateOutput struct {
	IDs            []int64          `json:"ids"`
	Rules          []string         `json:"rules"`
	DiscountAmount int64            `json:"discountAmount"`
	Details        map[string]int64 `json:"details"`
}

func (c *cli) solveCmd() *cobra.Command {
	var opts solveOptions

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Resolve an order against coupon files without a database",
		Long: `solve loads coupons, optional coupon scopes and order lines from JSON files
and prints the best coupon combinations. With --coupon-ids it prints the
discount and per-line breakdown for that exact coupon list instead.`,
		Example: `  promoctl solve --coupons coupons.json --scopes scopes.json --order order.json
  promoctl solve --coupons coupons.json --order order.json --coupon-ids 3,1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := &repo.MemoryStore{}
			if err := readJSON(opts.couponsFile, &store.Coupons); err != nil {
				return err
			}
			if opts.scopesFile != "" {
				if err := readJSON(opts.scopesFile, &store.Scopes); err != nil {
					return err
				}
			}
			var lines []discount.OrderLine
			if err := readJSON(opts.orderFile, &lines); err != nil {
				return err
			}

			solver, err := discount.NewSolver(discount.SolverConfig{
				Coupons:    store,
				Scopes:     store,
				Pool:       discount.NewPool(opts.workers, opts.queue),
				Deadline:   opts.deadline,
				MaxCoupons: opts.maxCoupons,
				Logger:     &c.logger,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if len(opts.couponIDs) > 0 {
				sol, err := solver.Calculate(cmd.Context(), 0, opts.couponIDs, lines)
				if err != nil {
					return err
				}
				details := make(map[string]int64, len(sol.Details))
				for id, amount := range sol.Details {
					details[strconv.FormatInt(id, 10)] = amount
				}
				return enc.Encode(calculateOutput{IDs: sol.IDs, Rules: sol.Rules, DiscountAmount: sol.DiscountAmount, Details: details})
			}

			solutions, err := solver.Resolve(cmd.Context(), 0, lines)
			if err != nil {
				return err
			}
			return enc.Encode(solutions)
		},
	}
	cmd.Flags().StringVar(&opts.couponsFile, "coupons", "", "JSON array of coupons")
	cmd.Flags().StringVar(&opts.scopesFile, "scopes", "", "JSON object mapping coupon id to biz ids")
	cmd.Flags().StringVar(&opts.orderFile, "order", "", "JSON array of order lines")
	cmd.Flags().Int64SliceVar(&opts.couponIDs, "coupon-ids", nil, "calculate this coupon list in order")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "evaluation workers")
	cmd.Flags().IntVar(&opts.queue, "queue", 999, "evaluation backlog")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 2*time.Second, "evaluation deadline")
	cmd.Flags().IntVar(&opts.maxCoupons, "max-coupons", 5, "coupons combined at most")
	_ = cmd.MarkFlagRequired("coupons")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
