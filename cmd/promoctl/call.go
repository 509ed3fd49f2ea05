package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-promo/internal/discount"
)

type callOptions struct {
	token     tokenOptions
	baseURL   string
	orderFile string
	couponIDs []int64
	timeout   time.Duration
}

func (c *cli) callCmd() *cobra.Command {
	opts := &callOptions{}
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Resolve an order through a running API",
		Long: `call signs a token for --user and posts the order to the API. Without
--coupon-ids it asks for the available combinations; with them it asks for the
discount of that coupon list.`,
		Example: "  promoctl call --url http://localhost:8080 --user 42 --order order.json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := opts.token.issue()
			if err != nil {
				return err
			}
			var lines []discount.OrderLine
			if err := readJSON(opts.orderFile, &lines); err != nil {
				return err
			}

			path := "/api/v1/user-coupons/available"
			var payload any = lines
			if len(opts.couponIDs) > 0 {
				path = "/api/v1/user-coupons/discount"
				payload = map[string]any{"couponIds": opts.couponIDs, "courses": lines}
			}
			body, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, strings.TrimRight(opts.baseURL, "/")+path, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			client := &http.Client{
				Timeout:   opts.timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("call %s: %w", path, err)
			}
			defer resp.Body.Close()

			c.logger.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("api responded")
			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
				return err
			}
			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("call %s: status %d", path, resp.StatusCode)
			}
			return nil
		},
	}
	opts.token.register(cmd)
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&opts.orderFile, "order", "", "JSON array of order lines")
	cmd.Flags().Int64SliceVar(&opts.couponIDs, "coupon-ids", nil, "calculate this coupon list in order")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}
