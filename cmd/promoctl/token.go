package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-promo/internal/auth"
)

type tokenOptions struct {
	secret string
	issuer string
	userID int64
	ttl    time.Duration
}

func (o *tokenOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().StringVar(&o.issuer, "issuer", os.Getenv("JWT_ISSUER"), "token issuer")
	cmd.Flags().Int64Var(&o.userID, "user", 1, "token subject")
	cmd.Flags().DurationVar(&o.ttl, "ttl", 15*time.Minute, "token lifetime")
}

func (o *tokenOptions) issue() (string, error) {
	if o.userID <= 0 {
		return "", errors.New("--user must be positive")
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{Secret: o.secret, Issuer: o.issuer})
	if err != nil {
		return "", err
	}
	return verifier.Issue(o.userID, o.ttl)
}

func (c *cli) tokenCmd() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a development access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := opts.issue()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	opts.register(cmd)
	return cmd
}
