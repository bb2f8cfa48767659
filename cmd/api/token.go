package main

import (
	"errors"
	"fmt"
	"time"

	"VISO_Collective/internal/config"
	"VISO_Collective/internal/pkg"

	"github.com/spf13/cobra"
)

type tokenOptions struct {
	subject string
	name    string
	ttl     time.Duration
}

// 本地调试用，签发与身份服务同格式的令牌
func newTokenCommand(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development identity token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.subject == "" {
				return errors.New("--sub is required")
			}
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			tokens, err := pkg.NewIdentityTokens(cfg.Auth.Secret)
			if err != nil {
				return err
			}
			raw, err := tokens.Mint(opts.subject, opts.name, opts.ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.subject, "sub", "", "user id")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", pkg.DevTokenTTL, "token lifetime")
	return cmd
}
