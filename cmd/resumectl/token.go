package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-feedback/internal/shared/auth"
)

var tokenOpts struct {
	sub  string
	name string
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env)
		if err != nil {
			return err
		}
		token, err := signer.Sign(auth.Claims{Sub: tokenOpts.sub, Name: tokenOpts.name})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOpts.sub, "sub", "", "subject (user id)")
	tokenCmd.Flags().StringVar(&tokenOpts.name, "name", "", "display name")
	_ = tokenCmd.MarkFlagRequired("sub")
}
