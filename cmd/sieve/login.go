// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sieve/internal/auth"
	"github.com/pdiddy/sieve/internal/identity"
	"github.com/pdiddy/sieve/internal/logging"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with ORCID",
	Long: `Login runs the ORCID OAuth authorization code flow. "login url"
prints the sign-in URL; after approving, pass the code from the redirect to
"login exchange" to learn your ORCID id and whether you may curate.

Client credentials come from identity.client_id and identity.client_secret
or from .secrets/orcid-client-id and .secrets/orcid-client-secret.`,
}

var loginURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the ORCID sign-in URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := identityClient()
		if err != nil {
			return err
		}
		state, _ := cmd.Flags().GetString("state")
		if state == "" {
			state = uuid.NewString()
		}
		fmt.Println(client.AuthCodeURL(state))
		fmt.Fprintf(os.Stderr, "state: %s\n", state)
		return nil
	},
}

var loginExchangeCmd = &cobra.Command{
	Use:   "exchange <code>",
	Short: "Exchange an authorization code for your ORCID identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, log, err := identityClient()
		if err != nil {
			return err
		}
		defer log.Sync()

		ident, err := client.Exchange(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s %s\n", ident.ORCID, ident.Name)

		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		allow := auth.NewAllowList(cfg.Auth, log)
		role, ok := allow.Role(ident.ORCID)
		if !ok {
			fmt.Printf("%s is not on the curator allow-list (%s)\n", ident.ORCID, allow.Path())
			return nil
		}
		fmt.Printf("authorized as %s; use --as %s or set SIEVE_CURATOR\n", role, ident.ORCID)
		return nil
	},
}

func identityClient() (*identity.Client, *logging.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, err
	}
	client, err := identity.New(cfg.Identity, log)
	if err != nil {
		return nil, nil, err
	}
	return client, log, nil
}

func init() {
	loginURLCmd.Flags().String("state", "", "OAuth state value (default random)")

	loginCmd.AddCommand(loginURLCmd)
	loginCmd.AddCommand(loginExchangeCmd)
	rootCmd.AddCommand(loginCmd)
}
