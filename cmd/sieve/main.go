// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sieve CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sieve/internal/auth"
	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/internal/metrics"
	"github.com/pdiddy/sieve/internal/secrets"
	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the sieve CLI.
var rootCmd = &cobra.Command{
	Use:   "sieve",
	Short: "Evidence-weighted curation of ontology assertions",
	Long: `sieve loads candidate ontology assertions with their evidence, scores
them with the Net Evidence Ratio, records curator decisions in an
append-only ledger, and exports accepted assertions as attributed claims.

Typical flow: ingest the inbox, list the review queue, show a record,
decide on it, and export what was accepted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sieve.yaml or ~/.config/sieve/sieve.yaml)")
	rootCmd.PersistentFlags().String("db", "", "curation database path (overrides store.path)")
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sieve")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sieve"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("SIEVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment variables such as
// SIEVE_STORE_PATH are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("ingest.inbox", d.Ingest.Inbox)
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.format", string(d.Export.Format))
	v.SetDefault("export.provenance", d.Export.Provenance)
	v.SetDefault("export.prefixes", map[string]string{})
	v.SetDefault("auth.curators_file", d.Auth.CuratorsFile)
	v.SetDefault("auth.cache_ttl", d.Auth.CacheTTL)
	v.SetDefault("identity.client_id", "")
	v.SetDefault("identity.client_secret", "")
	v.SetDefault("identity.redirect_url", d.Identity.RedirectURL)
	v.SetDefault("identity.sandbox", d.Identity.Sandbox)
	v.SetDefault("identity.max_retries", d.Identity.MaxRetries)
	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("curator", "")
}

// loadConfig decodes the merged settings and fills ORCID credentials from
// .secrets/ when config and environment leave them empty.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	secrets.ApplyIdentity(&cfg.Identity, loadedSecrets)
	return cfg, nil
}

// env bundles what most commands need.
type env struct {
	cfg     types.Config
	log     *logging.Logger
	metrics *metrics.Metrics
	store   *store.Store
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
	e.log.Sync()
}

func openEnv() (*env, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	s, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, metrics: metrics.New(), store: s}, nil
}

func (e *env) allowList() *auth.AllowList {
	return auth.NewAllowList(e.cfg.Auth, e.log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
