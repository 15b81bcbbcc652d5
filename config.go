/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var drivers = []string{"memory", "sqlite", "postgres"}

type Config struct {
	activeDares    int
	adminPassword  string
	bind           string
	clues          bool
	dbDriver       string
	dbURL          string
	localState     string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if !slices.Contains(drivers, c.dbDriver) {
		return fmt.Errorf("invalid database driver (must be one of %s): %s", strings.Join(drivers, ", "), c.dbDriver)
	}
	if c.dbDriver != "memory" && c.dbURL == "" {
		return fmt.Errorf("--db-url is required with --db-driver %s", c.dbDriver)
	}
	if c.activeDares < 1 {
		return fmt.Errorf("invalid active dare count (must be at least 1): %d", c.activeDares)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WATERROCK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "waterrock",
		Short:         "Dares, riddles and clues for a party, with a live admin console.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVar(&cfg.activeDares, "active-dares", 3, "number of dares shown to each player at once (env: WATERROCK_ACTIVE_DARES)")
	fs.StringVar(&cfg.adminPassword, "admin-password", "", "create or update the admin user with this password on startup (env: WATERROCK_ADMIN_PASSWORD)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WATERROCK_BIND)")
	fs.BoolVar(&cfg.clues, "clues", false, "run the clue hunt instead of the riddle sequence (env: WATERROCK_CLUES)")
	fs.StringVar(&cfg.dbDriver, "db-driver", "memory", "shared store backend: memory, sqlite or postgres (env: WATERROCK_DB_DRIVER)")
	fs.StringVar(&cfg.dbURL, "db-url", "", "sqlite path or postgres connection string (env: WATERROCK_DB_URL)")
	fs.StringVar(&cfg.localState, "local-state", "", "json file holding local fallback state (env: WATERROCK_LOCAL_STATE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WATERROCK_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WATERROCK_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WATERROCK_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 12*time.Hour, "time before idle logins expire (env: WATERROCK_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WATERROCK_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WATERROCK_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WATERROCK_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WATERROCK_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("waterrock v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
