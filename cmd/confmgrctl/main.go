package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devopsevgeny/FinalProject/internal/auth"
)

var (
	flagServer string
	flagAPIKey string
	flagToken  string
	flagActor  string
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "confmgrctl",
		Short:         "Client for the config and secret service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagServer, "server", envOr("CONFMGR_SERVER", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", os.Getenv("CONFMGR_API_KEY"), "static API key credential")
	root.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("CONFMGR_TOKEN"), "bearer token credential")
	root.PersistentFlags().StringVar(&flagActor, "actor", "", "UUID recorded as the acting identity")

	root.AddCommand(configCmd(), secretCmd(), loginCmd(), whoamiCmd(), healthCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Read and write versioned config items"}

	var version int64
	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch the current (or a pinned) config version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().getItem(cmd.OutOrStdout(), "config", args[0], version, false)
		},
	}
	get.Flags().Int64Var(&version, "version", 0, "pin a specific version (0 = current)")

	var value string
	put := &cobra.Command{
		Use:   "put <path>",
		Short: "Write a config value (JSON; use @file or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readValueArg(value)
			if err != nil {
				return err
			}
			return newClient().putItem(cmd.OutOrStdout(), "config", args[0], raw)
		},
	}
	put.Flags().StringVar(&value, "value", "", "JSON payload")
	_ = put.MarkFlagRequired("value")

	cmd.AddCommand(get, put)
	return cmd
}

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "secret", Short: "Read and write versioned secrets"}

	var (
		version int64
		mask    bool
	)
	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch and decrypt the current (or a pinned) secret version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().getItem(cmd.OutOrStdout(), "secret", args[0], version, mask)
		},
	}
	get.Flags().Int64Var(&version, "version", 0, "pin a specific version (0 = current)")
	get.Flags().BoolVar(&mask, "mask", false, "redact sensitive fields in the output")

	var value string
	put := &cobra.Command{
		Use:   "put <path>",
		Short: "Encrypt and store a secret value (JSON; use @file or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readValueArg(value)
			if err != nil {
				return err
			}
			return newClient().putItem(cmd.OutOrStdout(), "secret", args[0], raw)
		},
	}
	put.Flags().StringVar(&value, "value", "", "JSON payload")
	_ = put.MarkFlagRequired("value")

	cmd.AddCommand(get, put)
	return cmd
}

func loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Exchange credentials for a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CONFMGR_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("password required (--password or CONFMGR_PASSWORD)")
			}
			return newClient().login(cmd.OutOrStdout(), args[0], password)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the principal the server resolves for this credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().get(cmd.OutOrStdout(), "/whoami")
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server and database health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().get(cmd.OutOrStdout(), "/health")
		},
	}
}

// tokenCmd works offline against the shared signing key, which makes it
// handy for provisioning service tokens without a user account.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Mint and inspect bearer tokens locally"}

	var (
		sub      string
		username string
		roles    []string
		ttl      time.Duration
	)
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint a token with the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv("JWT_SIGNING_KEY")
			if key == "" {
				return fmt.Errorf("JWT_SIGNING_KEY not set")
			}
			signer := auth.NewJWTSigner([]byte(key), envOr("JWT_ISSUER", "confmgr"), envOr("JWT_AUDIENCE", "confmgr"), ttl)
			tok, exp, err := signer.IssueToken(sub, username, "", roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	mint.Flags().StringVar(&sub, "sub", "", "subject claim")
	mint.Flags().StringVar(&username, "username", "", "username claim")
	mint.Flags().StringSliceVar(&roles, "roles", nil, "roles claim (e.g. CONFIG_ADMIN,SECRET_VIEWER)")
	mint.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = mint.MarkFlagRequired("sub")

	verify := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print the resolved principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv("JWT_SIGNING_KEY")
			if key == "" {
				return fmt.Errorf("JWT_SIGNING_KEY not set")
			}
			resolver, err := auth.NewTokenResolver(key, os.Getenv("JWT_ISSUER"), os.Getenv("JWT_AUDIENCE"))
			if err != nil {
				return err
			}
			p, err := resolver.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subject: %s\nissuer: %s\nroles: %s\nscopes: %s\n",
				p.Subject, p.Issuer, strings.Join(p.Roles, ","), strings.Join(p.Scopes, ","))
			return nil
		},
	}

	cmd.AddCommand(mint, verify)
	return cmd
}
