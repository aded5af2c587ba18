package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crowdgov/internal/config"
	"crowdgov/internal/domain"
	"crowdgov/internal/service/auth"
	"crowdgov/pkg/database"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fundctl",
		Short:         "Operations tool for the crowdgov service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newMigrateCmd(), newTokenCmd(), newConfigCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the event journal schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to $DATABASE_URL)")

	run := func(apply func(context.Context, database.Executor) error, done string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			url := databaseURL
			if url == "" {
				url = os.Getenv("DATABASE_URL")
			}
			if url == "" {
				return errors.New("DATABASE_URL is not set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			conn, err := pgx.Connect(ctx, url)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer conn.Close(ctx)

			if err := apply(ctx, conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create the journal tables",
			Args:  cobra.NoArgs,
			RunE:  run(database.Migrate, "✅ Journal tables created successfully"),
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop the journal tables",
			Args:  cobra.NoArgs,
			RunE:  run(database.Drop, "✅ Journal tables dropped successfully"),
		},
	)
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		principal string
		secret    string
		ttl       time.Duration
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a principal (development only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewService(secret, nil).IssueToken(domain.Principal(principal), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&principal, "principal", "", "principal to put in the token subject")
	issue.Flags().StringVar(&secret, "secret", "", "HMAC secret (defaults to $JWT_SECRET)")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("principal")

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}
	cmd.AddCommand(issue)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect service configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate configuration from the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "admin:        %s\n", cfg.AdminPrincipal)
			fmt.Fprintf(out, "escrow:       %s\n", cfg.EscrowPrincipal)
			fmt.Fprintf(out, "claim policy: %s (threshold %d%%)\n", cfg.ClaimPolicy, cfg.ApprovalThreshold)
			fmt.Fprintf(out, "redis:        %t\n", cfg.RedisURL != "")
			fmt.Fprintf(out, "journal:      %t\n", cfg.DatabaseURL != "")
			fmt.Fprintln(out, "✅ Configuration is valid")
			return nil
		},
	})
	return cmd
}
