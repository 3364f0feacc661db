package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	source string
	log    *logger.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply CourseFox schema migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env.SetupEnvFile()
			log, err := logger.New(env.GetEnv("APP_ENV", "prod"))
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.source, "source", "file://migrations", "migration source URL")

	cmd.AddCommand(
		newUpCommand(opts),
		newDownCommand(opts),
		newGotoCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

// open builds a migrator from the database settings only; the server's secrets are not
// required to migrate.
func (o *rootOptions) open() (*migrate.Migrate, func(), error) {
	cfg, err := env.Read()
	if err != nil {
		return nil, nil, err
	}
	o.log.Info("connecting to database", "driver", cfg.DBDriver, "host", cfg.DBHost, "port", cfg.DBPort, "database", cfg.DBName)

	m, err := migrate.New(o.source, cfg.MigrationURL())
	if err != nil {
		return nil, nil, fmt.Errorf("init migration: %w", err)
	}
	closer := func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			o.log.Warn("closing migration resources failed", "source_error", sourceErr, "db_error", dbErr)
		}
	}
	return m, closer, nil
}

func newUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := opts.open()
			if err != nil {
				return err
			}
			defer closer()

			err = m.Up()
			switch {
			case errors.Is(err, migrate.ErrNoChange):
				opts.log.Info("database already up to date")
			case err != nil:
				return fmt.Errorf("apply migrations: %w", err)
			default:
				opts.log.Info("migrations applied")
			}
			return nil
		},
	}
}

func newDownCommand(opts *rootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1")
			}
			m, closer, err := opts.open()
			if err != nil {
				return err
			}
			defer closer()

			if err := m.Steps(-steps); err != nil {
				return fmt.Errorf("roll back %d migration(s): %w", steps, err)
			}
			opts.log.Info("migrations rolled back", "steps", steps)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newGotoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "goto VERSION",
		Short: "Migrate up or down to VERSION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			m, closer, err := opts.open()
			if err != nil {
				return err
			}
			defer closer()

			err = m.Migrate(uint(version))
			switch {
			case errors.Is(err, migrate.ErrNoChange):
				opts.log.Info("database already at version", "version", version)
			case err != nil:
				return fmt.Errorf("migrate to version %d: %w", version, err)
			default:
				opts.log.Info("migrated", "version", version)
			}
			return nil
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := opts.open()
			if err != nil {
				return err
			}
			defer closer()

			version, dirty, err := m.Version()
			switch {
			case errors.Is(err, migrate.ErrNilVersion):
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied yet")
			case err != nil:
				return fmt.Errorf("read migration version: %w", err)
			default:
				state := ""
				if dirty {
					state = " (dirty)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d%s\n", version, state)
			}
			return nil
		},
	}
}
