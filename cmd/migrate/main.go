package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v2"

	"socialapi/internal/config"
	"socialapi/internal/platform/postgres"
)

func main() {
	config.LoadEnvFiles()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "manage the socialapi database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres connection string",
				EnvVars: []string{"DB_DSN"},
				Value:   defaultDSN,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withDB(func(ctx context.Context, db *sql.DB, dir string) error {
					if err := goose.UpContext(ctx, db, dir); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					fmt.Println("Migrations applied successfully")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the latest migration",
				Action: withDB(func(ctx context.Context, db *sql.DB, dir string) error {
					if err := goose.DownContext(ctx, db, dir); err != nil {
						return fmt.Errorf("rollback migration: %w", err)
					}
					fmt.Println("Migration rolled back successfully")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print the state of every migration",
				Action: withDB(func(ctx context.Context, db *sql.DB, dir string) error {
					return goose.StatusContext(ctx, db, dir)
				}),
			},
			{
				Name:      "create",
				Usage:     "create a new SQL migration file",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return errors.New("name is required for 'create'")
					}
					if err := goose.Create(nil, sourceDir(), name, "sql"); err != nil {
						return fmt.Errorf("create migration: %w", err)
					}
					return nil
				},
			},
		},
	}
}

// withDB opens the database and points goose at the migration source
// before running fn.
func withDB(fn func(ctx context.Context, db *sql.DB, dir string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := c.Context
		pool, err := postgres.Open(ctx, c.String("dsn"))
		if err != nil {
			return err
		}
		defer pool.Close()

		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()

		fsys, dir := migrationsSource()
		goose.SetBaseFS(fsys)
		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}
		return fn(ctx, db, dir)
	}
}
