package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	loadEnvFiles()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Manage the bookcatalog database schema."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}

func withDB(cli *CLI, fn func(db *sql.DB) error) error {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cli.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(db)
}

func (UpCmd) Run(cli *CLI) error {
	return withDB(cli, func(db *sql.DB) error {
		if err := goose.Up(db, cli.Dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println("Migrations applied successfully")
		return nil
	})
}

func (DownCmd) Run(cli *CLI) error {
	return withDB(cli, func(db *sql.DB) error {
		if err := goose.Down(db, cli.Dir); err != nil {
			return fmt.Errorf("failed to rollback migrations: %w", err)
		}
		fmt.Println("Migrations rolled back successfully")
		return nil
	})
}

func (StatusCmd) Run(cli *CLI) error {
	return withDB(cli, func(db *sql.DB) error {
		if err := goose.Status(db, cli.Dir); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		return nil
	})
}

func (c CreateCmd) Run(cli *CLI) error {
	if err := goose.Create(nil, cli.Dir, c.Name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	fmt.Printf("Migration created: %s\n", c.Name)
	return nil
}
