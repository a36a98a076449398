package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"opsdesk.org/internal/migrate"
)

var (
	dsnFlag = &cli.StringFlag{
		Name:    "dsn",
		Usage:   "PostgreSQL DSN",
		EnvVars: []string{"OPSDESK_DB_DSN"},
	}
	migrationsFlag = &cli.StringFlag{
		Name:  "migrations",
		Usage: "Path to SQL migrations",
		Value: "ops/migrations/sql",
	}
	seedsFlag = &cli.StringFlag{
		Name:  "seeds",
		Usage: "Path to SQL seeds",
		Value: "ops/migrations/seeds",
	}
)

func main() {
	log.SetFlags(0)

	app := &cli.App{
		Name:  "opsdesk-migrate",
		Usage: "Apply database migrations and seeds",
		Flags: []cli.Flag{dsnFlag, migrationsFlag, seedsFlag},
		Commands: []*cli.Command{
			{Name: "up", Usage: "Apply pending migrations", Action: run(doUp)},
			{Name: "down", Usage: "Roll back the last migration", Action: run(doDown)},
			{Name: "seed", Usage: "Apply seed files", Action: run(doSeed)},
			{Name: "status", Usage: "List applied migrations", Action: run(doStatus)},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(fn func(context.Context, *migrate.Manager) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		dsn := c.String(dsnFlag.Name)
		if dsn == "" {
			return cli.Exit("missing DSN: provide via --dsn or OPSDESK_DB_DSN", 1)
		}

		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
		defer cancel()

		mgr := migrate.NewManager(db, c.String(migrationsFlag.Name), c.String(seedsFlag.Name))
		return fn(ctx, mgr)
	}
}

func doUp(ctx context.Context, mgr *migrate.Manager) error   { return mgr.Up(ctx) }
func doDown(ctx context.Context, mgr *migrate.Manager) error { return mgr.Down(ctx) }
func doSeed(ctx context.Context, mgr *migrate.Manager) error { return mgr.Seed(ctx) }

func doStatus(ctx context.Context, mgr *migrate.Manager) error {
	history, err := mgr.Status(ctx)
	if err != nil {
		return err
	}
	for _, item := range history {
		fmt.Println(item)
	}
	return nil
}
