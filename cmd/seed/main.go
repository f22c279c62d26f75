package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/depot-replenishment/internal/repository/postgres"
	"github.com/andresuchdata/depot-replenishment/pkg/logger"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Usage:    usage,
		Required: true,
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Migrate the reference database and import sourcing and depot article tables",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending schema migrations",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "sourcing",
				Usage: "Import the article sourcing table (columns: Article, Sourcing)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newFileFlag("Sourcing workbook or CSV"),
				},
				Before: initDB,
				After:  closeDB,
				Action: runSourcing,
			},
			{
				Name:  "depot-articles",
				Usage: "Import the depot article lists (columns: Depot, Article)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newFileFlag("Depot article workbook or CSV"),
					&cli.BoolFlag{
						Name:  "enable",
						Usage: "Turn the depot article restriction on after the import",
						Value: true,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runDepotArticles,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runMigrate(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Log.Info().Msg("migrations applied")
	return nil
}

func runSourcing(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	entries, err := readSourcingFile(path)
	if err != nil {
		return err
	}

	repo := postgres.NewImportRepository(db)
	for _, e := range entries {
		if err := repo.UpsertSourcingArticle(c.Context, e.Article, e.Tier); err != nil {
			return err
		}
	}

	logger.Log.Info().Str("file", path).Int("articles", len(entries)).Msg("sourcing table imported")
	return nil
}

func runDepotArticles(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	pairs, err := readDepotArticleFile(path)
	if err != nil {
		return err
	}

	repo := postgres.NewImportRepository(db)
	for _, p := range pairs {
		if err := repo.UpsertDepotArticle(c.Context, p.Depot, p.Article); err != nil {
			return err
		}
	}
	if err := repo.SetDepotArticlesEnabled(c.Context, c.Bool("enable")); err != nil {
		return err
	}

	logger.Log.Info().
		Str("file", path).
		Int("pairs", len(pairs)).
		Bool("enabled", c.Bool("enable")).
		Msg("depot articles imported")
	return nil
}
