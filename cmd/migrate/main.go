// Command migrate imports a legacy deployment's data into Postgres, either
// from length-prefixed BSON dump files or straight from a live MongoDB.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stridebet/stridebet/stridebet"
	"github.com/stridebet/stridebet/stridebet/database"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/stridebet/stridebet/stridebet/migration"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	dataDir := flag.String("data-dir", "", "directory holding BSON dump files")
	mongoURI := flag.String("mongo-uri", "", "migrate from a live MongoDB instead of dump files")
	mongoDB := flag.String("mongo-db", "stridebet", "source MongoDB database name")
	batchSize := flag.Int("batch", 1000, "rows per insert batch")
	sleepMs := flag.Int("sleep", 0, "milliseconds to sleep between batches")
	useCopy := flag.Bool("use-copy", false, "use COPY for stake import")
	flag.Parse()

	cfg, err := stridebet.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))

	if *dataDir == "" && *mongoURI == "" {
		slog.Error("Either -data-dir or -mongo-uri is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(1)
	}

	m := migration.NewMigrator(db.BunDB(), *dataDir)
	m.SetBatchSize(*batchSize)
	m.SetSleepBetween(*sleepMs)
	if *useCopy {
		m.SetUseCopy(true)
		m.UsePool(db.GetPool())
	}

	if *mongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
		if err != nil {
			slog.Error("MongoDB connection failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()
		m.UseMongo(client, *mongoDB)

		if err := m.MigrateAllFromMongo(ctx); err != nil {
			slog.Error("Migration failed", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		if err := m.MigrateAll(ctx); err != nil {
			slog.Error("Migration failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	slog.Info("Migration completed successfully")
}
