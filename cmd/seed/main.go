package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"framekit/internal/config"
	"framekit/internal/repository"
	"framekit/internal/repository/postgres"
	"framekit/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't import fixtures")
	fixturePath := flag.String("fixture", "fixtures/demo.yaml", "YAML fixture with projects and resource trees")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, storage: %s)", cfg.Environment, cfg.Storage)
	} else {
		log.Printf("🌱 Seeding (environment: %s, storage: %s, fixture: %s)", cfg.Environment, cfg.Storage, *fixturePath)
	}

	ctx := context.Background()
	storage, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()

	if storage.Pool != nil {
		// Drop tables if requested
		if *dropTables {
			log.Println("🗑️  Dropping all tables...")
			if err := postgres.DropSchema(ctx, storage.Pool, storage.Tables); err != nil {
				log.Fatalf("Failed to drop tables: %v", err)
			}
			log.Println("✅ Tables dropped")
		}

		log.Println("📋 Ensuring database schema is up to date...")
		if err := postgres.EnsureSchema(ctx, storage.Pool, storage.Tables, cfg.TablePrefix); err != nil {
			log.Fatalf("Failed to run schema: %v", err)
		}
		log.Println("✅ Schema ready")
	} else if *dropTables {
		log.Println("⚠️  --drop-tables ignored for file storage")
	}

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	fixture, err := seed.LoadFixture(*fixturePath)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	seeder := seed.NewSeeder(storage.Projects, storage.Documents, storage.Tx, nil, logger)
	res, err := seeder.Import(ctx, fixture)
	if err != nil {
		log.Fatalf("❌ Seeding failed after %d projects: %v", res.Projects, err)
	}

	log.Printf("✅ Imported %d projects (%d replaced): %d folders, %d items",
		res.Projects, res.Replaced, res.Folders, res.Items)
	log.Println("🎉 Seeding complete!")
}
