// Command migrate manages the campusfind database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"campusfind/internal/config"
	"campusfind/internal/database"

	"gorm.io/gorm"
)

const usageText = "usage: go run ./cmd/migrate/main.go <up|auto|status|down> [version]"

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal(usageText)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	ctx := context.Background()
	switch cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0))); cmd {
	case "up":
		err = runUp(ctx, db)
	case "auto":
		err = runAuto(ctx, db, cfg)
	case "status":
		err = runStatus(ctx, db, cfg)
	case "down":
		err = runDown(ctx, db, flag.Arg(1))
	default:
		err = fmt.Errorf("unknown command %q\n%s", cmd, usageText)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runUp(ctx context.Context, db *gorm.DB) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	log.Println("sql migrations applied")
	return nil
}

func runAuto(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	log.Println("automigrations applied")
	return nil
}

func runStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %06d_%s", m.Version, m.Name)
	}
	return nil
}

func runDown(ctx context.Context, db *gorm.DB, arg string) error {
	if arg == "" {
		return fmt.Errorf("usage: go run ./cmd/migrate/main.go down <version>")
	}
	version, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", arg, err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back migration %d", version)
	return nil
}
