package database

import (
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"campusfind/internal/middleware"
)

// Migration is one versioned schema change, loaded from the embedded
// migrations directory. Files pair up as NNNNNN_name.up.sql / .down.sql.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

func init() {
	loaded, err := loadMigrations(migrationFS)
	if err != nil {
		// Reported at startup; RunMigrations will then apply nothing.
		fmt.Printf("failed to load embedded migrations: %v\n", err)
		return
	}
	migrations = loaded
}

func loadMigrations(efs embed.FS) ([]Migration, error) {
	entries, err := efs.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), ".up.sql")
		versionRaw, name, ok := strings.Cut(base, "_")
		if !ok {
			middleware.Logger.Warn("Skipping migration with invalid file name", slog.String("file", entry.Name()))
			continue
		}
		version, err := strconv.Atoi(versionRaw)
		if err != nil {
			middleware.Logger.Warn("Skipping migration with non-numeric version", slog.String("file", entry.Name()))
			continue
		}

		up, err := efs.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read up migration %s: %w", entry.Name(), err)
		}
		down, err := efs.ReadFile("migrations/" + base + ".down.sql")
		if err != nil {
			return nil, fmt.Errorf("read down migration for %s: %w", base, err)
		}

		out = append(out, Migration{
			Version:    version,
			Name:       name,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func findMigration(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			return &migrations[i]
		}
	}
	return nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
