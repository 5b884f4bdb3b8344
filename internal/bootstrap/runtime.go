// Package bootstrap wires the shared runtime pieces used by every command:
// database, Redis, and the development root account.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"campusfind/internal/cache"
	"campusfind/internal/config"
	"campusfind/internal/database"
	"campusfind/internal/middleware"
	"campusfind/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects the database and Redis and ensures the development
// root admin exists. The Redis client may be nil when the server runs
// uncached.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("bootstrap development root admin: %w", err)
	}

	return db, cache.GetClient(), nil
}

// devRootCredentials applies defaults for the seeded account. The password
// has no default; a blank one would ship a known login.
func devRootCredentials(cfg *config.Config) (username, email, password string, err error) {
	username = strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "campusfind_root"
	}
	email = strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@campusfind.local"
	}
	password = cfg.DevRootPassword
	if password == "" {
		return "", "", "", fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	return username, email, password, nil
}

// ensureDevRootAdmin creates or repairs user ID 1 in development so the
// moderation queue always has at least one staff login.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username, email, password, err := devRootCredentials(cfg)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:       1,
				Username: username,
				Email:    email,
				Password: string(hashed),
				FullName: "Root Admin",
				Roles:    models.RoleList{models.RoleAdmin},
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			if !root.Roles.Has(models.RoleAdmin) {
				root.Roles = append(root.Roles, models.RoleAdmin)
			}
			if cfg.DevRootForceCredentials {
				root.Username = username
				root.Email = email
				root.Password = string(hashed)
			}
			if err := tx.Save(&root).Error; err != nil {
				return err
			}
		}

		// Inserting with an explicit ID leaves the sequence behind; the
		// next registration would collide. PostgreSQL only.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("reset users sequence: %w", err)
			}
		}

		return nil
	}); err != nil {
		return err
	}

	middleware.Logger.Info("Development root admin ensured",
		slog.Uint64("user_id", 1), slog.String("email", email))
	return nil
}
