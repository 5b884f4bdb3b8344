package repository

import (
	"campusfind/internal/database"

	"gorm.io/gorm"
)

// readDB routes read-only queries to the replica when one is configured.
// Feed browsing dominates traffic, so listings and lookups go there while
// every write stays on the primary.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}
