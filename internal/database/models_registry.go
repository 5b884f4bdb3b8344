package database

import "campusfind/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Notification{},
		&models.Post{},
		&models.PostImage{},
		&models.Like{},
		&models.Contact{},
		&models.ContactReply{},
	}
}
