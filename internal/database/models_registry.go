package database

import "github.com/SreeragSreekanth/Blogplatform/internal/models"

// PersistentModels returns every schema-managed model in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
		&models.Notification{},
	}
}
