package model

import "gorm.io/gorm"

// AllModels returns every persisted model in migration order. Referenced
// tables come before the tables that point at them.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&FriendRequest{},
		&FriendBlock{},
		&ChatMessage{},
		&AuditLog{},
	}
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
