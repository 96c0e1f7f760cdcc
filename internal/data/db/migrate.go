package db

import (
	"fmt"

	types "github.com/yungbote/truequecito-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Exchange lifecycle
		&types.Exchange{},
		&types.Notification{},

		// Catalog (read-only here, migrated so local and test databases have the tables)
		&types.Product{},
		&types.User{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// EnsurePostgresIndexes creates indexes gorm tags cannot express.
func EnsurePostgresIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_notification_user_unread
			ON notification (user_id, created_at DESC) WHERE read = false`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_completed_at
			ON exchange (completed_at DESC) WHERE status = 'completed'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}
