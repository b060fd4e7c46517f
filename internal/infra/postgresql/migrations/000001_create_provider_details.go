package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"gorm.io/gorm"
)

func createProviderDetailsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_provider_details",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ProviderDetailsModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_provider_details_type_active_priority ON provider_details (notification_type, active, priority)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ProviderDetailsModel{})
		},
	}
}
