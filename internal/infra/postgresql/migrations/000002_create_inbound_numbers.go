package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"gorm.io/gorm"
)

func createInboundNumbersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_inbound_numbers",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.InboundNumberModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_inbound_numbers_available ON inbound_numbers (id) WHERE active AND service_id IS NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.InboundNumberModel{})
		},
	}
}
