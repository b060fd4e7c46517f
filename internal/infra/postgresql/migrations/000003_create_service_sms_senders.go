package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"gorm.io/gorm"
)

func createServiceSmsSendersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_service_sms_senders",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ServiceSmsSenderModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_service_sms_senders_one_default ON service_sms_senders (service_id) WHERE is_default AND NOT archived`,
				`CREATE INDEX IF NOT EXISTS idx_service_sms_senders_service_number ON service_sms_senders (service_id, sms_sender) WHERE NOT archived`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ServiceSmsSenderModel{})
		},
	}
}
