package database

import (
	"fmt"

	"gorm.io/gorm"

	"survey-backend/models"
)

// Migrate applies idempotent schema migrations:
// - AutoMigrate (tables, columns, index and check tags)
// - verifies the unique indexes the write path depends on
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Survey{},
			&models.Question{},
			&models.Department{},
			&models.Response{},
			&models.ResponseItem{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		required := []struct {
			model any
			name  string
		}{
			{&models.Response{}, "idx_responses_survey_employee"},
			{&models.ResponseItem{}, "idx_response_items_response_question"},
			{&models.IdempotencyKey{}, "idx_idempotency_keys_key"},
		}
		for _, ix := range required {
			if !tx.Migrator().HasIndex(ix.model, ix.name) {
				if err := tx.Migrator().CreateIndex(ix.model, ix.name); err != nil {
					return fmt.Errorf("index migration failed on %s: %w", ix.name, err)
				}
			}
		}
		return nil
	})
}
