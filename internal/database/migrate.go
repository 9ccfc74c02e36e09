package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/models"
)

// Migrate creates or updates the tasks, evaluations and payments tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Task{}, &models.Evaluation{}, &models.Payment{})
}
