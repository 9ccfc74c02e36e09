package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Evaluation captures the AI score and feedback produced for a task.
type Evaluation struct {
	ID               string            `gorm:"primaryKey;size:36" json:"id"`
	TaskID           string            `gorm:"size:36;not null;index" json:"task_id"`
	Model            string            `gorm:"size:64" json:"model"`
	ScoreOverall     int               `gorm:"not null" json:"score_overall"`
	Strengths        string            `gorm:"type:text" json:"strengths"`
	Improvements     string            `gorm:"type:text" json:"improvements"`
	DetailedFeedback string            `gorm:"type:text" json:"detailed_feedback"`
	RawResponse      datatypes.JSONMap `json:"raw_response"`
	CreatedAt        time.Time         `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (e *Evaluation) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
