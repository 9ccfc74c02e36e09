package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task status values.
const (
	TaskStatusPending   = "pending"
	TaskStatusEvaluated = "evaluated"
	TaskStatusError     = "error"
)

// Task is a coding assignment submitted by a user for AI evaluation.
type Task struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:36;not null;index" json:"user_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	CodeSubmission string    `gorm:"type:text" json:"code_submission"`
	CodeURL        string    `gorm:"size:2048" json:"code_url"`
	RepoURL        string    `gorm:"size:2048" json:"repo_url"`
	Status         string    `gorm:"size:32;not null;default:pending" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	return nil
}

// OwnedBy reports whether the task belongs to the given user.
func (t Task) OwnedBy(userID string) bool {
	return userID != "" && t.UserID == userID
}
