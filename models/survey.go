package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Survey lifecycle states. A survey row may also carry no status at all.
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Survey is one round of data collection, addressed by its unique code.
type Survey struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Code      string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string     `json:"name" gorm:"not null"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Status    *string    `json:"status" gorm:"size:16"`
	CreatedAt time.Time  `json:"created_at"`
}

func (survey *Survey) BeforeCreate(tx *gorm.DB) (err error) {
	if survey.ID == "" {
		survey.ID = uuid.NewString()
	}
	return
}

// Question is read by the form renderer; the write path only needs the active codes.
type Question struct {
	QuestionCode string `json:"question_code" gorm:"primaryKey;size:32"`
	Scale        string `json:"scale" gorm:"size:8;not null;index"`
	QuestionText string `json:"question_text" gorm:"not null"`
	DisplayOrder int    `json:"display_order" gorm:"not null"`
	IsActive     bool   `json:"is_active" gorm:"not null;index"`
}

type Department struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	Name      string `json:"name" gorm:"not null"`
	SortOrder int    `json:"sort_order" gorm:"not null"`
	IsActive  bool   `json:"is_active" gorm:"not null"`
}

func (department *Department) BeforeCreate(tx *gorm.DB) (err error) {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	return
}
