package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Response is the header row of one respondent's submission.
// (survey_id, employee_id) is unique: the database decides duplicates.
type Response struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	SurveyID     string         `json:"survey_id" gorm:"size:36;not null;uniqueIndex:idx_responses_survey_employee,priority:1"`
	Survey       *Survey        `json:"-" gorm:"foreignKey:SurveyID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	EmployeeID   string         `json:"employee_id" gorm:"size:128;not null;uniqueIndex:idx_responses_survey_employee,priority:2"`
	DepartmentID *string        `json:"department_id" gorm:"size:36"`
	AnsweredAt   time.Time      `json:"answered_at" gorm:"not null;index"`
	Items        []ResponseItem `json:"items,omitempty" gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE"`
}

func (response *Response) BeforeCreate(tx *gorm.DB) (err error) {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	return
}

// ResponseItem is one scored answer. It never exists without its Response.
type ResponseItem struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	ResponseID   string `json:"-" gorm:"size:36;not null;uniqueIndex:idx_response_items_response_question,priority:1"`
	QuestionCode string `json:"question_code" gorm:"size:32;not null;uniqueIndex:idx_response_items_response_question,priority:2"`
	RawScore     int    `json:"raw_score" gorm:"not null;check:chk_response_items_raw_score,raw_score >= 1 AND raw_score <= 6"`
	ScoredScore  int    `json:"scored_score" gorm:"not null"`
}
