package model

import "encoding/json"

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	OpenEnded      QuestionType = "open_ended"
)

// swagger:model QuizGroup
type QuizGroup struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CreatedBy   uint   `gorm:"type:bigint unsigned" json:"createdBy"`
}

func (QuizGroup) TableName() string {
	return "quiz_groups"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizGroupID  uint            `gorm:"index;not null;type:bigint unsigned" json:"quizGroupId"`
	QuestionType QuestionType    `gorm:"size:30;not null" json:"questionType"` // multiple_choice, open_ended
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options"` // JSON: []string, multiple choice only
	Answer       string          `gorm:"type:text" json:"answer"`  // reference answer / correct option
	Explanation  string          `gorm:"type:text" json:"explanation"`
	Order        int             `gorm:"default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
