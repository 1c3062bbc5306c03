package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptFailed     AttemptStatus = "failed"
)

// AnchorAttempt is one student's numbered try at passing an anchor tag.
// The unique index on (student_id, anchor_tag_id, attempt_number) is the
// correctness backstop for concurrent allocation: two racing inserts for the
// same number cannot both land.
// swagger:model AnchorAttempt
type AnchorAttempt struct {
	BaseModel
	StudentID     uint          `gorm:"not null;uniqueIndex:idx_student_tag_number,priority:1;index:idx_student_status,priority:1;type:bigint unsigned" json:"studentId"`
	AnchorTagID   uint          `gorm:"not null;uniqueIndex:idx_student_tag_number,priority:2;index:idx_tag_status,priority:1;type:bigint unsigned" json:"anchorTagId"`
	AttemptNumber int           `gorm:"not null;uniqueIndex:idx_student_tag_number,priority:3" json:"attemptNumber"`
	Status        AttemptStatus `gorm:"size:20;not null;default:'in_progress';index:idx_student_status,priority:2;index:idx_tag_status,priority:2" json:"status"`
	StartedAt     time.Time     `gorm:"index" json:"startedAt"`
	CompletedAt   *time.Time    `gorm:"index" json:"completedAt,omitempty"`
	IsCorrect     *bool         `gorm:"index" json:"isCorrect,omitempty"`
	Score         *float64      `json:"score,omitempty"`
}

func (AnchorAttempt) TableName() string {
	return "anchor_attempts"
}

// Terminal reports whether the attempt has reached a final state. Terminal
// attempts are immutable.
func (a *AnchorAttempt) Terminal() bool {
	return a.Status == AttemptCompleted || a.Status == AttemptFailed
}
