package repository

import (
	"anchor_gate_backend/internal/model"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create relies on the unique (student_id, anchor_tag_id, attempt_number)
// index; callers retry on gorm.ErrDuplicatedKey.
func (r *AttemptRepository) Create(attempt *model.AnchorAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.AnchorAttempt, error) {
	var a model.AnchorAttempt
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindInProgress(studentID, tagID uint) (*model.AnchorAttempt, error) {
	var a model.AnchorAttempt
	err := r.DB.Where("student_id = ? AND anchor_tag_id = ? AND status = ?",
		studentID, tagID, model.AttemptInProgress).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) MaxAttemptNumber(studentID, tagID uint) (int, error) {
	var max sql.NullInt64
	err := r.DB.Model(&model.AnchorAttempt{}).
		Where("student_id = ? AND anchor_tag_id = ?", studentID, tagID).
		Select("MAX(attempt_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// Close performs the guarded IN_PROGRESS -> terminal transition. The status
// predicate in the WHERE clause makes the update a no-op on attempts that are
// already terminal; RowsAffected == 0 signals that to the caller.
func (r *AttemptRepository) Close(id uint, status model.AttemptStatus, isCorrect bool, score float64, completedAt time.Time) (bool, error) {
	res := r.DB.Model(&model.AnchorAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       status,
			"is_correct":   isCorrect,
			"score":        score,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AttemptRepository) History(studentID, tagID uint) ([]model.AnchorAttempt, error) {
	var attempts []model.AnchorAttempt
	err := r.DB.Where("student_id = ? AND anchor_tag_id = ?", studentID, tagID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) LatestByTags(studentID uint, tagIDs []uint) (map[uint]*model.AnchorAttempt, error) {
	if len(tagIDs) == 0 {
		return map[uint]*model.AnchorAttempt{}, nil
	}

	var attempts []model.AnchorAttempt
	err := r.DB.Where("student_id = ? AND anchor_tag_id IN ?", studentID, tagIDs).
		Order("attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[uint]*model.AnchorAttempt, len(tagIDs))
	for i := range attempts {
		a := &attempts[i]
		if prev, ok := latest[a.AnchorTagID]; !ok || a.AttemptNumber > prev.AttemptNumber {
			latest[a.AnchorTagID] = a
		}
	}
	return latest, nil
}

func (r *AttemptRepository) FindStaleInProgress(before time.Time) ([]model.AnchorAttempt, error) {
	var attempts []model.AnchorAttempt
	err := r.DB.Where("status = ? AND started_at < ?", model.AttemptInProgress, before).
		Find(&attempts).Error
	return attempts, err
}
