package repository

import (
	"anchor_gate_backend/internal/model"

	"gorm.io/gorm"
)

type QuizGroupRepository struct {
	DB *gorm.DB
}

func NewQuizGroupRepository(db *gorm.DB) *QuizGroupRepository {
	return &QuizGroupRepository{DB: db}
}

func (r *QuizGroupRepository) CreateGroup(group *model.QuizGroup) error {
	return r.DB.Create(group).Error
}

func (r *QuizGroupRepository) FindGroupByID(id uint) (*model.QuizGroup, error) {
	var g model.QuizGroup
	if err := r.DB.First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *QuizGroupRepository) CreateQuestion(q *model.QuizQuestion) error {
	return r.DB.Create(q).Error
}

func (r *QuizGroupRepository) FindQuestionByID(id uint) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizGroupRepository) UpdateQuestion(q *model.QuizQuestion) error {
	return r.DB.Save(q).Error
}

func (r *QuizGroupRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.QuizQuestion{}, id).Error
}

func (r *QuizGroupRepository) ListQuestions(groupID uint) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	err := r.DB.Where("quiz_group_id = ?", groupID).
		Order("`order` ASC, id ASC").
		Find(&qs).Error
	return qs, err
}
