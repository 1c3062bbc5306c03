package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type QuizGroupService struct {
	Repo *repository.QuizGroupRepository
}

func NewQuizGroupService(repo *repository.QuizGroupRepository) *QuizGroupService {
	return &QuizGroupService{Repo: repo}
}

type QuizGroupRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type QuizQuestionRequest struct {
	QuestionType model.QuestionType `json:"questionType" binding:"required"`
	Content      string             `json:"content" binding:"required"`
	Options      json.RawMessage    `json:"options"`
	Answer       string             `json:"answer"`
	Explanation  string             `json:"explanation"`
	Order        int                `json:"order"`
}

func (s *QuizGroupService) CreateGroup(creatorID uint, req QuizGroupRequest) (*model.QuizGroup, error) {
	group := &model.QuizGroup{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   creatorID,
	}
	if err := s.Repo.CreateGroup(group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *QuizGroupService) GetGroup(id uint) (*model.QuizGroup, []model.QuizQuestion, error) {
	group, err := s.Repo.FindGroupByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrQuizGroupNotFound
		}
		return nil, nil, err
	}
	qs, err := s.Repo.ListQuestions(id)
	return group, qs, err
}

func (s *QuizGroupService) AddQuestion(groupID uint, req QuizQuestionRequest) (*model.QuizQuestion, error) {
	if _, err := s.Repo.FindGroupByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizGroupNotFound
		}
		return nil, err
	}

	switch req.QuestionType {
	case model.MultipleChoice:
		if req.Answer == "" {
			return nil, fmt.Errorf("%w: multiple choice question needs a stored correct option", util.ErrInvalidQuestion)
		}
	case model.OpenEnded:
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", util.ErrInvalidQuestion, req.QuestionType)
	}

	q := &model.QuizQuestion{
		QuizGroupID:  groupID,
		QuestionType: req.QuestionType,
		Content:      req.Content,
		Options:      req.Options,
		Answer:       req.Answer,
		Explanation:  req.Explanation,
		Order:        req.Order,
	}
	if err := s.Repo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizGroupService) UpdateQuestion(id uint, req QuizQuestionRequest) (*model.QuizQuestion, error) {
	q, err := s.Repo.FindQuestionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	switch req.QuestionType {
	case model.MultipleChoice:
		if req.Answer == "" {
			return nil, fmt.Errorf("%w: multiple choice question needs a stored correct option", util.ErrInvalidQuestion)
		}
	case model.OpenEnded:
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", util.ErrInvalidQuestion, req.QuestionType)
	}

	q.QuestionType = req.QuestionType
	q.Content = req.Content
	q.Options = req.Options
	q.Answer = req.Answer
	q.Explanation = req.Explanation
	q.Order = req.Order

	if err := s.Repo.UpdateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizGroupService) DeleteQuestion(id uint) error {
	return s.Repo.DeleteQuestion(id)
}
