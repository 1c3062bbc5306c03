package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type AnchorTagService struct {
	Tags    *repository.AnchorTagRepository
	Quizzes *repository.QuizGroupRepository
}

func NewAnchorTagService(tags *repository.AnchorTagRepository, quizzes *repository.QuizGroupRepository) *AnchorTagService {
	return &AnchorTagService{Tags: tags, Quizzes: quizzes}
}

type AnchorTagRequest struct {
	ContentType model.ContentType `json:"contentType" binding:"required"`
	ContentRef  uint              `json:"contentRef" binding:"required"`
	IsMandatory *bool             `json:"isMandatory"`
	QuizGroupID *uint             `json:"quizGroupId"`
}

func (s *AnchorTagService) CreateTag(creatorID uint, req AnchorTagRequest) (*model.AnchorTag, error) {
	switch req.ContentType {
	case model.ContentModule, model.ContentChapter, model.ContentBibliography:
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidContentType, req.ContentType)
	}

	if req.QuizGroupID != nil {
		if _, err := s.Quizzes.FindGroupByID(*req.QuizGroupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrQuizGroupNotFound
			}
			return nil, err
		}
	}

	tag := &model.AnchorTag{
		ContentType: req.ContentType,
		ContentRef:  req.ContentRef,
		IsMandatory: true,
		QuizGroupID: req.QuizGroupID,
		Status:      model.TagActive,
		CreatedBy:   creatorID,
	}
	if req.IsMandatory != nil {
		tag.IsMandatory = *req.IsMandatory
	}

	if err := s.Tags.Create(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *AnchorTagService) GetTag(id uint) (*model.AnchorTag, error) {
	tag, err := s.Tags.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTagNotFound
		}
		return nil, err
	}
	return tag, nil
}

func (s *AnchorTagService) ListTags(page, limit int, mandatoryOnly bool) ([]model.AnchorTag, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Tags.List(page, limit, mandatoryOnly)
}

func (s *AnchorTagService) ListByContent(contentType model.ContentType, contentRef uint, includeDeleted bool) ([]model.AnchorTag, error) {
	if includeDeleted {
		return s.Tags.ListIncludingDeleted(contentType, contentRef)
	}
	return s.Tags.FindByContent(contentType, contentRef)
}

// TagsForQuizGroup lists the tags a quiz group gates, so authors can see
// what a question edit will affect.
func (s *AnchorTagService) TagsForQuizGroup(quizGroupID uint) ([]model.AnchorTag, error) {
	if _, err := s.Quizzes.FindGroupByID(quizGroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizGroupNotFound
		}
		return nil, err
	}
	return s.Tags.ListByQuizGroup(quizGroupID)
}

// ArchiveTag is the path taken when gated content is removed: the tag stops
// gating new attempts but its history stays intact.
func (s *AnchorTagService) ArchiveTag(id uint) (*model.AnchorTag, error) {
	tag, err := s.Tags.Archive(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTagNotFound
		}
		return nil, err
	}
	return tag, nil
}

func (s *AnchorTagService) DeleteTag(id uint) error {
	if err := s.Tags.SoftDelete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTagNotFound
		}
		return err
	}
	return nil
}
