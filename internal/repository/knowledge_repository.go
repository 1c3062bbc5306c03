package repository

import (
	"anchor_gate_backend/internal/model"

	"gorm.io/gorm"
)

type KnowledgeRepository struct {
	DB *gorm.DB
}

func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{DB: db}
}

func (r *KnowledgeRepository) CreateDocument(doc *model.KnowledgeDocument) error {
	return r.DB.Create(doc).Error
}

func (r *KnowledgeRepository) FindByContent(contentType model.ContentType, contentRef uint) ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	err := r.DB.Where("content_type = ? AND content_ref = ?", contentType, contentRef).
		Limit(5).
		Find(&docs).Error
	return docs, err
}

func (r *KnowledgeRepository) Search(keyword string, limit int) ([]model.KnowledgeDocument, error) {
	var docs []model.KnowledgeDocument
	err := r.DB.Where("title LIKE ? OR content LIKE ?", "%"+keyword+"%", "%"+keyword+"%").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}
