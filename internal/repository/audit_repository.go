package repository

import (
	"anchor_gate_backend/internal/model"

	"gorm.io/gorm"
)

type AuditRepository struct {
	DB *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

func (r *AuditRepository) Create(record *model.AuditRecord) error {
	return r.DB.Create(record).Error
}

func (r *AuditRepository) ListByAttempt(attemptID uint) ([]model.AuditRecord, error) {
	var records []model.AuditRecord
	err := r.DB.Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *AuditRepository) ListByStudent(studentID uint, page, limit int) ([]model.AuditRecord, int64, error) {
	query := r.DB.Model(&model.AuditRecord{}).Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.AuditRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}
