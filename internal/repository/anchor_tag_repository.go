package repository

import (
	"anchor_gate_backend/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const tagCacheTTL = 5 * time.Minute

type AnchorTagRepository struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewAnchorTagRepository(db *gorm.DB, rdb *redis.Client) *AnchorTagRepository {
	return &AnchorTagRepository{DB: db, RDB: rdb}
}

func (r *AnchorTagRepository) Create(tag *model.AnchorTag) error {
	if err := r.DB.Create(tag).Error; err != nil {
		return err
	}
	r.invalidateContentCache(tag.ContentType, tag.ContentRef)
	return nil
}

func (r *AnchorTagRepository) FindByID(id uint) (*model.AnchorTag, error) {
	var tag model.AnchorTag
	if err := r.DB.First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindByContent returns the non-deleted tags gating one content unit.
// Tag sets are read-heavy and write-rare, so the listing is cached.
func (r *AnchorTagRepository) FindByContent(contentType model.ContentType, contentRef uint) ([]model.AnchorTag, error) {
	key := r.contentCacheKey(contentType, contentRef)

	if r.RDB != nil {
		if cached, err := r.RDB.Get(context.Background(), key).Bytes(); err == nil {
			var tags []model.AnchorTag
			if err := json.Unmarshal(cached, &tags); err == nil {
				return tags, nil
			}
		}
	}

	var tags []model.AnchorTag
	err := r.DB.Where("content_type = ? AND content_ref = ? AND status = ?",
		contentType, contentRef, model.TagActive).
		Order("id ASC").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}

	if r.RDB != nil {
		if data, err := json.Marshal(tags); err == nil {
			r.RDB.Set(context.Background(), key, data, tagCacheTTL)
		}
	}

	return tags, nil
}

func (r *AnchorTagRepository) ListByQuizGroup(quizGroupID uint) ([]model.AnchorTag, error) {
	var tags []model.AnchorTag
	err := r.DB.Where("quiz_group_id = ?", quizGroupID).Find(&tags).Error
	return tags, err
}

func (r *AnchorTagRepository) List(page, limit int, mandatoryOnly bool) ([]model.AnchorTag, int64, error) {
	query := r.DB.Model(&model.AnchorTag{}).Where("status = ?", model.TagActive)
	if mandatoryOnly {
		query = query.Where("is_mandatory = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tags []model.AnchorTag
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tags).Error
	return tags, total, err
}

// ListIncludingDeleted is the audit/history read path; it keeps tombstoned
// rows visible.
func (r *AnchorTagRepository) ListIncludingDeleted(contentType model.ContentType, contentRef uint) ([]model.AnchorTag, error) {
	var tags []model.AnchorTag
	err := r.DB.Unscoped().
		Where("content_type = ? AND content_ref = ?", contentType, contentRef).
		Order("id ASC").
		Find(&tags).Error
	return tags, err
}

// Archive flips an active tag to archived without touching history.
func (r *AnchorTagRepository) Archive(id uint) (*model.AnchorTag, error) {
	tag, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	res := r.DB.Model(&model.AnchorTag{}).
		Where("id = ? AND status = ?", id, model.TagActive).
		Update("status", model.TagArchived)
	if res.Error != nil {
		return nil, res.Error
	}

	tag.Status = model.TagArchived
	r.invalidateContentCache(tag.ContentType, tag.ContentRef)
	return tag, nil
}

func (r *AnchorTagRepository) SoftDelete(id uint) error {
	tag, err := r.FindByID(id)
	if err != nil {
		return err
	}
	if err := r.DB.Delete(&model.AnchorTag{}, id).Error; err != nil {
		return err
	}
	r.invalidateContentCache(tag.ContentType, tag.ContentRef)
	return nil
}

func (r *AnchorTagRepository) contentCacheKey(contentType model.ContentType, contentRef uint) string {
	return fmt.Sprintf("anchor_tags:%s:%d", contentType, contentRef)
}

func (r *AnchorTagRepository) invalidateContentCache(contentType model.ContentType, contentRef uint) {
	if r.RDB == nil {
		return
	}
	r.RDB.Del(context.Background(), r.contentCacheKey(contentType, contentRef))
}
