package model

type ContentType string

const (
	ContentModule       ContentType = "module"
	ContentChapter      ContentType = "chapter"
	ContentBibliography ContentType = "bibliography"
)

type AnchorTagStatus string

const (
	TagActive   AnchorTagStatus = "active"
	TagArchived AnchorTagStatus = "archived"
)

// AnchorTag is a progress gate attached to a piece of content. The
// (ContentType, ContentRef) pair is fixed for the tag's lifetime; removing
// content archives the tag instead of deleting it so attempt history stays
// referenceable.
// swagger:model AnchorTag
type AnchorTag struct {
	BaseModel
	ContentType ContentType     `gorm:"size:20;not null;index:idx_content_tag,priority:2" json:"contentType"` // module, chapter, bibliography
	ContentRef  uint            `gorm:"not null;index:idx_content_tag,priority:1;type:bigint unsigned" json:"contentRef"`
	IsMandatory bool            `gorm:"default:true;index:idx_mandatory_status,priority:1" json:"isMandatory"`
	QuizGroupID *uint           `gorm:"index;type:bigint unsigned" json:"quizGroupId,omitempty"`
	Status      AnchorTagStatus `gorm:"size:20;not null;default:'active';index:idx_content_tag,priority:3;index:idx_mandatory_status,priority:2" json:"status"`
	CreatedBy   uint            `gorm:"index:idx_tag_created_at,priority:2;type:bigint unsigned" json:"createdBy"`
}

func (AnchorTag) TableName() string {
	return "anchor_tags"
}
