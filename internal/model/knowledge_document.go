package model

// KnowledgeDocument holds the reference material the knowledge lookup uses to
// judge open-ended answers. A unit with no documents has no retrievable
// knowledge and verification for it degrades.
// swagger:model KnowledgeDocument
type KnowledgeDocument struct {
	BaseModel
	ContentType ContentType `gorm:"size:20;not null;index:idx_knowledge_content,priority:2" json:"contentType"`
	ContentRef  uint        `gorm:"not null;index:idx_knowledge_content,priority:1;type:bigint unsigned" json:"contentRef"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Content     string      `gorm:"type:text" json:"content"`
}

func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}
