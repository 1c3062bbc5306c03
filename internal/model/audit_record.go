package model

import "gorm.io/datatypes"

// AuditMetadataSchemaVersion is bumped whenever the shape of the Metadata
// payload changes; readers dispatch on it instead of guessing at the blob.
const AuditMetadataSchemaVersion = 1

// AuditRecord is an append-only trail of ledger transitions. Metadata is a
// typed key-value payload validated against SchemaVersion.
// swagger:model AuditRecord
type AuditRecord struct {
	UUIDBase
	StudentID     uint           `gorm:"index;type:bigint unsigned" json:"studentId"`
	AnchorTagID   uint           `gorm:"index;type:bigint unsigned" json:"anchorTagId"`
	AttemptID     uint           `gorm:"index;type:bigint unsigned" json:"attemptId"`
	Action        string         `gorm:"size:50;not null" json:"action"` // start, resume, complete, fail, abandon
	SchemaVersion int            `gorm:"default:1" json:"schemaVersion"`
	Metadata      datatypes.JSON `json:"metadata"`
}

func (AuditRecord) TableName() string {
	return "audit_records"
}
