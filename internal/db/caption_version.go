package db

import (
	"time"

	"gorm.io/gorm"
)

// VersionOperation 标记产生某个版本快照的操作。
type VersionOperation string

const (
	OpManualEdit   VersionOperation = "manual_edit"
	OpBulkEdit     VersionOperation = "bulk_edit"
	OpRollback     VersionOperation = "rollback"
	OpBulkRollback VersionOperation = "bulk_rollback"
)

// AutoGenerateOperation 返回非手动来源写入时使用的操作名，例如 auto_generate_generated。
func AutoGenerateOperation(source CaptionSource) VersionOperation {
	return VersionOperation("auto_generate_" + string(source))
}

// CaptionVersion 记录说明文字被覆盖前的状态，只追加不修改。
type CaptionVersion struct {
	ID                   string           `gorm:"primaryKey;size:36" json:"id"`
	CaptionID            string           `gorm:"size:36;not null;uniqueIndex:idx_caption_version,priority:1" json:"caption_id"`
	VersionNumber        int              `gorm:"not null;uniqueIndex:idx_caption_version,priority:2" json:"version_number"`
	Text                 string           `gorm:"type:text;not null" json:"text"`
	Operation            VersionOperation `gorm:"size:40;not null" json:"operation"`
	OperationDescription string           `gorm:"type:text" json:"operation_description"`
	Source               *CaptionSource   `gorm:"size:20" json:"source"`
	VisionModel          *string          `json:"vision_model"`
	QualityScore         *float64         `json:"quality_score"`
	QualityFlags         *string          `gorm:"type:text" json:"quality_flags"`
	CreatedAt            time.Time        `gorm:"column:created_date" json:"created_date"`
}

// TableName 指定自定义表名。
func (CaptionVersion) TableName() string {
	return "caption_versions"
}

// BeforeCreate 生成主键。
func (v *CaptionVersion) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}
