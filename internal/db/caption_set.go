package db

import (
	"time"

	"gorm.io/gorm"
)

// CaptionSet 是某个数据集下一套风格一致的说明文字集合。
type CaptionSet struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	DatasetID     string    `gorm:"size:36;not null;uniqueIndex:idx_caption_set_name,priority:1" json:"dataset_id"`
	Name          string    `gorm:"not null;uniqueIndex:idx_caption_set_name,priority:2" json:"name"`
	Description   *string   `json:"description"`
	Style         string    `gorm:"size:20;not null;default:natural" json:"style"`
	MaxLength     *int      `json:"max_length"`
	CustomPrompt  *string   `gorm:"type:text" json:"custom_prompt"`
	TriggerPhrase *string   `json:"trigger_phrase"`
	CaptionCount  int       `gorm:"not null;default:0" json:"caption_count"`
	CreatedAt     time.Time `gorm:"column:created_date" json:"created_date"`
	UpdatedAt     time.Time `gorm:"column:updated_date" json:"updated_date"`
}

// BeforeCreate 生成主键。
func (s *CaptionSet) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
