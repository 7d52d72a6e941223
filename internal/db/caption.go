package db

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CaptionSource 标记说明文字的来源。
type CaptionSource string

const (
	SourceManual    CaptionSource = "manual"
	SourceGenerated CaptionSource = "generated"
	SourceImported  CaptionSource = "imported"
)

// Valid 判断来源是否为已知取值。
func (s CaptionSource) Valid() bool {
	switch s {
	case SourceManual, SourceGenerated, SourceImported:
		return true
	}
	return false
}

// Caption 是说明文字集合中某个文件的当前说明，每个 (集合, 文件) 至多一条。
type Caption struct {
	ID           string        `gorm:"primaryKey;size:36" json:"id"`
	CaptionSetID string        `gorm:"size:36;not null;uniqueIndex:idx_caption_set_file,priority:1" json:"caption_set_id"`
	FileID       string        `gorm:"size:36;not null;uniqueIndex:idx_caption_set_file,priority:2" json:"file_id"`
	Text         string        `gorm:"type:text;not null" json:"text"`
	Source       CaptionSource `gorm:"size:20;not null;default:manual" json:"source"`
	VisionModel  *string       `json:"vision_model"`
	QualityScore *float64      `json:"quality_score"`
	QualityFlags *string       `gorm:"type:text" json:"quality_flags"`
	CreatedAt    time.Time     `gorm:"column:created_date" json:"created_date"`
	UpdatedAt    time.Time     `gorm:"column:updated_date" json:"updated_date"`
}

// BeforeCreate 生成主键。
func (c *Caption) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// EncodeQualityFlags 把质量标记序列化为存储格式，空列表视为未提供。
func EncodeQualityFlags(flags []string) (*string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		return nil, err
	}
	encoded := string(raw)
	return &encoded, nil
}

// DecodeQualityFlags 解析存储的质量标记。
func DecodeQualityFlags(raw *string) ([]string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var flags []string
	if err := json.Unmarshal([]byte(*raw), &flags); err != nil {
		return nil, err
	}
	return flags, nil
}
