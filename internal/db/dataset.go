package db

import (
	"time"

	"gorm.io/gorm"
)

// Dataset 是一组被挑选出来用于训练的文件。
type Dataset struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"index" json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `gorm:"column:created_date" json:"created_date"`
	UpdatedAt   time.Time `gorm:"column:updated_date" json:"updated_date"`
}

// DatasetFile 关联数据集与文件，并保存该文件在数据集内的质量评估。
type DatasetFile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	DatasetID    string    `gorm:"size:36;not null;uniqueIndex:idx_dataset_file,priority:1" json:"dataset_id"`
	FileID       string    `gorm:"size:36;not null;uniqueIndex:idx_dataset_file,priority:2" json:"file_id"`
	OrderIndex   int       `json:"order_index"`
	Excluded     bool      `json:"excluded"`
	QualityScore *float64  `json:"quality_score"`
	QualityFlags *string   `gorm:"type:text" json:"quality_flags"`
	CreatedAt    time.Time `gorm:"column:added_date" json:"added_date"`
}

// BeforeCreate 生成主键。
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// BeforeCreate 生成主键。
func (d *DatasetFile) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}
