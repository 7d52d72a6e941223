package db

import (
	"time"

	"gorm.io/gorm"
)

// TrackedFile 是扫描登记的图片文件，由文件注册表维护。
type TrackedFile struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	FolderID        string    `gorm:"size:36;index" json:"folder_id"`
	Filename        string    `gorm:"not null" json:"filename"`
	RelativePath    string    `json:"relative_path"`
	AbsolutePath    string    `json:"absolute_path"`
	ImportedCaption *string   `gorm:"type:text" json:"imported_caption"`
	Exists          bool      `gorm:"default:true" json:"exists"`
	CreatedAt       time.Time `gorm:"column:discovered_date" json:"discovered_date"`
}

// BeforeCreate 生成主键。
func (f *TrackedFile) BeforeCreate(tx *gorm.DB) error {
	assignID(&f.ID)
	return nil
}
