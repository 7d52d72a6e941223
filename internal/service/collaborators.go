package service

import (
	"errors"

	"github.com/captionfoundry/internal/db"
	"gorm.io/gorm"
)

// FileRegistry 查询已登记的文件，文件不存在时返回 nil。
type FileRegistry interface {
	LookupFile(tx *gorm.DB, fileID string) (*db.TrackedFile, error)
}

// QualityStore 把说明文字的质量评估同步到数据集文件记录。
type QualityStore interface {
	UpdateQuality(tx *gorm.DB, fileID, datasetID string, score float64, flags *string) error
}

type gormFileRegistry struct{}

// NewFileRegistry returns the tracked_files backed registry.
func NewFileRegistry() FileRegistry {
	return gormFileRegistry{}
}

func (gormFileRegistry) LookupFile(tx *gorm.DB, fileID string) (*db.TrackedFile, error) {
	var file db.TrackedFile
	if err := tx.Where("id = ?", fileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

type gormQualityStore struct{}

// NewQualityStore returns the dataset_files backed quality store.
func NewQualityStore() QualityStore {
	return gormQualityStore{}
}

// UpdateQuality 尽力而为：文件不在数据集中时直接跳过。
func (gormQualityStore) UpdateQuality(tx *gorm.DB, fileID, datasetID string, score float64, flags *string) error {
	updates := map[string]interface{}{"quality_score": score}
	if flags != nil {
		updates["quality_flags"] = *flags
	}
	return tx.Model(&db.DatasetFile{}).
		Where("file_id = ? AND dataset_id = ?", fileID, datasetID).
		Updates(updates).Error
}
