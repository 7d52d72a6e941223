package service

import (
	"errors"

	"github.com/captionfoundry/internal/db"
	"gorm.io/gorm"
)

// VersionLedger 维护每条说明文字只追加的历史快照。
// 所有方法都在调用方传入的事务中执行，快照必须与随后的修改处于同一事务。
type VersionLedger struct{}

// NewVersionLedger creates a VersionLedger.
func NewVersionLedger() *VersionLedger {
	return &VersionLedger{}
}

// Snapshot 记录 caption 当前（即将被覆盖）的状态，版本号为现有数量加一。
func (l *VersionLedger) Snapshot(tx *gorm.DB, caption *db.Caption, operation db.VersionOperation, description string) (*db.CaptionVersion, error) {
	var depth int64
	if err := tx.Model(&db.CaptionVersion{}).
		Where("caption_id = ?", caption.ID).
		Count(&depth).Error; err != nil {
		return nil, err
	}

	source := caption.Source
	version := db.CaptionVersion{
		CaptionID:            caption.ID,
		VersionNumber:        int(depth) + 1,
		Text:                 caption.Text,
		Operation:            operation,
		OperationDescription: description,
		Source:               &source,
		VisionModel:          clonePtr(caption.VisionModel),
		QualityScore:         clonePtr(caption.QualityScore),
		QualityFlags:         clonePtr(caption.QualityFlags),
	}
	if err := tx.Create(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// History 返回版本列表，最新的在前。
func (l *VersionLedger) History(tx *gorm.DB, captionID string) ([]db.CaptionVersion, error) {
	versions := make([]db.CaptionVersion, 0)
	if err := tx.Where("caption_id = ?", captionID).
		Order("version_number desc").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// Latest 返回版本号最大的快照，没有历史时返回 nil。
func (l *VersionLedger) Latest(tx *gorm.DB, captionID string) (*db.CaptionVersion, error) {
	var version db.CaptionVersion
	if err := tx.Where("caption_id = ?", captionID).
		Order("version_number desc").
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// Get 查找属于 captionID 的指定版本。
func (l *VersionLedger) Get(tx *gorm.DB, captionID, versionID string) (*db.CaptionVersion, error) {
	var version db.CaptionVersion
	if err := tx.Where("id = ? AND caption_id = ?", versionID, captionID).
		First(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// purge 仅在级联删除说明文字时使用。
func (l *VersionLedger) purge(tx *gorm.DB, captionIDs []string) error {
	if len(captionIDs) == 0 {
		return nil
	}
	return tx.Where("caption_id IN ?", captionIDs).Delete(&db.CaptionVersion{}).Error
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
