package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCaptionSetNameLength    = 255
	maxTriggerPhraseLength     = 500
	minCaptionSetMaxLength     = 10
	maxCaptionSetMaxLength     = 10000
	defaultCaptionSetStyleName = "natural"
)

var captionSetStyles = map[string]struct{}{
	"natural":  {},
	"detailed": {},
	"tags":     {},
	"custom":   {},
}

// CaptionSetService wraps caption set related operations.
type CaptionSetService struct {
	tx     TransactionManager
	ledger *VersionLedger
	log    *zap.Logger
}

// CaptionSetInput 创建集合时接受的字段。
type CaptionSetInput struct {
	Name          string
	Description   *string
	Style         string
	MaxLength     *int
	CustomPrompt  *string
	TriggerPhrase *string
}

// CaptionSetUpdate 为部分更新，nil 字段保持不变。
type CaptionSetUpdate struct {
	Name          *string
	Description   *string
	Style         *string
	MaxLength     *int
	CustomPrompt  *string
	TriggerPhrase *string
}

// NewCaptionSetService creates a CaptionSetService instance.
func NewCaptionSetService(gdb *gorm.DB, log *zap.Logger) *CaptionSetService {
	return &CaptionSetService{
		tx:     NewTransactionManager(gdb),
		ledger: NewVersionLedger(),
		log:    logger.OrNop(log),
	}
}

// Create 在数据集下创建说明文字集合，同一数据集内名称唯一。
func (s *CaptionSetService) Create(ctx context.Context, datasetID string, input CaptionSetInput) (*db.CaptionSet, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateCaptionSetName(name); err != nil {
		return nil, err
	}
	style := input.Style
	if style == "" {
		style = defaultCaptionSetStyleName
	}
	if err := validateCaptionSetFields(&style, input.MaxLength, input.TriggerPhrase); err != nil {
		return nil, err
	}

	set := db.CaptionSet{
		DatasetID:     datasetID,
		Name:          name,
		Description:   input.Description,
		Style:         style,
		MaxLength:     input.MaxLength,
		CustomPrompt:  input.CustomPrompt,
		TriggerPhrase: input.TriggerPhrase,
	}
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var dataset db.Dataset
		if err := tx.Where("id = ?", datasetID).First(&dataset).Error; err != nil {
			return notFoundOr(err, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID))
		}
		if err := ensureUniqueName(tx, datasetID, name, ""); err != nil {
			return err
		}
		return tx.Create(&set).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("created caption set", zap.String("caption_set_id", set.ID), zap.String("name", set.Name))
	return &set, nil
}

// Get fetches a caption set by id.
func (s *CaptionSetService) Get(ctx context.Context, id string) (*db.CaptionSet, error) {
	var set *db.CaptionSet
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		set, err = findCaptionSet(tx, id)
		return err
	})
	return set, err
}

// Update 部分更新集合，改名时检查同数据集内的重名。
func (s *CaptionSetService) Update(ctx context.Context, id string, update CaptionSetUpdate) (*db.CaptionSet, error) {
	var set *db.CaptionSet
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		set, err = findCaptionSet(tx, id)
		if err != nil {
			return err
		}

		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if err := validateCaptionSetName(name); err != nil {
				return err
			}
			if err := ensureUniqueName(tx, set.DatasetID, name, set.ID); err != nil {
				return err
			}
			set.Name = name
		}
		if err := validateCaptionSetFields(update.Style, update.MaxLength, update.TriggerPhrase); err != nil {
			return err
		}
		if update.Description != nil {
			set.Description = update.Description
		}
		if update.Style != nil {
			set.Style = *update.Style
		}
		if update.MaxLength != nil {
			set.MaxLength = update.MaxLength
		}
		if update.CustomPrompt != nil {
			set.CustomPrompt = update.CustomPrompt
		}
		if update.TriggerPhrase != nil {
			set.TriggerPhrase = update.TriggerPhrase
		}
		return tx.Save(set).Error
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Delete 删除集合，并级联删除其中的说明文字与历史版本。
func (s *CaptionSetService) Delete(ctx context.Context, id string) error {
	var name string
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		set, err := findCaptionSet(tx, id)
		if err != nil {
			return err
		}
		name = set.Name

		var captionIDs []string
		if err := tx.Model(&db.Caption{}).
			Where("caption_set_id = ?", set.ID).
			Pluck("id", &captionIDs).Error; err != nil {
			return err
		}
		if err := s.ledger.purge(tx, captionIDs); err != nil {
			return err
		}
		if err := tx.Where("caption_set_id = ?", set.ID).Delete(&db.Caption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.CaptionSet{}, "id = ?", set.ID).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("deleted caption set", zap.String("caption_set_id", id), zap.String("name", name))
	return nil
}

// RecountCaptions 按实时计数修复 caption_count，ids 为空时处理全部集合，返回被修正的集合数。
func (s *CaptionSetService) RecountCaptions(ctx context.Context, ids []string) (int, error) {
	fixed := 0
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		query := tx.Model(&db.CaptionSet{})
		if len(ids) > 0 {
			query = query.Where("id IN ?", ids)
		}
		var sets []db.CaptionSet
		if err := query.Find(&sets).Error; err != nil {
			return err
		}

		for _, set := range sets {
			var count int64
			if err := tx.Model(&db.Caption{}).
				Where("caption_set_id = ?", set.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if int(count) == set.CaptionCount {
				continue
			}
			if err := tx.Model(&db.CaptionSet{}).
				Where("id = ?", set.ID).
				UpdateColumn("caption_count", count).Error; err != nil {
				return err
			}
			s.log.Warn("caption_count drift corrected",
				zap.String("caption_set_id", set.ID),
				zap.Int("stored", set.CaptionCount),
				zap.Int64("actual", count),
			)
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}

func ensureUniqueName(tx *gorm.DB, datasetID, name, excludeID string) error {
	query := tx.Model(&db.CaptionSet{}).Where("dataset_id = ? AND name = ?", datasetID, name)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: '%s'", ErrDuplicateName, name)
	}
	return nil
}

func validateCaptionSetName(name string) error {
	if name == "" {
		return invalidInput("name is required")
	}
	if utf8.RuneCountInString(name) > maxCaptionSetNameLength {
		return invalidInput("name must be at most %d characters", maxCaptionSetNameLength)
	}
	return nil
}

func validateCaptionSetFields(style *string, maxLength *int, triggerPhrase *string) error {
	if style != nil {
		if _, ok := captionSetStyles[*style]; !ok {
			return invalidInput("unsupported style %q", *style)
		}
	}
	if maxLength != nil && (*maxLength < minCaptionSetMaxLength || *maxLength > maxCaptionSetMaxLength) {
		return invalidInput("max_length must be between %d and %d", minCaptionSetMaxLength, maxCaptionSetMaxLength)
	}
	if triggerPhrase != nil && utf8.RuneCountInString(*triggerPhrase) > maxTriggerPhraseLength {
		return invalidInput("trigger_phrase must be at most %d characters", maxTriggerPhraseLength)
	}
	return nil
}
