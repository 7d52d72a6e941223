package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RollbackService 提供单条版本回滚与集合级批量回滚。
// 批量回滚只处理最新快照为 bulk_edit 的说明文字：该快照保存的正是批量编辑前的内容。
type RollbackService struct {
	tx     TransactionManager
	ledger *VersionLedger
	log    *zap.Logger
}

// RollbackSample 是批量回滚预览中的单条样例。
type RollbackSample struct {
	CaptionID           string `json:"caption_id"`
	FileID              string `json:"file_id"`
	CurrentText         string `json:"current_text"`
	RollbackToText      string `json:"rollback_to_text"`
	BulkEditDescription string `json:"bulk_edit_description"`
}

// SkippedCaption 说明某条说明文字为何不会被回滚。
type SkippedCaption struct {
	CaptionID string `json:"caption_id"`
	FileID    string `json:"file_id"`
	Reason    string `json:"reason"`
}

// RollbackPreview 是批量回滚的预览结果。
type RollbackPreview struct {
	TotalCaptions     int              `json:"total_captions"`
	RollbackableCount int              `json:"rollbackable_count"`
	SkippedCount      int              `json:"skipped_count"`
	Samples           []RollbackSample `json:"samples"`
	SkippedReasons    []SkippedCaption `json:"skipped_reasons"`
}

// RollbackResult 是批量回滚的执行结果。
type RollbackResult struct {
	RolledBackCount int         `json:"rolled_back_count"`
	SkippedCount    int         `json:"skipped_count"`
	ErrorCount      int         `json:"error_count"`
	Errors          []ItemError `json:"errors"`
}

// NewRollbackService creates a RollbackService instance.
func NewRollbackService(gdb *gorm.DB, log *zap.Logger) *RollbackService {
	return &RollbackService{
		tx:     NewTransactionManager(gdb),
		ledger: NewVersionLedger(),
		log:    logger.OrNop(log),
	}
}

// RollbackCaption 把说明文字恢复到指定版本，恢复前把当前状态记为 rollback 快照。
func (s *RollbackService) RollbackCaption(ctx context.Context, captionID, versionID string) (*db.Caption, error) {
	var caption *db.Caption
	var versionNumber int
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		caption, err = findCaption(tx, captionID)
		if err != nil {
			return err
		}
		version, err := s.ledger.Get(tx, caption.ID, versionID)
		if err != nil {
			return notFoundOr(err, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID))
		}
		versionNumber = version.VersionNumber

		description := fmt.Sprintf("Rolled back to version %d", version.VersionNumber)
		if _, err := s.ledger.Snapshot(tx, caption, db.OpRollback, description); err != nil {
			return err
		}
		restoreFromVersion(caption, version)
		return tx.Save(caption).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rolled back caption",
		zap.String("caption_id", captionID),
		zap.Int("version_number", versionNumber),
	)
	return caption, nil
}

// CanRollback 判断集合中是否存在最新快照为 bulk_edit 的说明文字，找到第一条即返回。
func (s *RollbackService) CanRollback(ctx context.Context, captionSetID string) (bool, error) {
	found := false
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := findCaptionSet(tx, captionSetID); err != nil {
			return err
		}
		captions, err := listCaptions(tx, captionSetID)
		if err != nil {
			return err
		}
		for _, caption := range captions {
			latest, err := s.ledger.Latest(tx, caption.ID)
			if err != nil {
				return err
			}
			if latest != nil && latest.Operation == db.OpBulkEdit {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// PreviewBulkRollback 列出批量回滚会恢复和跳过的说明文字，不写入任何数据。
func (s *RollbackService) PreviewBulkRollback(ctx context.Context, captionSetID string) (*RollbackPreview, error) {
	preview := &RollbackPreview{
		Samples:        make([]RollbackSample, 0, MaxPreviewSamples),
		SkippedReasons: make([]SkippedCaption, 0, MaxPreviewSamples),
	}
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := findCaptionSet(tx, captionSetID); err != nil {
			return err
		}
		captions, err := listCaptions(tx, captionSetID)
		if err != nil {
			return err
		}

		preview.TotalCaptions = len(captions)
		for _, caption := range captions {
			latest, err := s.ledger.Latest(tx, caption.ID)
			if err != nil {
				return err
			}
			if reason := skipReason(latest); reason != "" {
				preview.SkippedCount++
				if len(preview.SkippedReasons) < MaxPreviewSamples {
					preview.SkippedReasons = append(preview.SkippedReasons, SkippedCaption{
						CaptionID: caption.ID,
						FileID:    caption.FileID,
						Reason:    reason,
					})
				}
				continue
			}

			preview.RollbackableCount++
			if len(preview.Samples) < MaxPreviewSamples {
				preview.Samples = append(preview.Samples, RollbackSample{
					CaptionID:           caption.ID,
					FileID:              caption.FileID,
					CurrentText:         caption.Text,
					RollbackToText:      latest.Text,
					BulkEditDescription: latest.OperationDescription,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return preview, nil
}

// ApplyBulkRollback 撤销集合最近一次批量编辑。
// 每条说明文字独立处理：先记 bulk_rollback 快照，使回滚本身也可通过版本回滚撤销。
func (s *RollbackService) ApplyBulkRollback(ctx context.Context, captionSetID string) (*RollbackResult, error) {
	result := &RollbackResult{Errors: make([]ItemError, 0)}
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := findCaptionSet(tx, captionSetID); err != nil {
			return err
		}
		captions, err := listCaptions(tx, captionSetID)
		if err != nil {
			return err
		}

		for i := range captions {
			caption := &captions[i]
			itemErr := tx.Transaction(func(item *gorm.DB) error {
				latest, err := s.ledger.Latest(item, caption.ID)
				if err != nil {
					return err
				}
				if skipReason(latest) != "" {
					return errSkipRollback
				}
				if _, err := db.DecodeQualityFlags(latest.QualityFlags); err != nil {
					return fmt.Errorf("version %d has malformed quality_flags: %w", latest.VersionNumber, err)
				}

				description := "Rolled back bulk edit: " + latest.OperationDescription
				if _, err := s.ledger.Snapshot(item, caption, db.OpBulkRollback, description); err != nil {
					return err
				}
				restoreFromVersion(caption, latest)
				return item.Save(caption).Error
			})
			switch {
			case itemErr == nil:
				result.RolledBackCount++
			case errors.Is(itemErr, errSkipRollback):
				result.SkippedCount++
			default:
				s.log.Error("bulk rollback failed for caption",
					zap.String("caption_id", caption.ID),
					zap.Error(itemErr),
				)
				result.Errors = append(result.Errors, ItemError{
					CaptionID: caption.ID,
					FileID:    caption.FileID,
					Error:     itemErr.Error(),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.ErrorCount = len(result.Errors)
	s.log.Info("bulk rollback complete",
		zap.String("caption_set_id", captionSetID),
		zap.Int("rolled_back", result.RolledBackCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("errors", result.ErrorCount),
	)
	return result, nil
}

// errSkipRollback 让保存点正常结束并把条目计为跳过。
var errSkipRollback = errors.New("caption has no bulk edit to roll back")

func skipReason(latest *db.CaptionVersion) string {
	if latest == nil {
		return "No version history available"
	}
	if latest.Operation != db.OpBulkEdit {
		return fmt.Sprintf("Last operation was '%s', not 'bulk_edit'", latest.Operation)
	}
	return ""
}

// restoreFromVersion 用快照中的值覆盖说明文字，快照缺少来源时保留当前来源。
func restoreFromVersion(caption *db.Caption, version *db.CaptionVersion) {
	caption.Text = version.Text
	if version.Source != nil && *version.Source != "" {
		caption.Source = *version.Source
	}
	caption.VisionModel = clonePtr(version.VisionModel)
	caption.QualityScore = clonePtr(version.QualityScore)
	caption.QualityFlags = clonePtr(version.QualityFlags)
}
