package service

import (
	"context"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/logger"
	"github.com/captionfoundry/internal/textops"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxPreviewSamples 是预览结果中最多返回的样例数。
const MaxPreviewSamples = 5

// BulkEditService 对整个集合执行文本操作流水线。
type BulkEditService struct {
	tx     TransactionManager
	ledger *VersionLedger
	log    *zap.Logger
}

// EditSample 是预览中单条说明文字的前后对比。
type EditSample struct {
	CaptionID string `json:"caption_id"`
	FileID    string `json:"file_id"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

// EditPreview 是批量编辑的预览结果。
type EditPreview struct {
	TotalCaptions    int          `json:"total_captions"`
	AffectedCaptions int          `json:"affected_captions"`
	Samples          []EditSample `json:"samples"`
	OperationSummary string       `json:"operation_summary"`
}

// ItemError 记录批量操作中单条说明文字的失败。
type ItemError struct {
	CaptionID string `json:"caption_id"`
	FileID    string `json:"file_id"`
	Error     string `json:"error"`
}

// EditResult 是批量编辑的执行结果。
type EditResult struct {
	UpdatedCount int         `json:"updated_count"`
	SkippedCount int         `json:"skipped_count"`
	ErrorCount   int         `json:"error_count"`
	Errors       []ItemError `json:"errors"`
}

// NewBulkEditService creates a BulkEditService instance.
func NewBulkEditService(gdb *gorm.DB, log *zap.Logger) *BulkEditService {
	return &BulkEditService{
		tx:     NewTransactionManager(gdb),
		ledger: NewVersionLedger(),
		log:    logger.OrNop(log),
	}
}

// Preview 计算流水线对集合的影响，不写入任何数据。
func (s *BulkEditService) Preview(ctx context.Context, captionSetID string, specs []textops.Spec) (*EditPreview, error) {
	ops, err := textops.ParseAll(specs)
	if err != nil {
		return nil, err
	}

	preview := &EditPreview{
		Samples:          make([]EditSample, 0, MaxPreviewSamples),
		OperationSummary: textops.Summary(ops),
	}
	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := findCaptionSet(tx, captionSetID); err != nil {
			return err
		}
		captions, err := listCaptions(tx, captionSetID)
		if err != nil {
			return err
		}

		preview.TotalCaptions = len(captions)
		for _, caption := range captions {
			modified := textops.ApplyAll(caption.Text, ops)
			if modified == caption.Text {
				continue
			}
			preview.AffectedCaptions++
			if len(preview.Samples) < MaxPreviewSamples {
				preview.Samples = append(preview.Samples, EditSample{
					CaptionID: caption.ID,
					FileID:    caption.FileID,
					Before:    caption.Text,
					After:     modified,
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

// Apply 对集合内每条说明文字执行流水线。
// 有变化的条目先写入 bulk_edit 快照再覆盖文本；单条失败回滚到该条目的保存点并记录，
// 不影响其他条目，全部处理完后统一提交。
func (s *BulkEditService) Apply(ctx context.Context, captionSetID string, specs []textops.Spec) (*EditResult, error) {
	ops, err := textops.ParseAll(specs)
	if err != nil {
		return nil, err
	}
	summary := textops.Summary(ops)

	result := &EditResult{Errors: make([]ItemError, 0)}
	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := findCaptionSet(tx, captionSetID); err != nil {
			return err
		}
		captions, err := listCaptions(tx, captionSetID)
		if err != nil {
			return err
		}

		for i := range captions {
			caption := &captions[i]
			modified := textops.ApplyAll(caption.Text, ops)
			if modified == caption.Text {
				result.SkippedCount++
				continue
			}

			itemErr := tx.Transaction(func(item *gorm.DB) error {
				if modified == "" {
					return ErrEmptyCaption
				}
				if _, err := s.ledger.Snapshot(item, caption, db.OpBulkEdit, summary); err != nil {
					return err
				}
				caption.Text = modified
				caption.Source = db.SourceManual
				return item.Save(caption).Error
			})
			if itemErr != nil {
				s.log.Error("bulk edit failed for caption",
					zap.String("caption_id", caption.ID),
					zap.Error(itemErr),
				)
				result.Errors = append(result.Errors, ItemError{
					CaptionID: caption.ID,
					FileID:    caption.FileID,
					Error:     itemErr.Error(),
				})
				continue
			}
			result.UpdatedCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.ErrorCount = len(result.Errors)
	s.log.Info("bulk edit applied",
		zap.String("caption_set_id", captionSetID),
		zap.String("operations", summary),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("errors", result.ErrorCount),
	)
	return result, nil
}
