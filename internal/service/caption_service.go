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

const (
	defaultCaptionPageSize = 50
	maxCaptionPageSize     = 500
)

// CaptionService 负责说明文字的读写，每次覆盖前都会写入版本快照。
type CaptionService struct {
	tx      TransactionManager
	ledger  *VersionLedger
	files   FileRegistry
	quality QualityStore
	log     *zap.Logger
}

// CaptionInput 描述创建或更新说明文字时接受的字段，指针字段为 nil 表示未提供。
type CaptionInput struct {
	FileID       string
	Text         string
	Source       db.CaptionSource
	VisionModel  *string
	QualityScore *float64
	QualityFlags []string
}

// CaptionHistory 汇总说明文字及其全部历史版本。
type CaptionHistory struct {
	Caption       db.Caption          `json:"caption"`
	Versions      []db.CaptionVersion `json:"versions"`
	TotalVersions int                 `json:"total_versions"`
}

// BatchItemError 记录批量写入中单个文件的失败原因。
type BatchItemError struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// BatchResult 是批量写入的统计结果。
type BatchResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []BatchItemError `json:"errors"`
}

// FileCaption 是某个文件在说明文字集合中的视图，说明文字可能为空。
type FileCaption struct {
	FileID              string       `json:"file_id"`
	Filename            string       `json:"filename"`
	ImportedCaption     *string      `json:"imported_caption"`
	CaptionSetID        string       `json:"caption_set_id"`
	CaptionSetName      string       `json:"caption_set_name"`
	CaptionSetMaxLength *int         `json:"caption_set_max_length"`
	Caption             *CaptionView `json:"caption"`
}

// CaptionView 解码了质量标记的说明文字。
type CaptionView struct {
	ID           string           `json:"id"`
	Text         string           `json:"text"`
	Source       db.CaptionSource `json:"source"`
	VisionModel  *string          `json:"vision_model"`
	QualityScore *float64         `json:"quality_score"`
	QualityFlags []string         `json:"quality_flags"`
	CreatedDate  string           `json:"created_date"`
	ModifiedDate string           `json:"modified_date"`
}

// NewCaptionService creates a CaptionService with the default collaborators.
func NewCaptionService(gdb *gorm.DB, log *zap.Logger) *CaptionService {
	return NewCaptionServiceWith(gdb, NewFileRegistry(), NewQualityStore(), log)
}

// NewCaptionServiceWith creates a CaptionService with explicit collaborators.
func NewCaptionServiceWith(gdb *gorm.DB, files FileRegistry, quality QualityStore, log *zap.Logger) *CaptionService {
	return &CaptionService{
		tx:      NewTransactionManager(gdb),
		ledger:  NewVersionLedger(),
		files:   files,
		quality: quality,
		log:     logger.OrNop(log),
	}
}

// Get fetches a caption by id.
func (s *CaptionService) Get(ctx context.Context, id string) (*db.Caption, error) {
	var caption *db.Caption
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		caption, err = findCaption(tx, id)
		return err
	})
	return caption, err
}

// GetByFile 精确查找 (集合, 文件) 对应的说明文字，不存在时返回 nil 且不报错。
func (s *CaptionService) GetByFile(ctx context.Context, captionSetID, fileID string) (*db.Caption, error) {
	var caption *db.Caption
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		caption, err = findCaptionForFile(tx, captionSetID, fileID)
		return err
	})
	return caption, err
}

// GetForFile 返回文件信息以及该文件在集合中的说明文字。
func (s *CaptionService) GetForFile(ctx context.Context, captionSetID, fileID string) (*FileCaption, error) {
	var view *FileCaption
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		set, err := findCaptionSet(tx, captionSetID)
		if err != nil {
			return err
		}
		file, err := s.files.LookupFile(tx, fileID)
		if err != nil {
			return err
		}
		if file == nil {
			return fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
		}
		caption, err := findCaptionForFile(tx, captionSetID, fileID)
		if err != nil {
			return err
		}

		view = &FileCaption{
			FileID:              file.ID,
			Filename:            file.Filename,
			ImportedCaption:     file.ImportedCaption,
			CaptionSetID:        set.ID,
			CaptionSetName:      set.Name,
			CaptionSetMaxLength: set.MaxLength,
		}
		if caption != nil {
			// 损坏的质量标记不影响读取
			flags, _ := db.DecodeQualityFlags(caption.QualityFlags)
			view.Caption = &CaptionView{
				ID:           caption.ID,
				Text:         caption.Text,
				Source:       caption.Source,
				VisionModel:  caption.VisionModel,
				QualityScore: caption.QualityScore,
				QualityFlags: flags,
				CreatedDate:  caption.CreatedAt.Format("2006-01-02T15:04:05.000000"),
				ModifiedDate: caption.UpdatedAt.Format("2006-01-02T15:04:05.000000"),
			}
		}
		return nil
	})
	return view, err
}

// List 分页返回集合中的说明文字，按创建时间升序。
func (s *CaptionService) List(ctx context.Context, captionSetID string, page, pageSize int) ([]db.Caption, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultCaptionPageSize
	}
	if pageSize > maxCaptionPageSize {
		pageSize = maxCaptionPageSize
	}

	captions := make([]db.Caption, 0)
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := findCaptionSet(tx, captionSetID); err != nil {
			return err
		}
		return tx.Where("caption_set_id = ?", captionSetID).
			Order("created_date asc, id asc").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&captions).Error
	})
	if err != nil {
		return nil, err
	}
	return captions, nil
}

// Upsert 为文件创建或更新说明文字。
// 已存在时先快照旧状态再覆盖；新建时不产生版本。
func (s *CaptionService) Upsert(ctx context.Context, captionSetID string, input CaptionInput) (*db.Caption, error) {
	var caption *db.Caption
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		set, err := findCaptionSet(tx, captionSetID)
		if err != nil {
			return err
		}
		caption, _, err = s.upsert(tx, set, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return caption, nil
}

// BatchUpsert 逐条写入，单条失败只记录在结果中，不影响其他条目。
func (s *CaptionService) BatchUpsert(ctx context.Context, captionSetID string, inputs []CaptionInput) (*BatchResult, error) {
	result := &BatchResult{Errors: make([]BatchItemError, 0)}
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		set, err := findCaptionSet(tx, captionSetID)
		if err != nil {
			return err
		}

		for _, input := range inputs {
			var created bool
			itemErr := tx.Transaction(func(item *gorm.DB) error {
				var err error
				_, created, err = s.upsert(item, set, input)
				return err
			})
			if itemErr != nil {
				result.Errors = append(result.Errors, BatchItemError{FileID: input.FileID, Error: itemErr.Error()})
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("batch caption update finished",
		zap.String("caption_set_id", captionSetID),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// UpdateText 手动修改说明文字，来源标记为 manual。
func (s *CaptionService) UpdateText(ctx context.Context, id, text string) (*db.Caption, error) {
	if text == "" {
		return nil, invalidInput("text is required")
	}

	var caption *db.Caption
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		caption, err = findCaption(tx, id)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Snapshot(tx, caption, db.OpManualEdit, "Caption text updated"); err != nil {
			return err
		}
		caption.Text = text
		caption.Source = db.SourceManual
		return tx.Save(caption).Error
	})
	if err != nil {
		return nil, err
	}
	return caption, nil
}

// Delete 删除说明文字及其历史，不存在时返回 false。
func (s *CaptionService) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		caption, err := findCaption(tx, id)
		if err != nil {
			if errors.Is(err, ErrCaptionNotFound) {
				return nil
			}
			return err
		}
		if err := s.ledger.purge(tx, []string{caption.ID}); err != nil {
			return err
		}
		if err := tx.Delete(&db.Caption{}, "id = ?", caption.ID).Error; err != nil {
			return err
		}
		deleted = true
		return syncCaptionCount(tx, caption.CaptionSetID)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// History 返回说明文字及其版本列表（最新在前）。
func (s *CaptionService) History(ctx context.Context, id string) (*CaptionHistory, error) {
	var history *CaptionHistory
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		caption, err := findCaption(tx, id)
		if err != nil {
			return err
		}
		versions, err := s.ledger.History(tx, caption.ID)
		if err != nil {
			return err
		}
		history = &CaptionHistory{Caption: *caption, Versions: versions, TotalVersions: len(versions)}
		return nil
	})
	return history, err
}

// ImportFromFiles 为数据集中带有配对 .txt 说明、但在集合中还没有说明文字的文件创建 imported 说明。
func (s *CaptionService) ImportFromFiles(ctx context.Context, captionSetID string) (int, error) {
	imported := 0
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		set, err := findCaptionSet(tx, captionSetID)
		if err != nil {
			return err
		}

		var rows []struct {
			ID              string
			ImportedCaption *string
		}
		if err := tx.Table("dataset_files").
			Select("tracked_files.id, tracked_files.imported_caption").
			Joins("JOIN tracked_files ON tracked_files.id = dataset_files.file_id").
			Where("dataset_files.dataset_id = ? AND tracked_files.imported_caption IS NOT NULL", set.DatasetID).
			Order("dataset_files.order_index asc").
			Scan(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			if row.ImportedCaption == nil || *row.ImportedCaption == "" {
				continue
			}
			existing, err := findCaptionForFile(tx, set.ID, row.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			caption := db.Caption{
				CaptionSetID: set.ID,
				FileID:       row.ID,
				Text:         *row.ImportedCaption,
				Source:       db.SourceImported,
			}
			if err := tx.Create(&caption).Error; err != nil {
				return err
			}
			imported++
		}

		if imported == 0 {
			return nil
		}
		return syncCaptionCount(tx, set.ID)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("imported captions from paired files",
		zap.String("caption_set_id", captionSetID),
		zap.Int("imported", imported),
	)
	return imported, nil
}

func (s *CaptionService) upsert(tx *gorm.DB, set *db.CaptionSet, input CaptionInput) (*db.Caption, bool, error) {
	source, err := validateCaptionInput(input)
	if err != nil {
		return nil, false, err
	}

	file, err := s.files.LookupFile(tx, input.FileID)
	if err != nil {
		return nil, false, err
	}
	if file == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrFileNotFound, input.FileID)
	}

	flags, err := db.EncodeQualityFlags(input.QualityFlags)
	if err != nil {
		return nil, false, invalidInput("quality_flags: %v", err)
	}

	caption, err := findCaptionForFile(tx, set.ID, input.FileID)
	if err != nil {
		return nil, false, err
	}

	created := caption == nil
	if created {
		caption = &db.Caption{
			CaptionSetID: set.ID,
			FileID:       input.FileID,
			Text:         input.Text,
			Source:       source,
			VisionModel:  input.VisionModel,
			QualityScore: input.QualityScore,
			QualityFlags: flags,
		}
		if err := tx.Create(caption).Error; err != nil {
			return nil, false, err
		}
		if err := syncCaptionCount(tx, set.ID); err != nil {
			return nil, false, err
		}
	} else {
		operation := db.OpManualEdit
		if source != db.SourceManual {
			operation = db.AutoGenerateOperation(source)
		}
		description := fmt.Sprintf("Updated caption from %s to %s", caption.Source, source)
		if _, err := s.ledger.Snapshot(tx, caption, operation, description); err != nil {
			return nil, false, err
		}

		caption.Text = input.Text
		caption.Source = source
		if input.VisionModel != nil {
			caption.VisionModel = input.VisionModel
		}
		if input.QualityScore != nil {
			caption.QualityScore = input.QualityScore
		}
		if flags != nil {
			caption.QualityFlags = flags
		}
		if err := tx.Save(caption).Error; err != nil {
			return nil, false, err
		}
	}

	if input.QualityScore != nil {
		if err := s.quality.UpdateQuality(tx, input.FileID, set.DatasetID, *input.QualityScore, flags); err != nil {
			return nil, false, err
		}
	}
	return caption, created, nil
}

func validateCaptionInput(input CaptionInput) (db.CaptionSource, error) {
	if input.FileID == "" {
		return "", invalidInput("file_id is required")
	}
	if input.Text == "" {
		return "", invalidInput("text is required")
	}
	source := input.Source
	if source == "" {
		source = db.SourceManual
	}
	if !source.Valid() {
		return "", invalidInput("unsupported source %q", input.Source)
	}
	if input.QualityScore != nil && (*input.QualityScore < 0 || *input.QualityScore > 1) {
		return "", invalidInput("quality_score must be between 0 and 1")
	}
	return source, nil
}

func findCaption(tx *gorm.DB, id string) (*db.Caption, error) {
	var caption db.Caption
	if err := tx.Where("id = ?", id).First(&caption).Error; err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", ErrCaptionNotFound, id))
	}
	return &caption, nil
}

func findCaptionForFile(tx *gorm.DB, captionSetID, fileID string) (*db.Caption, error) {
	var caption db.Caption
	if err := tx.Where("caption_set_id = ? AND file_id = ?", captionSetID, fileID).
		First(&caption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &caption, nil
}

func findCaptionSet(tx *gorm.DB, id string) (*db.CaptionSet, error) {
	var set db.CaptionSet
	if err := tx.Where("id = ?", id).First(&set).Error; err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", ErrCaptionSetNotFound, id))
	}
	return &set, nil
}

// listCaptions 返回集合内全部说明文字，顺序即批量操作的遍历顺序。
func listCaptions(tx *gorm.DB, captionSetID string) ([]db.Caption, error) {
	captions := make([]db.Caption, 0)
	if err := tx.Where("caption_set_id = ?", captionSetID).
		Order("created_date asc, id asc").
		Find(&captions).Error; err != nil {
		return nil, err
	}
	return captions, nil
}

// syncCaptionCount 用实时计数重算 caption_count，避免计数漂移。
func syncCaptionCount(tx *gorm.DB, captionSetID string) error {
	var count int64
	if err := tx.Model(&db.Caption{}).
		Where("caption_set_id = ?", captionSetID).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&db.CaptionSet{}).
		Where("id = ?", captionSetID).
		UpdateColumn("caption_count", count).Error
}
