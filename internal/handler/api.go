package handler

import (
	"github.com/captionfoundry/internal/logger"
	"github.com/captionfoundry/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	captions    *service.CaptionService
	captionSets *service.CaptionSetService
	bulkEdits   *service.BulkEditService
	rollbacks   *service.RollbackService
	log         *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, log *zap.Logger) *API {
	log = logger.OrNop(log)
	return &API{
		captions:    service.NewCaptionService(gdb, log.Named("captions")),
		captionSets: service.NewCaptionSetService(gdb, log.Named("caption_sets")),
		bulkEdits:   service.NewBulkEditService(gdb, log.Named("bulk_edit")),
		rollbacks:   service.NewRollbackService(gdb, log.Named("rollback")),
		log:         log,
	}
}
