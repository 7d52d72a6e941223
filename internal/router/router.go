package router

import (
	"net/http"

	"github.com/captionfoundry/internal/handler"
	"github.com/captionfoundry/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, log *zap.Logger) *gin.Engine {
	log = logger.OrNop(log)

	r := gin.New()
	r.Use(RequestLogger(log.Named("http")), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/datasets/:id/caption-sets", api.CreateCaptionSet)

		sets := apiGroup.Group("/caption-sets/:id")
		{
			sets.GET("", api.GetCaptionSet)
			sets.PUT("", api.UpdateCaptionSet)
			sets.DELETE("", api.DeleteCaptionSet)

			sets.GET("/captions", api.ListCaptions)
			sets.POST("/captions", api.UpsertCaption)
			sets.POST("/batch", api.BatchUpsertCaptions)
			sets.POST("/import", api.ImportCaptions)
			sets.GET("/files/:file_id", api.GetFileCaption)

			// 批量编辑与撤销
			sets.POST("/bulk-edit-preview", api.PreviewBulkEdit)
			sets.POST("/bulk-edit-apply", api.ApplyBulkEdit)
			sets.POST("/bulk-rollback-preview", api.PreviewBulkRollback)
			sets.POST("/bulk-rollback-apply", api.ApplyBulkRollback)
		}

		captions := apiGroup.Group("/captions/:id")
		{
			captions.GET("", api.GetCaption)
			captions.PUT("", api.UpdateCaption)
			captions.DELETE("", api.DeleteCaption)
			captions.GET("/history", api.GetCaptionHistory)
			captions.POST("/rollback/:version_id", api.RollbackCaption)
		}
	}

	return r
}
