package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// respondServiceError 按领域错误映射状态码，存储错误只返回 fallback 文案。
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidOperation),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDuplicateName):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		a.log.Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func parsePositiveQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// captionPayload 把存储的质量标记解码为列表后输出。
func captionPayload(caption *db.Caption) gin.H {
	flags, _ := db.DecodeQualityFlags(caption.QualityFlags)
	return gin.H{
		"id":             caption.ID,
		"caption_set_id": caption.CaptionSetID,
		"file_id":        caption.FileID,
		"text":           caption.Text,
		"source":         caption.Source,
		"vision_model":   caption.VisionModel,
		"quality_score":  caption.QualityScore,
		"quality_flags":  flags,
		"created_date":   caption.CreatedAt,
		"updated_date":   caption.UpdatedAt,
	}
}
