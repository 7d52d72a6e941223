package handler

import (
	"net/http"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/service"
	"github.com/gin-gonic/gin"
)

type captionRequest struct {
	FileID       string           `json:"file_id" binding:"required"`
	Text         string           `json:"text" binding:"required"`
	Source       db.CaptionSource `json:"source"`
	VisionModel  *string          `json:"vision_model"`
	QualityScore *float64         `json:"quality_score"`
	QualityFlags []string         `json:"quality_flags"`
}

func (r captionRequest) input() service.CaptionInput {
	return service.CaptionInput{
		FileID:       r.FileID,
		Text:         r.Text,
		Source:       r.Source,
		VisionModel:  r.VisionModel,
		QualityScore: r.QualityScore,
		QualityFlags: r.QualityFlags,
	}
}

type batchCaptionRequest struct {
	Captions []captionRequest `json:"captions" binding:"required"`
}

type captionTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListCaptions 分页获取集合内的说明文字
func (a *API) ListCaptions(c *gin.Context) {
	page := parsePositiveQuery(c, "page", 1)
	pageSize := parsePositiveQuery(c, "page_size", 50)

	captions, err := a.captions.List(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		a.respondServiceError(c, err, "获取说明文字列表失败")
		return
	}

	response := make([]gin.H, 0, len(captions))
	for i := range captions {
		response = append(response, captionPayload(&captions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"captions": response, "page": page, "page_size": pageSize})
}

// UpsertCaption 为文件创建或更新说明文字
func (a *API) UpsertCaption(c *gin.Context) {
	var req captionRequest
	if !bindJSON(c, &req, "file_id 和 text 不能为空") {
		return
	}

	caption, err := a.captions.Upsert(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		a.respondServiceError(c, err, "保存说明文字失败")
		return
	}
	c.JSON(http.StatusOK, captionPayload(caption))
}

// BatchUpsertCaptions 批量写入说明文字
func (a *API) BatchUpsertCaptions(c *gin.Context) {
	var req batchCaptionRequest
	if !bindJSON(c, &req, "请求格式错误") {
		return
	}

	inputs := make([]service.CaptionInput, 0, len(req.Captions))
	for _, item := range req.Captions {
		inputs = append(inputs, item.input())
	}

	result, err := a.captions.BatchUpsert(c.Request.Context(), c.Param("id"), inputs)
	if err != nil {
		a.respondServiceError(c, err, "批量保存说明文字失败")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ImportCaptions 从配对的说明文件导入
func (a *API) ImportCaptions(c *gin.Context) {
	imported, err := a.captions.ImportFromFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "导入说明文字失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

// GetFileCaption 获取文件在集合中的说明文字
func (a *API) GetFileCaption(c *gin.Context) {
	view, err := a.captions.GetForFile(c.Request.Context(), c.Param("id"), c.Param("file_id"))
	if err != nil {
		a.respondServiceError(c, err, "获取说明文字失败")
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetCaption 获取单条说明文字
func (a *API) GetCaption(c *gin.Context) {
	caption, err := a.captions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "获取说明文字失败")
		return
	}
	c.JSON(http.StatusOK, captionPayload(caption))
}

// UpdateCaption 手动修改说明文字
func (a *API) UpdateCaption(c *gin.Context) {
	var req captionTextRequest
	if !bindJSON(c, &req, "说明文字不能为空") {
		return
	}

	caption, err := a.captions.UpdateText(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		a.respondServiceError(c, err, "更新说明文字失败")
		return
	}
	c.JSON(http.StatusOK, captionPayload(caption))
}

// DeleteCaption 删除说明文字及其历史
func (a *API) DeleteCaption(c *gin.Context) {
	deleted, err := a.captions.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "删除说明文字失败")
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "说明文字不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "说明文字已删除"})
}

// GetCaptionHistory 获取版本历史
func (a *API) GetCaptionHistory(c *gin.Context) {
	history, err := a.captions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "获取版本历史失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"caption":        captionPayload(&history.Caption),
		"versions":       history.Versions,
		"total_versions": history.TotalVersions,
	})
}

// RollbackCaption 回滚到指定版本
func (a *API) RollbackCaption(c *gin.Context) {
	caption, err := a.rollbacks.RollbackCaption(c.Request.Context(), c.Param("id"), c.Param("version_id"))
	if err != nil {
		a.respondServiceError(c, err, "回滚说明文字失败")
		return
	}
	c.JSON(http.StatusOK, captionPayload(caption))
}
