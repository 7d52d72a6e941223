package handler

import (
	"net/http"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/service"
	"github.com/gin-gonic/gin"
)

type captionSetCreateRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	Style         string  `json:"style"`
	MaxLength     *int    `json:"max_length"`
	CustomPrompt  *string `json:"custom_prompt"`
	TriggerPhrase *string `json:"trigger_phrase"`
}

type captionSetUpdateRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Style         *string `json:"style"`
	MaxLength     *int    `json:"max_length"`
	CustomPrompt  *string `json:"custom_prompt"`
	TriggerPhrase *string `json:"trigger_phrase"`
}

func captionSetPayload(set *db.CaptionSet, canRollback bool) gin.H {
	return gin.H{
		"id":                     set.ID,
		"dataset_id":             set.DatasetID,
		"name":                   set.Name,
		"description":            set.Description,
		"style":                  set.Style,
		"max_length":             set.MaxLength,
		"custom_prompt":          set.CustomPrompt,
		"trigger_phrase":         set.TriggerPhrase,
		"caption_count":          set.CaptionCount,
		"created_date":           set.CreatedAt,
		"updated_date":           set.UpdatedAt,
		"can_rollback_bulk_edit": canRollback,
	}
}

// CreateCaptionSet 在数据集下创建说明文字集合
func (a *API) CreateCaptionSet(c *gin.Context) {
	var req captionSetCreateRequest
	if !bindJSON(c, &req, "集合名称不能为空") {
		return
	}

	set, err := a.captionSets.Create(c.Request.Context(), c.Param("id"), service.CaptionSetInput{
		Name:          req.Name,
		Description:   req.Description,
		Style:         req.Style,
		MaxLength:     req.MaxLength,
		CustomPrompt:  req.CustomPrompt,
		TriggerPhrase: req.TriggerPhrase,
	})
	if err != nil {
		a.respondServiceError(c, err, "创建集合失败")
		return
	}
	c.JSON(http.StatusCreated, captionSetPayload(set, false))
}

// GetCaptionSet 获取集合详情，附带是否可以撤销批量编辑
func (a *API) GetCaptionSet(c *gin.Context) {
	ctx := c.Request.Context()
	set, err := a.captionSets.Get(ctx, c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "获取集合失败")
		return
	}

	canRollback, err := a.rollbacks.CanRollback(ctx, set.ID)
	if err != nil {
		a.respondServiceError(c, err, "获取集合失败")
		return
	}
	c.JSON(http.StatusOK, captionSetPayload(set, canRollback))
}

// UpdateCaptionSet 部分更新集合
func (a *API) UpdateCaptionSet(c *gin.Context) {
	var req captionSetUpdateRequest
	if !bindJSON(c, &req, "请求格式错误") {
		return
	}

	ctx := c.Request.Context()
	set, err := a.captionSets.Update(ctx, c.Param("id"), service.CaptionSetUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Style:         req.Style,
		MaxLength:     req.MaxLength,
		CustomPrompt:  req.CustomPrompt,
		TriggerPhrase: req.TriggerPhrase,
	})
	if err != nil {
		a.respondServiceError(c, err, "更新集合失败")
		return
	}

	canRollback, err := a.rollbacks.CanRollback(ctx, set.ID)
	if err != nil {
		a.respondServiceError(c, err, "更新集合失败")
		return
	}
	c.JSON(http.StatusOK, captionSetPayload(set, canRollback))
}

// DeleteCaptionSet 删除集合及其说明文字
func (a *API) DeleteCaptionSet(c *gin.Context) {
	if err := a.captionSets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.respondServiceError(c, err, "删除集合失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "集合已删除"})
}
