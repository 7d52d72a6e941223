package handler

import (
	"net/http"

	"github.com/captionfoundry/internal/textops"
	"github.com/gin-gonic/gin"
)

type bulkEditRequest struct {
	Operations []textops.Spec `json:"operations"`
}

// PreviewBulkEdit 预览批量编辑结果
func (a *API) PreviewBulkEdit(c *gin.Context) {
	var req bulkEditRequest
	if !bindJSON(c, &req, "操作列表格式错误") {
		return
	}

	preview, err := a.bulkEdits.Preview(c.Request.Context(), c.Param("id"), req.Operations)
	if err != nil {
		a.respondServiceError(c, err, "预览批量编辑失败")
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ApplyBulkEdit 执行批量编辑
func (a *API) ApplyBulkEdit(c *gin.Context) {
	var req bulkEditRequest
	if !bindJSON(c, &req, "操作列表格式错误") {
		return
	}

	result, err := a.bulkEdits.Apply(c.Request.Context(), c.Param("id"), req.Operations)
	if err != nil {
		a.respondServiceError(c, err, "批量编辑失败")
		return
	}
	c.JSON(http.StatusOK, result)
}

// PreviewBulkRollback 预览撤销最近一次批量编辑
func (a *API) PreviewBulkRollback(c *gin.Context) {
	preview, err := a.rollbacks.PreviewBulkRollback(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "预览批量回滚失败")
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ApplyBulkRollback 撤销最近一次批量编辑
func (a *API) ApplyBulkRollback(c *gin.Context) {
	result, err := a.rollbacks.ApplyBulkRollback(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServiceError(c, err, "批量回滚失败")
		return
	}
	c.JSON(http.StatusOK, result)
}
