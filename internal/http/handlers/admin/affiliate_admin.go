package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/grocer-next/internal/http/response"
	"github.com/grocer-next/internal/repository"
	"github.com/grocer-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListAffiliateUsers 管理端查询推广用户列表（含统计）
func (h *Handler) ListAffiliateUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.AffiliateService.ListAdminUsers(repository.AffiliateProfileListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
		Status:   strings.TrimSpace(c.Query("status")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// AffiliateProfileStatusRequest 推广档案状态更新请求
type AffiliateProfileStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BatchAffiliateProfileStatusRequest 批量状态更新请求
type BatchAffiliateProfileStatusRequest struct {
	ProfileIDs []uint `json:"profile_ids" binding:"required"`
	Status     string `json:"status" binding:"required"`
}

// UpdateAffiliateUserStatus 管理端更新推广档案状态
func (h *Handler) UpdateAffiliateUserStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req AffiliateProfileStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	row, err := h.AffiliateService.UpdateAffiliateProfileStatus(uint(id), strings.TrimSpace(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.not_found", nil)
		case errors.Is(err, service.ErrAffiliateStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, row)
}

// BatchUpdateAffiliateUserStatus 管理端批量更新推广档案状态
func (h *Handler) BatchUpdateAffiliateUserStatus(c *gin.Context) {
	var req BatchAffiliateProfileStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.ProfileIDs) == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	updated, err := h.AffiliateService.BatchUpdateAffiliateProfileStatus(req.ProfileIDs, strings.TrimSpace(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, gin.H{"updated": updated})
}
