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

// ListAttributionCommissions 管理端查询归因佣金列表
func (h *Handler) ListAttributionCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	profileID, _ := strconv.ParseUint(c.Query("affiliate_profile_id"), 10, 64)

	filter := repository.AttributionCommissionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: uint(profileID),
		OrderNo:            strings.TrimSpace(c.Query("order_no")),
		Status:             strings.TrimSpace(c.Query("status")),
		Keyword:            strings.TrimSpace(c.Query("keyword")),
	}
	if synced := strings.TrimSpace(c.Query("synced")); synced != "" {
		value := synced == "true" || synced == "1"
		filter.SyncedToLegacy = &value
	}

	rows, total, err := h.CommissionService.ListAttributionCommissions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ListReferralCommissions 管理端查询结算账本佣金列表
func (h *Handler) ListReferralCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	profileID, _ := strconv.ParseUint(c.Query("affiliate_profile_id"), 10, 64)

	rows, total, err := h.CommissionService.ListReferralCommissions(repository.ReferralCommissionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: uint(profileID),
		Source:             strings.TrimSpace(c.Query("source")),
		Status:             strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ApproveCommission 审批通过归因佣金并同步到结算账本
func (h *Handler) ApproveCommission(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	row, err := h.SyncService.Approve(uint(id), adminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommissionNotFound):
			respondError(c, response.CodeNotFound, "error.commission_not_found", nil)
		case errors.Is(err, service.ErrCommissionStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.commission_status_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, row)
}

// RejectCommissionRequest 驳回请求
type RejectCommissionRequest struct {
	Reason string `json:"reason"`
}

// RejectCommission 驳回归因佣金
func (h *Handler) RejectCommission(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req RejectCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	row, err := h.SyncService.Reject(uint(id), adminID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommissionNotFound):
			respondError(c, response.CodeNotFound, "error.commission_not_found", nil)
		case errors.Is(err, service.ErrCommissionStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.commission_status_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, row)
}

// BulkSyncCommissions 触发批量同步，返回 {synced, skipped, failed} 计数
func (h *Handler) BulkSyncCommissions(c *gin.Context) {
	report, err := h.SyncService.BulkSync()
	if err != nil {
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, report)
}

// GetSyncStatus 查询两本账的同步状态计数，每次实时统计
func (h *Handler) GetSyncStatus(c *gin.Context) {
	counts, err := h.SyncService.GetSyncStatus()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, counts)
}

// ListAttributions 管理端查询归因记录列表
func (h *Handler) ListAttributions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	profileID, _ := strconv.ParseUint(c.Query("affiliate_profile_id"), 10, 64)
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)

	rows, total, err := h.AttributionService.ListAdminAttributions(repository.AttributionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: uint(profileID),
		UserID:             uint(userID),
		VisitorKey:         strings.TrimSpace(c.Query("visitor_key")),
		OnlyActive:         c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
