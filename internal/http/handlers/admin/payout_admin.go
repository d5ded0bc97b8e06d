package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/http/response"
	"github.com/grocer-next/internal/repository"
	"github.com/grocer-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListAdminPayouts 管理端查询提现申请列表
func (h *Handler) ListAdminPayouts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	profileID, _ := strconv.ParseUint(c.Query("affiliate_profile_id"), 10, 64)

	rows, total, err := h.PayoutService.ListAdminPayouts(repository.PayoutListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: uint(profileID),
		PayoutNo:           strings.TrimSpace(c.Query("payout_no")),
		Status:             strings.TrimSpace(c.Query("status")),
		Keyword:            strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ReviewPayoutRequest 提现审核请求
type ReviewPayoutRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ReviewPayout 审核提现申请：pay 标记已支付，reject 驳回并退回余额
func (h *Handler) ReviewPayout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req ReviewPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != constants.PayoutActionPay && action != constants.PayoutActionReject {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	row, err := h.PayoutService.ReviewPayout(adminID, uint(id), action, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutNotFound):
			respondError(c, response.CodeNotFound, "error.payout_not_found", nil)
		case errors.Is(err, service.ErrPayoutStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.payout_status_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, row)
}
