package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/grocer-next/internal/http/response"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateTrackClickRequest 推广点击记录请求
type AffiliateTrackClickRequest struct {
	AffiliateCode string `json:"affiliate_code" binding:"required"`
	VisitorKey    string `json:"visitor_key"`
	SessionKey    string `json:"session_key"`
	LandingPath   string `json:"landing_path"`
	Referrer      string `json:"referrer"`
}

// TrackAffiliateClick 记录推广点击。无效推广码静默成功，不向访客暴露码是否存在。
func (h *Handler) TrackAffiliateClick(c *gin.Context) {
	var req AffiliateTrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if h.AttributionService != nil {
		if _, err := h.AttributionService.RecordClick(service.AttributionTrackClickInput{
			AffiliateCode: req.AffiliateCode,
			VisitorKey:    req.VisitorKey,
			SessionKey:    req.SessionKey,
			LandingPath:   req.LandingPath,
			Referrer:      req.Referrer,
			ClientIP:      c.ClientIP(),
			UserAgent:     c.GetHeader("User-Agent"),
		}); err != nil {
			respondError(c, response.CodeInternal, "error.save_failed", err)
			return
		}
	}
	response.Success(c, gin.H{"ok": true})
}

// OpenAffiliate 开通推广返利
func (h *Handler) OpenAffiliate(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	profile, err := h.AffiliateService.OpenAffiliate(uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateConfigOff):
			respondError(c, response.CodeForbidden, "error.forbidden", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeForbidden, "error.user_disabled", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		case errors.Is(err, service.ErrAffiliateCodeInvalid):
			respondError(c, response.CodeInternal, "error.affiliate_code_invalid", err)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, profile)
}

// GetAffiliateDashboard 查询我的推广面板
func (h *Handler) GetAffiliateDashboard(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	dashboard, err := h.AffiliateService.GetUserDashboard(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, dashboard)
}

// ListAffiliateCommissions 查询我的归因佣金记录
func (h *Handler) ListAffiliateCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	rows, total, err := h.AffiliateService.ListUserAttributionCommissions(uid, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ListAffiliateReferralCommissions 查询我的结算账本佣金记录
func (h *Handler) ListAffiliateReferralCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	rows, total, err := h.AffiliateService.ListUserReferralCommissions(uid, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// PayoutApplyRequest 提现申请请求
type PayoutApplyRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Country     string `json:"country" binding:"required"`
	AccountName string `json:"account_name"`
	AccountNo   string `json:"account_no"`
	BankName    string `json:"bank_name"`
	BankBranch  string `json:"bank_branch"`
	SaveMethod  bool   `json:"save_method"`
}

var payoutApplyErrorRules = []mappedHandlerError{
	{target: service.ErrAffiliateConfigOff, code: response.CodeForbidden, key: "error.forbidden"},
	{target: service.ErrAffiliateNotOpened, code: response.CodeBadRequest, key: "error.affiliate_not_opened"},
	{target: service.ErrAffiliateDisabled, code: response.CodeForbidden, key: "error.affiliate_disabled"},
	{target: service.ErrPayoutAmountInvalid, code: response.CodeBadRequest, key: "error.payout_amount_invalid"},
	{target: service.ErrPayoutBelowMinimum, code: response.CodeBadRequest, key: "error.payout_below_minimum"},
	{target: service.ErrPayoutInsufficientFunds, code: response.CodeBadRequest, key: "error.payout_insufficient_balance"},
	{target: service.ErrPayoutMethodInvalid, code: response.CodeBadRequest, key: "error.payout_method_invalid"},
	{target: service.ErrPayoutFieldsMissing, code: response.CodeBadRequest, key: "error.payout_fields_missing"},
	{target: service.ErrPayoutFeeExceedsAmount, code: response.CodeBadRequest, key: "error.payout_fee_exceeds_amount"},
	{target: service.ErrPayoutPendingExists, code: response.CodeBadRequest, key: "error.payout_pending_exists"},
}

// ApplyPayout 提交提现申请
func (h *Handler) ApplyPayout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req PayoutApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, err := models.NewMoneyFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.payout_amount_invalid", nil)
		return
	}

	row, err := h.PayoutService.RequestPayout(uid, service.PayoutApplyInput{
		Amount:      amount,
		Method:      req.Method,
		Country:     req.Country,
		AccountName: req.AccountName,
		AccountNo:   req.AccountNo,
		BankName:    req.BankName,
		BankBranch:  req.BankBranch,
		SaveMethod:  req.SaveMethod,
	})
	if err != nil {
		respondWithMappedError(c, err, payoutApplyErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, row)
}

// ListPayouts 查询我的提现申请记录
func (h *Handler) ListPayouts(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	rows, total, err := h.PayoutService.ListUserPayouts(uid, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetPayout 查询我的提现申请详情
func (h *Handler) GetPayout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	payoutID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	row, err := h.PayoutService.GetUserPayout(uid, uint(payoutID))
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			respondError(c, response.CodeNotFound, "error.payout_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, row)
}

// ListPayoutMethods 查询我保存的收款方式
func (h *Handler) ListPayoutMethods(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	rows, err := h.PayoutService.ListPayoutMethods(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, rows)
}
