package admin

import (
	"errors"
	"strings"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/http/response"
	"github.com/grocer-next/internal/service"

	"github.com/gin-gonic/gin"
)

var adminSettingKeys = map[string]bool{
	constants.SettingKeySiteConfig:      true,
	constants.SettingKeyAffiliateConfig: true,
	constants.SettingKeyPayoutFeeConfig: true,
	constants.SettingKeyOrderConfig:     true,
}

// GetSetting 读取一个设置项
func (h *Handler) GetSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !adminSettingKeys[key] {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}

	value, err := h.SettingService.GetByKey(key)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"key": key, "value": value})
}

// UpdateSetting 更新一个设置项，写入前按键归一化并校验
func (h *Handler) UpdateSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !adminSettingKeys[key] {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	value, err := h.SettingService.Update(key, body)
	if err != nil {
		if errors.Is(err, service.ErrSettingInvalid) {
			respondError(c, response.CodeBadRequest, "error.setting_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, gin.H{"key": key, "value": value})
}

// GetAffiliateSettings 读取推广返利设置（含默认值合并）
func (h *Handler) GetAffiliateSettings(c *gin.Context) {
	setting, err := h.SettingService.GetAffiliateSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, setting)
}

// UpdateAffiliateSettings 更新推广返利设置
func (h *Handler) UpdateAffiliateSettings(c *gin.Context) {
	var body service.AffiliateSetting
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	setting, err := h.SettingService.UpdateAffiliateSetting(body)
	if err != nil {
		if errors.Is(err, service.ErrSettingInvalid) {
			respondError(c, response.CodeBadRequest, "error.setting_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, setting)
}
