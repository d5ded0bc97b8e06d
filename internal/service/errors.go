package service

import "errors"

// 业务错误哨兵，handler 层据此映射错误码与多语言文案
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailExists        = errors.New("email already exists")
	ErrEmailInvalid       = errors.New("email invalid")

	ErrAffiliateNotOpened     = errors.New("affiliate profile not opened")
	ErrAffiliateExists        = errors.New("affiliate profile already exists")
	ErrAffiliateDisabled      = errors.New("affiliate profile disabled")
	ErrAffiliateCodeInvalid   = errors.New("affiliate code invalid")
	ErrAffiliateStatusInvalid = errors.New("affiliate profile status invalid")
	ErrAffiliateConfigOff     = errors.New("affiliate program disabled")
	ErrAttributionNotFound    = errors.New("attribution not found")

	ErrProductNotAvailable = errors.New("product not available")
	ErrProductPriceInvalid = errors.New("product price invalid")
	ErrSlugExists          = errors.New("slug already exists")
	ErrStockInsufficient   = errors.New("stock insufficient")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderStatusInvalid  = errors.New("order status invalid")
	ErrOrderEmpty          = errors.New("order has no items")

	ErrCommissionNotFound      = errors.New("commission not found")
	ErrCommissionStatusInvalid = errors.New("commission status invalid")

	ErrPayoutAmountInvalid     = errors.New("payout amount invalid")
	ErrPayoutBelowMinimum      = errors.New("payout amount below minimum")
	ErrPayoutInsufficientFunds = errors.New("payout balance insufficient")
	ErrPayoutMethodInvalid     = errors.New("payout method invalid")
	ErrPayoutFieldsMissing     = errors.New("payout account fields missing")
	ErrPayoutFeeExceedsAmount  = errors.New("payout fee exceeds amount")
	ErrPayoutNotFound          = errors.New("payout request not found")
	ErrPayoutStatusInvalid     = errors.New("payout status invalid")
	ErrPayoutPendingExists     = errors.New("pending payout already exists")

	ErrSettingInvalid = errors.New("setting invalid")
)
