package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusDelivering     = "delivering"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 推广档案状态常量
const (
	AffiliateProfileStatusActive   = "active"
	AffiliateProfileStatusDisabled = "disabled"
)

// 归因佣金（新账本）状态常量
const (
	AttributionCommissionStatusPending  = "pending"
	AttributionCommissionStatusApproved = "approved"
	AttributionCommissionStatusRejected = "rejected"
)

// 老账本佣金状态常量
const (
	ReferralCommissionStatusPending  = "pending"
	ReferralCommissionStatusApproved = "approved"
	ReferralCommissionStatusPaid     = "paid"
)

// 老账本佣金来源常量
const (
	ReferralCommissionSourceSignup          = "signup_referral"
	ReferralCommissionSourceOrder           = "referral_order"
	ReferralCommissionSourceAttributionSync = "attribution_sync"
)

// 提现申请状态常量
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusPaid       = "paid"
	PayoutStatusRejected   = "rejected"
)

// 提现审核动作常量
const (
	PayoutActionPay    = "pay"
	PayoutActionReject = "reject"
)

// 提现方式常量
const (
	PayoutMethodBank   = "bank"
	PayoutMethodPayPal = "paypal"
)

// 支付方式常量
const (
	PaymentMethodOnline = "online"
	PaymentMethodCOD    = "cod"
)

// 设置键常量
const (
	SettingKeySiteConfig      = "site_config"
	SettingKeyAffiliateConfig = "affiliate_config"
	SettingKeyPayoutFeeConfig = "payout_fee_config"
	SettingKeyOrderConfig     = "order_config"
)

// 订单设置字段常量
const (
	SettingFieldShippingFee  = "shipping_fee"
	SettingFieldCODSurcharge = "cod_surcharge"
)

// 异步任务类型常量
const (
	TaskCommissionProcess  = "commission:process"
	TaskCommissionBulkSync = "commission:bulk_sync"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 队列名称常量
const (
	QueueDefault = "default"
)
