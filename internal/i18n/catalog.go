package i18n

// catalog 消息文案表，key 与响应错误码一一对应
var catalog = map[string]map[string]string{
	"en-US": {
		"error.bad_request":                 "invalid request",
		"error.internal":                    "internal server error",
		"error.save_failed":                 "failed to save data",
		"error.not_found":                   "resource not found",
		"error.unauthorized":                "unauthorized",
		"error.forbidden":                   "permission denied",
		"error.auth_header_missing":         "missing authorization header",
		"error.auth_header_invalid":         "invalid authorization header",
		"error.token_invalid":               "invalid or expired token",
		"error.token_revoked":               "token has been revoked",
		"error.jwt_secret_missing":          "jwt secret is not configured",
		"error.login_failed":                "incorrect username or password",
		"error.login_too_many":              "too many login attempts, please try again later",
		"error.rate_limited":                "too many requests, please retry in %d seconds",
		"error.rate_limit_unavailable":      "service is busy, please try again later",
		"error.user_disabled":               "account is disabled",
		"error.user_not_found":              "user not found",
		"error.email_exists":                "email is already registered",
		"error.email_invalid":               "invalid email address",
		"error.password_policy":             "password must be at least 8 characters",
		"error.password_min_length":         "password must be at least %d characters",
		"error.password_require_upper":      "password must contain an uppercase letter",
		"error.password_require_lower":      "password must contain a lowercase letter",
		"error.password_require_number":     "password must contain a digit",
		"error.password_require_special":    "password must contain a special character",
		"error.user_id_invalid":             "missing user identity",
		"error.user_id_type_invalid":        "invalid user identity",
		"error.admin_id_invalid":            "missing admin identity",
		"error.admin_id_type_invalid":       "invalid admin identity",
		"error.password_invalid":            "incorrect password",
		"error.product_not_available":       "product is not available",
		"error.product_price_invalid":       "invalid product price",
		"error.slug_exists":                 "slug is already in use",
		"error.stock_insufficient":          "insufficient stock",
		"error.order_not_found":             "order not found",
		"error.order_status_invalid":        "order status does not allow this operation",
		"error.order_empty":                 "order must contain at least one item",
		"error.affiliate_not_opened":        "affiliate profile has not been opened",
		"error.affiliate_disabled":          "affiliate profile is disabled",
		"error.affiliate_exists":            "affiliate profile already exists",
		"error.affiliate_code_invalid":      "invalid referral code",
		"error.attribution_not_found":       "attribution record not found",
		"error.commission_not_found":        "commission record not found",
		"error.commission_status_invalid":   "commission status does not allow this operation",
		"error.payout_amount_invalid":       "invalid payout amount",
		"error.payout_below_minimum":        "payout amount is below the minimum",
		"error.payout_insufficient_balance": "insufficient balance",
		"error.payout_method_invalid":       "unsupported payout method",
		"error.payout_fields_missing":       "payout account information is incomplete",
		"error.payout_fee_exceeds_amount":   "fees exceed the payout amount",
		"error.payout_pending_exists":       "a pending payout request already exists",
		"error.payout_not_found":            "payout request not found",
		"error.payout_status_invalid":       "payout status does not allow this operation",
		"error.setting_invalid":             "invalid setting value",
	},
	"zh-CN": {
		"error.bad_request":                 "请求参数有误",
		"error.internal":                    "服务器内部错误",
		"error.save_failed":                 "数据保存失败",
		"error.not_found":                   "资源不存在",
		"error.unauthorized":                "未登录或登录已过期",
		"error.forbidden":                   "没有操作权限",
		"error.auth_header_missing":         "缺少认证信息",
		"error.auth_header_invalid":         "认证信息格式错误",
		"error.token_invalid":               "登录凭证无效或已过期",
		"error.token_revoked":               "登录凭证已失效",
		"error.jwt_secret_missing":          "JWT 密钥未配置",
		"error.login_failed":                "用户名或密码错误",
		"error.login_too_many":              "登录尝试过于频繁，请稍后再试",
		"error.rate_limited":                "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable":      "服务繁忙，请稍后再试",
		"error.user_disabled":               "账号已被禁用",
		"error.user_not_found":              "用户不存在",
		"error.email_exists":                "邮箱已被注册",
		"error.email_invalid":               "邮箱格式不正确",
		"error.password_policy":             "密码长度至少 8 位",
		"error.password_min_length":         "密码长度至少 %d 位",
		"error.password_require_upper":      "密码需包含大写字母",
		"error.password_require_lower":      "密码需包含小写字母",
		"error.password_require_number":     "密码需包含数字",
		"error.password_require_special":    "密码需包含特殊字符",
		"error.user_id_invalid":             "缺少用户身份信息",
		"error.user_id_type_invalid":        "用户身份信息无效",
		"error.admin_id_invalid":            "缺少管理员身份信息",
		"error.admin_id_type_invalid":       "管理员身份信息无效",
		"error.password_invalid":            "密码不正确",
		"error.product_not_available":       "商品不可购买",
		"error.product_price_invalid":       "商品价格无效",
		"error.slug_exists":                 "标识已被占用",
		"error.stock_insufficient":          "商品库存不足",
		"error.order_not_found":             "订单不存在",
		"error.order_status_invalid":        "当前订单状态不允许该操作",
		"error.order_empty":                 "订单至少包含一件商品",
		"error.affiliate_not_opened":        "推广账户尚未开通",
		"error.affiliate_disabled":          "推广账户已被禁用",
		"error.affiliate_exists":            "推广账户已存在",
		"error.affiliate_code_invalid":      "推广码无效",
		"error.attribution_not_found":       "归因记录不存在",
		"error.commission_not_found":        "佣金记录不存在",
		"error.commission_status_invalid":   "当前佣金状态不允许该操作",
		"error.payout_amount_invalid":       "提现金额无效",
		"error.payout_below_minimum":        "提现金额低于最低限额",
		"error.payout_insufficient_balance": "账户余额不足",
		"error.payout_method_invalid":       "不支持的提现方式",
		"error.payout_fields_missing":       "提现账户信息不完整",
		"error.payout_fee_exceeds_amount":   "手续费超过提现金额",
		"error.payout_pending_exists":       "已有待处理的提现申请",
		"error.payout_not_found":            "提现申请不存在",
		"error.payout_status_invalid":       "当前提现状态不允许该操作",
		"error.setting_invalid":             "配置项取值无效",
	},
}
