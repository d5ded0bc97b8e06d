package router

import (
	"fmt"
	"strings"

	"github.com/grocer-next/internal/cache"
	"github.com/grocer-next/internal/config"
	adminhandlers "github.com/grocer-next/internal/http/handlers/admin"
	publichandlers "github.com/grocer-next/internal/http/handlers/public"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "gn"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:slug", publicHandler.GetProductBySlug)
			public.GET("/categories", publicHandler.GetCategories)
			// 推广点击埋点（游客可访问）
			public.POST("/affiliate/click", publicHandler.TrackAffiliateClick)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.RegisterUser)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.LoginUser)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me/profile", publicHandler.UpdateCurrentUser)
			user.PUT("/me/password", publicHandler.ChangeUserPassword)

			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			user.POST("/orders/:id/pay", publicHandler.PayOrder)

			user.POST("/affiliate/open", publicHandler.OpenAffiliate)
			user.GET("/affiliate/dashboard", publicHandler.GetAffiliateDashboard)
			user.GET("/affiliate/commissions", publicHandler.ListAffiliateCommissions)
			user.GET("/affiliate/referral-commissions", publicHandler.ListAffiliateReferralCommissions)
			user.GET("/affiliate/payout-methods", publicHandler.ListPayoutMethods)
			user.POST("/payouts", publicHandler.ApplyPayout)
			user.GET("/payouts", publicHandler.ListPayouts)
			user.GET("/payouts/:id", publicHandler.GetPayout)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 商品与分类管理
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.POST("/products", adminHandler.CreateAdminProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateAdminProduct)
				authorized.GET("/categories", adminHandler.GetAdminCategories)
				authorized.POST("/categories", adminHandler.CreateAdminCategory)

				// 订单管理
				authorized.GET("/orders", adminHandler.ListAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.PATCH("/orders/:id", adminHandler.UpdateAdminOrderStatus)

				// 佣金与归因管理
				authorized.GET("/commissions", adminHandler.ListAttributionCommissions)
				authorized.GET("/referral-commissions", adminHandler.ListReferralCommissions)
				authorized.POST("/commissions/:id/approve", adminHandler.ApproveCommission)
				authorized.POST("/commissions/:id/reject", adminHandler.RejectCommission)
				authorized.POST("/commissions/bulk-sync", adminHandler.BulkSyncCommissions)
				authorized.GET("/commissions/sync-status", adminHandler.GetSyncStatus)
				authorized.GET("/attributions", adminHandler.ListAttributions)

				// 推广用户管理
				authorized.GET("/affiliates", adminHandler.ListAffiliateUsers)
				authorized.PUT("/affiliates/:id/status", adminHandler.UpdateAffiliateUserStatus)
				authorized.PUT("/affiliates/batch-status", adminHandler.BatchUpdateAffiliateUserStatus)

				// 提现管理
				authorized.GET("/payouts", adminHandler.ListAdminPayouts)
				authorized.POST("/payouts/:id/review", adminHandler.ReviewPayout)

				// 设置管理
				authorized.GET("/settings/affiliate", adminHandler.GetAffiliateSettings)
				authorized.PUT("/settings/affiliate", adminHandler.UpdateAffiliateSettings)
				authorized.GET("/settings/:key", adminHandler.GetSetting)
				authorized.PUT("/settings/:key", adminHandler.UpdateSetting)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
