package provider

import (
	"github.com/grocer-next/internal/authz"
	"github.com/grocer-next/internal/cache"
	"github.com/grocer-next/internal/config"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/queue"
	"github.com/grocer-next/internal/repository"
	"github.com/grocer-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo       repository.AdminRepository
	UserRepo        repository.UserRepository
	ProductRepo     repository.ProductRepository
	OrderRepo       repository.OrderRepository
	SettingRepo     repository.SettingRepository
	AffiliateRepo   repository.AffiliateRepository
	AttributionRepo repository.AttributionRepository
	CommissionRepo  repository.CommissionRepository
	PayoutRepo      repository.PayoutRepository

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	UserAuthService    *service.UserAuthService
	SettingService     *service.SettingService
	ProductService     *service.ProductService
	OrderService       *service.OrderService
	AffiliateService   *service.AffiliateService
	AttributionService *service.AttributionService
	CommissionService  *service.CommissionService
	SyncService        *service.SyncService
	PayoutService      *service.PayoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.AttributionRepo = repository.NewAttributionRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.AttributionService = service.NewAttributionService(c.AttributionRepo, c.AffiliateRepo, c.UserRepo, c.SettingService)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.AttributionService, c.AffiliateRepo, c.AttributionRepo, c.UserRepo, c.OrderRepo, c.SettingService)
	c.SyncService = service.NewSyncService(c.CommissionRepo, c.AffiliateRepo)
	c.PayoutService = service.NewPayoutService(c.PayoutRepo, c.AffiliateRepo, c.CommissionRepo, c.SettingService, c.Config.Order.Currency)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.UserRepo, c.AttributionRepo, c.CommissionRepo, c.SettingService)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.AttributionService, c.CommissionService)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.SettingService, c.CommissionService, c.QueueClient, c.Config.Order)
}
