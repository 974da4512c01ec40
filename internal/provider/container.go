package provider

import (
	"time"

	"github.com/altan-shop/internal/authz"
	"github.com/altan-shop/internal/cache"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/delivery/echuchu"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/oauth/google"
	"github.com/altan-shop/internal/payment/qpay"
	"github.com/altan-shop/internal/queue"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo        repository.AdminRepository
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	OrderRepo        repository.OrderRepository
	CouponRepo       repository.CouponRepository
	CouponUsageRepo  repository.CouponUsageRepository
	AddressRepo      repository.AddressRepository
	DispatchRepo     repository.DeliveryDispatchRepository
	AuthzAuditRepo   repository.AuthzAuditLogRepository
	ContentRepos     service.ContentRepositories

	// 外部网关，未配置时为 nil
	QPayClient    *qpay.Client
	EchuchuClient *echuchu.Client
	GoogleClient  *google.Client

	// Services
	AuthzService       *authz.Service
	AuthzAuditService  *service.AuthzAuditService
	AuthService        *service.AuthService
	UserAuthService    *service.UserAuthService
	CaptchaService     *service.CaptchaService
	CouponService      *service.CouponService
	CouponAdminService *service.CouponAdminService
	AddressService     *service.AddressService
	DeliveryService    *service.DeliveryService
	SideEffects        *service.OrderSideEffects
	OrderService       *service.OrderService
	PaymentService     *service.PaymentService
	ContentService     *service.ContentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initGateways()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.RefreshTokenRepo = repository.NewRefreshTokenRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.AddressRepo = repository.NewAddressRepository(db)
	c.DispatchRepo = repository.NewDeliveryDispatchRepository(db)
	c.AuthzAuditRepo = repository.NewAuthzAuditLogRepository(db)
	c.ContentRepos = service.ContentRepositories{
		BankAccounts: repository.NewBankAccountRepository(db),
		Banners:      repository.NewBannerRepository(db),
		Partners:     repository.NewPartnerRepository(db),
		Footers:      repository.NewFooterRepository(db),
		GiftSettings: repository.NewGiftSettingRepository(db),
	}
}

func (c *Container) initGateways() {
	cfg := c.Config

	qpayCfg := qpay.Config{
		BaseURL:      cfg.QPay.BaseURL,
		Login:        cfg.QPay.Login,
		Password:     cfg.QPay.Password,
		InvoiceCode:  cfg.QPay.InvoiceCode,
		ReceiverCode: cfg.QPay.ReceiverCode,
		CallbackURL:  cfg.QPayCallbackURL(),
		Timeout:      time.Duration(cfg.QPay.TimeoutMS) * time.Millisecond,
	}
	qpayCfg.Normalize()
	if err := qpay.ValidateConfig(&qpayCfg); err != nil {
		logger.Warnw("provider_qpay_disabled", "error", err)
	} else {
		c.QPayClient = qpay.NewClient(qpayCfg, cache.NewQPayTokenStore())
	}

	if cfg.Echuchu.Enabled {
		courierCfg := echuchu.Config{
			BaseURL: cfg.Echuchu.BaseURL,
			APIKey:  cfg.Echuchu.APIKey,
			Timeout: time.Duration(cfg.Echuchu.TimeoutMS) * time.Millisecond,
		}
		courierCfg.Normalize()
		if err := echuchu.ValidateConfig(&courierCfg); err != nil {
			logger.Warnw("provider_echuchu_disabled", "error", err)
		} else {
			c.EchuchuClient = echuchu.NewClient(courierCfg)
		}
	}

	if cfg.Google.Enabled() {
		c.GoogleClient = google.NewClient(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			TokenURL:     cfg.Google.TokenURL,
			Timeout:      time.Duration(cfg.Google.TimeoutMS) * time.Millisecond,
		})
	}
}

func (c *Container) initServices() {
	cfg := c.Config

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditRepo)

	var googleVerifier service.GoogleVerifier
	if c.GoogleClient != nil {
		googleVerifier = c.GoogleClient
	}
	var courier service.CourierClient
	if c.EchuchuClient != nil {
		courier = c.EchuchuClient
	}
	var gateway service.QPayGateway
	if c.QPayClient != nil {
		gateway = c.QPayClient
	}

	c.AuthService = service.NewAuthService(cfg, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(cfg, c.UserRepo, c.RefreshTokenRepo, googleVerifier)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.CouponUsageRepo)
	c.AddressService = service.NewAddressService(c.AddressRepo, cfg.Delivery.PickupKeywords)
	c.DeliveryService = service.NewDeliveryService(c.OrderRepo, c.DispatchRepo, courier, cfg.Delivery.Triggers, cfg.Delivery.PickupKeywords)
	c.DeliveryService.SetStaleAfter(time.Duration(cfg.Order.SideEffectTimeoutSecs) * time.Second)
	c.SideEffects = service.NewOrderSideEffects(c.QueueClient, c.DeliveryService, c.AddressService, time.Duration(cfg.Order.SideEffectTimeoutSecs)*time.Second)
	c.OrderService = service.NewOrderService(cfg.Order, c.OrderRepo, c.CouponService, c.SideEffects, c.QueueClient)
	c.PaymentService = service.NewPaymentService(service.PaymentServiceOptions{
		OrderRepo:     c.OrderRepo,
		Gateway:       gateway,
		SideEffects:   c.SideEffects,
		ReceiverCode:  cfg.QPay.ReceiverCode,
		ExpireMinutes: cfg.Order.PaymentExpireMinutes,
	})
	c.ContentService = service.NewContentService(c.ContentRepos)
}
