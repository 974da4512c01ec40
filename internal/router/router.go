package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/altan-shop/internal/authz"
	"github.com/altan-shop/internal/cache"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/docs"
	"github.com/altan-shop/internal/flowcontrol"
	adminhandlers "github.com/altan-shop/internal/http/handlers/admin"
	publichandlers "github.com/altan-shop/internal/http/handlers/public"
	"github.com/altan-shop/internal/http/response"
	"github.com/altan-shop/internal/http/validation"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/provider"
	"github.com/altan-shop/internal/telemetry"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const adminPathPrefix = "/api/admin/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container, limiter *flowcontrol.Limiter) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	if err := validation.Register(); err != nil {
		logger.Errorw("router_register_validators_failed", "error", err)
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "altan"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}
	adminLoginRule := loginRule
	adminLoginRule.Prefix = fmt.Sprintf("%s:rate:admin_login", redisPrefix)

	// 中间件
	r.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(telemetry.ServiceName(cfg.Tracing)))
	}
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	optionalUser := OptionalUserAuthMiddleware(c.UserAuthService)
	requireUser := UserJWTAuthMiddleware(c.UserAuthService)
	requireAdmin := JWTAuthMiddleware(c.AuthService)
	rbac := AdminRBACMiddleware(c.AuthzService)

	api := r.Group("/api")
	{
		// 订单
		api.POST("/order", optionalUser, limiter.Guard(flowcontrol.ResourceOrderCreate), publicHandler.CreateOrder)
		api.POST("/order/quote", optionalUser, publicHandler.QuoteOrder)
		api.GET("/order", requireUser, publicHandler.ListOrders)
		api.GET("/order/number/:orderNumber", publicHandler.GetOrderByNumber)
		api.GET("/order/number/:orderNumber/invoice", publicHandler.GetOrderInvoice)
		api.GET("/order/:id", requireUser, publicHandler.GetOrder)
		api.PATCH("/order/:id/payment", requireAdmin, rbac, adminHandler.UpdateOrderPayment)

		// QPay
		api.POST("/qpay/checkout/invoice", optionalUser, publicHandler.CreateQPayInvoice)
		api.GET("/qpay/check/:invoiceId", limiter.Guard(flowcontrol.ResourceQPayCheck), publicHandler.CheckQPayPayment)
		api.POST("/qpay/webhook", publicHandler.QPayWebhook)
		api.GET("/qpay/webhook", publicHandler.QPayWebhook)

		// 优惠券
		api.POST("/coupons/validate", optionalUser, limiter.Guard(flowcontrol.ResourceCouponValidate), publicHandler.ValidateCoupon)

		// 站点内容
		api.GET("/bank-accounts/active", publicHandler.ListActiveBankAccounts)
		api.GET("/banners", publicHandler.ListBanners)
		api.GET("/partners", publicHandler.ListPartners)
		api.GET("/footer", publicHandler.GetFooter)
		api.GET("/gift-settings/active", publicHandler.ListActiveGiftSettings)
		api.GET("/captcha/config", publicHandler.GetCaptchaConfig)
		api.GET("/captcha/image", publicHandler.GetImageCaptcha)

		// 用户认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, loginRule, KeyByIP), publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
			auth.POST("/google", RateLimitMiddleware(redisClient, loginRule, KeyByIP), publicHandler.UserGoogleLogin)
			auth.POST("/refresh", publicHandler.UserRefreshToken)
			auth.POST("/logout", requireUser, publicHandler.UserLogout)
			auth.GET("/me", requireUser, publicHandler.GetCurrentUser)
		}

		// 地址簿
		user := api.Group("/user", requireUser)
		{
			user.GET("/addresses", publicHandler.ListAddresses)
			user.POST("/addresses", publicHandler.SaveAddress)
			user.PUT("/addresses/:id/default", publicHandler.SetDefaultAddress)
			user.DELETE("/addresses/:id", publicHandler.DeleteAddress)
		}

		// 管理员接口
		admin := api.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 仅需登录
			self := admin.Group("", requireAdmin)
			{
				self.GET("/me", adminHandler.GetAdminMe)
				self.PUT("/password", adminHandler.UpdateAdminPassword)
			}

			authorized := admin.Group("", requireAdmin, rbac)
			{
				// 订单管理
				authorized.GET("/orders", adminHandler.GetAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.PATCH("/orders/:id/status", adminHandler.UpdateOrderStatus)
				authorized.PATCH("/orders/:id/payment", adminHandler.UpdateOrderPayment)
				authorized.DELETE("/orders/:id", adminHandler.DeleteAdminOrder)

				// 优惠券
				authorized.GET("/coupons", adminHandler.GetAdminCoupons)
				authorized.POST("/coupons", adminHandler.CreateCoupon)
				authorized.POST("/coupons/generate", adminHandler.GenerateCoupons)
				authorized.GET("/coupons/usages", adminHandler.GetCouponUsages)
				authorized.PUT("/coupons/:id", adminHandler.UpdateCoupon)
				authorized.DELETE("/coupons/:id", adminHandler.DeleteCoupon)

				// 站点内容
				adminHandler.RegisterContentRoutes(authorized)

				// 派单
				authorized.GET("/dispatches", adminHandler.GetAdminDispatches)
				authorized.POST("/dispatches/:id/retry", adminHandler.RetryDispatch)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	if cfg.Swagger.Enabled {
		docs.Register(cfg)
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		if err := pingDatabase(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx.Request.Context()).Err(); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			} else {
				status["redis"] = "ok"
			}
		}
		ctx.JSON(200, status)
	})

	return r
}

func pingDatabase() error {
	if models.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, adminPathPrefix) {
			continue
		}
		if item.Path == adminPathPrefix+"login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
