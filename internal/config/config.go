package config

import (
	"fmt"
	"strings"

	"github.com/altan-shop/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	UserJWT     UserJWTConfig     `mapstructure:"user_jwt"`
	Google      GoogleConfig      `mapstructure:"google"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	Order       OrderConfig       `mapstructure:"order"`
	QPay        QPayConfig        `mapstructure:"qpay"`
	Echuchu     EchuchuConfig     `mapstructure:"echuchu"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
	Captcha     CaptchaConfig     `mapstructure:"captcha"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	FlowControl FlowControlConfig `mapstructure:"flow_control"`
	Swagger     SwaggerConfig     `mapstructure:"swagger"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`       // debug / release
	PublicURL string `mapstructure:"public_url"` // 对外访问地址（NEXT_PUBLIC_API_URL）
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres/mysql）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 管理端 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// UserJWTConfig 用户端 JWT 配置（访问令牌 + 刷新令牌）
type UserJWTConfig struct {
	SecretKey         string `mapstructure:"secret"`
	RefreshSecretKey  string `mapstructure:"refresh_secret"`
	AccessExpireMins  int    `mapstructure:"access_expire_minutes"`
	RefreshExpireDays int    `mapstructure:"refresh_expire_days"`
}

// GoogleConfig Google 登录配置
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	TokenURL     string `mapstructure:"token_url"`
	TimeoutMS    int    `mapstructure:"timeout_ms"`
}

// Enabled 是否配置了 Google 登录
func (c GoogleConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != ""
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// OrderConfig 订单配置
type OrderConfig struct {
	Currency              string  `mapstructure:"currency"`
	ShippingFee           float64 `mapstructure:"shipping_fee"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold"`
	TaxRate               float64 `mapstructure:"tax_rate"` // 百分比
	PaymentExpireMinutes  int     `mapstructure:"payment_expire_minutes"`
	SideEffectTimeoutSecs int     `mapstructure:"side_effect_timeout_seconds"`
}

// QPayConfig QPay 网关配置
type QPayConfig struct {
	BaseURL                  string `mapstructure:"base_url"`
	Login                    string `mapstructure:"login"`
	Password                 string `mapstructure:"password"`
	InvoiceCode              string `mapstructure:"invoice_code"`
	ReceiverCode             string `mapstructure:"receiver_code"`
	CallbackPath             string `mapstructure:"callback_path"`
	TimeoutMS                int    `mapstructure:"timeout_ms"`
	ReconcileIntervalSeconds int    `mapstructure:"reconcile_interval_seconds"`
	ReconcileBatchSize       int    `mapstructure:"reconcile_batch_size"`
}

// EchuchuConfig e-chuchu 快递接口配置
type EchuchuConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// DeliveryConfig 配送派单配置
type DeliveryConfig struct {
	Triggers       []string `mapstructure:"triggers"`        // 允许触发派单的节点
	PickupKeywords []string `mapstructure:"pickup_keywords"` // 自取地址标识
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Scenes  CaptchaSceneConfig `mapstructure:"scenes"`
	Image   CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	AdminLogin       bool `mapstructure:"admin_login"`
	UserLogin        bool `mapstructure:"user_login"`
	GuestCreateOrder bool `mapstructure:"guest_create_order"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP HTTP 地址，例如 127.0.0.1:4318
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// FlowControlConfig 限流配置（sentinel）
type FlowControlConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Rules   map[string]float64 `mapstructure:"rules"` // 资源名 -> QPS 阈值
}

// SwaggerConfig 接口文档配置
type SwaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength     int  `mapstructure:"min_length"`
	RequireLetter bool `mapstructure:"require_letter"`
	RequireNumber bool `mapstructure:"require_number"`
}

// envAliases 兼容前端工程沿用的环境变量名
var envAliases = map[string]string{
	"server.public_url":       "NEXT_PUBLIC_API_URL",
	"qpay.login":              "QPAY_LOGIN",
	"qpay.password":           "QPAY_PASSWORD",
	"qpay.invoice_code":       "QPAY_INVOICE_CODE",
	"qpay.receiver_code":      "QPAY_RECEIVER_CODE",
	"user_jwt.secret":         "JWT_SECRET",
	"user_jwt.refresh_secret": "JWT_REFRESH_SECRET",
	"google.client_id":        "GOOGLE_CLIENT_ID",
	"google.client_secret":    "GOOGLE_CLIENT_SECRET",
	"echuchu.api_key":         "ECHUCHU_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/altan.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "admin-change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.refresh_secret", "refresh-change-me-in-production")
	v.SetDefault("user_jwt.access_expire_minutes", 60)
	v.SetDefault("user_jwt.refresh_expire_days", 30)
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.timeout_ms", 5000)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "altan")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.login_rate_limit.block_seconds", 900)
	v.SetDefault("security.password_policy.min_length", 8)
	v.SetDefault("security.password_policy.require_letter", true)
	v.SetDefault("security.password_policy.require_number", true)
	v.SetDefault("order.currency", "MNT")
	v.SetDefault("order.shipping_fee", 5000)
	v.SetDefault("order.free_shipping_threshold", 100000)
	v.SetDefault("order.tax_rate", 0)
	v.SetDefault("order.payment_expire_minutes", 30)
	v.SetDefault("order.side_effect_timeout_seconds", 15)
	v.SetDefault("qpay.base_url", "https://merchant.qpay.mn")
	v.SetDefault("qpay.login", "")
	v.SetDefault("qpay.password", "")
	v.SetDefault("qpay.invoice_code", "")
	v.SetDefault("qpay.receiver_code", "")
	v.SetDefault("qpay.callback_path", "/api/qpay/webhook")
	v.SetDefault("qpay.timeout_ms", 15000)
	v.SetDefault("qpay.reconcile_interval_seconds", 60)
	v.SetDefault("qpay.reconcile_batch_size", 50)
	v.SetDefault("echuchu.enabled", false)
	v.SetDefault("echuchu.base_url", "https://api.e-chuchu.mn")
	v.SetDefault("echuchu.api_key", "")
	v.SetDefault("echuchu.timeout_ms", 10000)
	v.SetDefault("delivery.triggers", []string{"invoice_created", "invoice_downloaded", "payment_confirmed"})
	v.SetDefault("delivery.pickup_keywords", []string{"pickup", "store pickup", "өөрөө авах"})
	v.SetDefault("captcha.enabled", false)
	v.SetDefault("captcha.scenes.admin_login", true)
	v.SetDefault("captcha.scenes.user_login", false)
	v.SetDefault("captcha.scenes.guest_create_order", false)
	v.SetDefault("captcha.image.length", 5)
	v.SetDefault("captcha.image.width", 240)
	v.SetDefault("captcha.image.height", 80)
	v.SetDefault("captcha.image.noise_count", 2)
	v.SetDefault("captcha.image.show_line", 2)
	v.SetDefault("captcha.image.expire_seconds", 300)
	v.SetDefault("captcha.image.max_store", 10240)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "altan-shop")
	v.SetDefault("tracing.endpoint", "127.0.0.1:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("flow_control.enabled", true)
	v.SetDefault("flow_control.rules", map[string]float64{
		"order_create":    20,
		"coupon_validate": 30,
		"qpay_check":      50,
	})
	v.SetDefault("swagger.enabled", true)
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	// .env 不存在时直接忽略
	_ = godotenv.Load()

	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	setDefaults(v)

	// 环境变量支持 (例如 server.port -> SERVER_PORT)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			logger.Warnw("config_env_bind_failed", "key", key, "env", env, "error", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Server.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.Server.PublicURL), "/")
	return &cfg
}

// QPayCallbackURL 拼接 QPay 回调地址
func (c *Config) QPayCallbackURL() string {
	if c == nil {
		return ""
	}
	path := c.QPay.CallbackPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.Server.PublicURL + path
}
