package main

import (
	"os"
	"strings"
	"time"

	"github.com/altan-shop/internal/authz"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"
	"github.com/altan-shop/internal/repository"
	"github.com/altan-shop/internal/service"

	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, gormlogger.Warn); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	seedCoupons(stdLog)
	seedBankAccounts(stdLog)
	seedContent(stdLog)
	seedAdmins(cfg, stdLog)

	stdLog.Printf("Seed finished")
}

type printer interface {
	Printf(format string, v ...interface{})
}

func seedCoupons(log printer) {
	nextYear := time.Now().AddDate(1, 0, 0)
	coupons := []models.Coupon{
		{Code: "SAVE20", Description: "20% хөнгөлөлт", DiscountPercentage: models.NewMoneyFromInt(20), IsManual: true, IsActive: true, ExpiresAt: &nextYear},
		{Code: "WELCOME10", Description: "Шинэ хэрэглэгчийн 10% хөнгөлөлт", DiscountPercentage: models.NewMoneyFromInt(10), IsManual: true, IsActive: true},
	}
	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("code = ?", coupon.Code).First(&existing).Error; err == nil {
			log.Printf("Coupon already exists: %s", coupon.Code)
			continue
		}
		if err := models.DB.Create(&coupon).Error; err != nil {
			log.Printf("Failed to create coupon %s: %v", coupon.Code, err)
			continue
		}
		log.Printf("Created coupon: %s (%s%%)", coupon.Code, coupon.DiscountPercentage.String())
	}
}

func seedBankAccounts(log printer) {
	accounts := []models.BankAccount{
		{BankName: "Хаан банк", AccountName: "Altan Shop LLC", AccountNumber: "5000123456", IBAN: "MN120005005000123456", IsActive: true, SortOrder: 1},
		{BankName: "Голомт банк", AccountName: "Altan Shop LLC", AccountNumber: "1105123456", IBAN: "MN980015001105123456", IsActive: true, SortOrder: 2},
	}
	for _, account := range accounts {
		var count int64
		models.DB.Model(&models.BankAccount{}).Where("account_number = ?", account.AccountNumber).Count(&count)
		if count > 0 {
			log.Printf("Bank account already exists: %s", account.AccountNumber)
			continue
		}
		if err := models.DB.Create(&account).Error; err != nil {
			log.Printf("Failed to create bank account %s: %v", account.AccountNumber, err)
			continue
		}
		log.Printf("Created bank account: %s %s", account.BankName, account.AccountNumber)
	}
}

func seedContent(log printer) {
	var count int64
	models.DB.Model(&models.Banner{}).Count(&count)
	if count == 0 {
		banners := []models.Banner{
			{Title: "New season", TitleMN: "Шинэ улирал", Position: constants.BannerPositionHomeHero, Image: "/uploads/banners/season.jpg", Link: "/collections/new", IsActive: true, SortOrder: 1},
			{Title: "Free delivery over 100000₮", TitleMN: "100000₮-с дээш үнэгүй хүргэлт", Position: constants.BannerPositionHomeHero, Image: "/uploads/banners/delivery.jpg", IsActive: true, SortOrder: 2},
		}
		if err := models.DB.Create(&banners).Error; err != nil {
			log.Printf("Failed to create banners: %v", err)
		} else {
			log.Printf("Created %d banners", len(banners))
		}
	}

	models.DB.Model(&models.Partner{}).Count(&count)
	if count == 0 {
		partners := []models.Partner{
			{Name: "QPay", Logo: "/uploads/partners/qpay.png", Link: "https://qpay.mn", IsActive: true, SortOrder: 1},
			{Name: "e-chuchu", Logo: "/uploads/partners/echuchu.png", Link: "https://e-chuchu.mn", IsActive: true, SortOrder: 2},
		}
		if err := models.DB.Create(&partners).Error; err != nil {
			log.Printf("Failed to create partners: %v", err)
		} else {
			log.Printf("Created %d partners", len(partners))
		}
	}

	models.DB.Model(&models.Footer{}).Count(&count)
	if count == 0 {
		footer := models.Footer{
			CompanyName: "Altan Shop LLC",
			Description: "Монгол брэндийн онлайн дэлгүүр",
			Phone:       "77001122",
			Email:       "hello@altan.mn",
			Address:     "Улаанбаатар, Сүхбаатар дүүрэг, 1-р хороо",
			Copyright:   "© Altan Shop",
			IsActive:    true,
		}
		if err := models.DB.Create(&footer).Error; err != nil {
			log.Printf("Failed to create footer: %v", err)
		} else {
			log.Printf("Created footer")
		}
	}

	models.DB.Model(&models.GiftSetting{}).Count(&count)
	if count == 0 {
		gift := models.GiftSetting{
			Title:          "150000₮-с дээш захиалгад бэлэг",
			GiftName:       "Ороолт",
			MinOrderAmount: models.NewMoneyFromInt(150000),
			IsActive:       true,
		}
		if err := models.DB.Create(&gift).Error; err != nil {
			log.Printf("Failed to create gift setting: %v", err)
		} else {
			log.Printf("Created gift setting")
		}
	}
}

// seedAdmins 创建超级管理员与各内置角色的演示账号
func seedAdmins(cfg *config.Config, log printer) {
	authService := service.NewAuthService(cfg, repository.NewAdminRepository(models.DB))
	password := strings.TrimSpace(os.Getenv("ALTAN_DEFAULT_ADMIN_PASSWORD"))
	if password == "" {
		password = "admin123"
	}
	username := strings.TrimSpace(os.Getenv("ALTAN_DEFAULT_ADMIN_USERNAME"))
	if username == "" {
		username = "admin"
	}
	if _, created, err := authService.EnsureAdmin(username, password, true); err != nil {
		log.Printf("Failed to create admin %s: %v", username, err)
	} else if created {
		log.Printf("Created super admin: %s", username)
	}

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		log.Printf("Failed to init authz: %v", err)
		return
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		log.Printf("Failed to bootstrap roles: %v", err)
		return
	}
	for _, role := range []string{"operations", "support", "finance", "readonly_auditor"} {
		staff, created, err := authService.EnsureAdmin(role, password, false)
		if err != nil {
			log.Printf("Failed to create admin %s: %v", role, err)
			continue
		}
		if !created {
			continue
		}
		if err := authzService.SetAdminRoles(staff.ID, []string{role}); err != nil {
			log.Printf("Failed to assign role %s: %v", role, err)
			continue
		}
		log.Printf("Created %s admin", role)
	}
}
