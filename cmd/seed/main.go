package main

import (
	"github.com/grocer-next/internal/config"
	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "新鲜果蔬",
				"en-US": "Fresh Produce",
			}),
			Slug:      "fresh-produce",
			SortOrder: 10,
		},
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "乳品蛋类",
				"en-US": "Dairy & Eggs",
			}),
			Slug:      "dairy-eggs",
			SortOrder: 20,
		},
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "主食粮油",
				"en-US": "Pantry Staples",
			}),
			Slug:      "pantry-staples",
			SortOrder: 30,
		},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	// 获取分类ID
	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"fresh-produce", "dairy-eggs", "pantry-staples"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}
	produceID := categoryIDs["fresh-produce"]
	dairyID := categoryIDs["dairy-eggs"]
	pantryID := categoryIDs["pantry-staples"]

	// 添加商品
	products := []models.Product{
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "有机番茄",
				"en-US": "Organic Tomatoes",
			}),
			Slug: "organic-tomatoes",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "当日采摘，新鲜直达",
				"en-US": "Picked daily, farm fresh",
			}),
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(3.49)),
			Unit:          "kg",
			StockQuantity: 200,
			CategoryID:    produceID,
			Tags:          models.StringArray([]string{"Organic", "Vegetables"}),
			IsActive:      true,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "香蕉",
				"en-US": "Bananas",
			}),
			Slug: "bananas",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "进口香蕉，香甜软糯",
				"en-US": "Imported bananas, sweet and ripe",
			}),
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(1.29)),
			Unit:          "bundle",
			StockQuantity: 150,
			CategoryID:    produceID,
			Tags:          models.StringArray([]string{"Fruit"}),
			IsActive:      true,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "鲜牛奶 1L",
				"en-US": "Fresh Milk 1L",
			}),
			Slug: "fresh-milk-1l",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "全脂巴氏杀菌鲜奶",
				"en-US": "Whole pasteurized fresh milk",
			}),
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(2.19)),
			Unit:          "each",
			StockQuantity: 120,
			CategoryID:    dairyID,
			Tags:          models.StringArray([]string{"Dairy"}),
			IsActive:      true,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "散养鸡蛋 12枚",
				"en-US": "Free-range Eggs (12)",
			}),
			Slug: "free-range-eggs-12",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "散养土鸡蛋，营养丰富",
				"en-US": "Free-range eggs, rich in nutrition",
			}),
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(4.99)),
			Unit:          "each",
			StockQuantity: 80,
			CategoryID:    dairyID,
			Tags:          models.StringArray([]string{"Eggs"}),
			IsActive:      true,
		},
		{
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "茉莉香米 5kg",
				"en-US": "Jasmine Rice 5kg",
			}),
			Slug: "jasmine-rice-5kg",
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "泰国茉莉香米，颗粒饱满",
				"en-US": "Thai jasmine rice, premium grain",
			}),
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(12.50)),
			Unit:          "each",
			StockQuantity: 60,
			CategoryID:    pantryID,
			Tags:          models.StringArray([]string{"Rice", "Staple"}),
			IsActive:      true,
		},
	}

	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
		}
	}

	// 初始化默认设置
	settings := []models.Setting{
		{
			Key: constants.SettingKeySiteConfig,
			ValueJSON: models.JSON(map[string]interface{}{
				"site_name":      "Grocer-Next",
				"default_locale": "en-US",
			}),
		},
		{
			Key: constants.SettingKeyAffiliateConfig,
			ValueJSON: models.JSON(map[string]interface{}{
				"enabled":                  true,
				"commission_rate":          5.0,
				"attribution_window_hours": 24,
				"min_payout_amount":        20.0,
				"signup_bonus_amount":      1.0,
			}),
		},
		{
			Key:       constants.SettingKeyPayoutFeeConfig,
			ValueJSON: models.JSON(service.PayoutFeeSettingToMap(service.PayoutFeeDefaultSetting())),
		},
		{
			Key: constants.SettingKeyOrderConfig,
			ValueJSON: models.JSON(map[string]interface{}{
				"shipping_fee":  "5.00",
				"cod_surcharge": "2.00",
			}),
		},
	}

	for _, setting := range settings {
		var existing models.Setting
		if err := models.DB.Where("key = ?", setting.Key).First(&existing).Error; err != nil {
			if err := models.DB.Create(&setting).Error; err != nil {
				stdLog.Printf("Failed to create setting %s: %v", setting.Key, err)
			} else {
				stdLog.Printf("Created setting: %s", setting.Key)
			}
		} else {
			stdLog.Printf("Setting already exists: %s", setting.Key)
		}
	}

	stdLog.Println("Seed data initialized")
}
