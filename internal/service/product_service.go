package service

import (
	"strings"

	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// CreateProductInput 创建/更新商品输入
type CreateProductInput struct {
	CategoryID      uint
	Slug            string
	TitleJSON       map[string]interface{}
	DescriptionJSON map[string]interface{}
	PriceAmount     decimal.Decimal
	Unit            string
	StockQuantity   *int
	Images          []string
	Tags            []string
	IsActive        *bool
	SortOrder       int
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(categoryID uint, search string, page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: categoryID,
		Search:     search,
		OnlyActive: true,
	}
	return s.repo.List(filter)
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(categoryID uint, search string, page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: categoryID,
		Search:     search,
		OnlyActive: false,
	}
	return s.repo.List(filter)
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	slug := strings.TrimSpace(input.Slug)
	priceAmount := input.PriceAmount.Round(2)
	if priceAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrProductPriceInvalid
	}
	if slug == "" {
		return nil, ErrSlugExists
	}
	exist, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrSlugExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	stockQuantity := 0
	if input.StockQuantity != nil && *input.StockQuantity > 0 {
		stockQuantity = *input.StockQuantity
	}

	product := models.Product{
		CategoryID:      input.CategoryID,
		Slug:            slug,
		TitleJSON:       models.JSON(input.TitleJSON),
		DescriptionJSON: models.JSON(input.DescriptionJSON),
		PriceAmount:     models.NewMoneyFromDecimal(priceAmount),
		Unit:            normalizeProductUnit(input.Unit),
		StockQuantity:   stockQuantity,
		Images:          models.StringArray(input.Images),
		Tags:            models.StringArray(input.Tags),
		IsActive:        isActive,
		SortOrder:       input.SortOrder,
	}
	if err := s.repo.Create(&product); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return &product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input CreateProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	priceAmount := input.PriceAmount.Round(2)
	if priceAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrProductPriceInvalid
	}
	slug := strings.TrimSpace(input.Slug)
	if slug != "" && slug != product.Slug {
		exist, err := s.repo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != product.ID {
			return nil, ErrSlugExists
		}
		product.Slug = slug
	}

	product.CategoryID = input.CategoryID
	product.TitleJSON = models.JSON(input.TitleJSON)
	product.DescriptionJSON = models.JSON(input.DescriptionJSON)
	product.PriceAmount = models.NewMoneyFromDecimal(priceAmount)
	product.Unit = normalizeProductUnit(input.Unit)
	if input.StockQuantity != nil && *input.StockQuantity >= 0 {
		product.StockQuantity = *input.StockQuantity
	}
	product.Images = models.StringArray(input.Images)
	product.Tags = models.StringArray(input.Tags)
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.SortOrder = input.SortOrder

	if err := s.repo.Update(product); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return product, nil
}

// ListCategories 查询全部分类
func (s *ProductService) ListCategories() ([]models.Category, error) {
	return s.repo.ListCategories()
}

// CreateCategory 创建分类
func (s *ProductService) CreateCategory(slug string, nameJSON map[string]interface{}, sortOrder int) (*models.Category, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrSlugExists
	}
	category := models.Category{
		Slug:      slug,
		NameJSON:  models.JSON(nameJSON),
		SortOrder: sortOrder,
	}
	if err := s.repo.CreateCategory(&category); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return &category, nil
}

func normalizeProductUnit(raw string) string {
	unit := strings.ToLower(strings.TrimSpace(raw))
	switch unit {
	case "kg", "bundle":
		return unit
	default:
		return "each"
	}
}
