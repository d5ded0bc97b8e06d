package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/grocer-next/internal/http/response"
	"github.com/grocer-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 商品创建/更新请求
type ProductRequest struct {
	CategoryID    uint                   `json:"category_id"`
	Slug          string                 `json:"slug" binding:"required"`
	Title         map[string]interface{} `json:"title" binding:"required"`
	Description   map[string]interface{} `json:"description"`
	PriceAmount   string                 `json:"price_amount" binding:"required"`
	Unit          string                 `json:"unit"`
	StockQuantity *int                   `json:"stock_quantity"`
	Images        []string               `json:"images"`
	Tags          []string               `json:"tags"`
	IsActive      *bool                  `json:"is_active"`
	SortOrder     int                    `json:"sort_order"`
}

func (r ProductRequest) toServiceInput() (service.CreateProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.PriceAmount))
	if err != nil {
		return service.CreateProductInput{}, err
	}
	return service.CreateProductInput{
		CategoryID:      r.CategoryID,
		Slug:            r.Slug,
		TitleJSON:       r.Title,
		DescriptionJSON: r.Description,
		PriceAmount:     price,
		Unit:            r.Unit,
		StockQuantity:   r.StockQuantity,
		Images:          r.Images,
		Tags:            r.Tags,
		IsActive:        r.IsActive,
		SortOrder:       r.SortOrder,
	}, nil
}

// GetAdminProducts 获取商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)

	products, total, err := h.ProductService.ListAdmin(uint(categoryID), c.Query("search"), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// GetAdminProduct 获取商品详情 (Admin)
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	product, err := h.ProductService.GetAdminByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, product)
}

// CreateAdminProduct 创建商品 (Admin)
func (h *Handler) CreateAdminProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.product_price_invalid", nil)
		return
	}

	product, err := h.ProductService.Create(input)
	if err != nil {
		respondProductSaveError(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateAdminProduct 更新商品 (Admin)
func (h *Handler) UpdateAdminProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.product_price_invalid", nil)
		return
	}

	product, err := h.ProductService.Update(uint(id), input)
	if err != nil {
		respondProductSaveError(c, err)
		return
	}
	response.Success(c, product)
}

// CategoryRequest 分类创建请求
type CategoryRequest struct {
	Slug      string                 `json:"slug" binding:"required"`
	Name      map[string]interface{} `json:"name" binding:"required"`
	SortOrder int                    `json:"sort_order"`
}

// CreateAdminCategory 创建分类 (Admin)
func (h *Handler) CreateAdminCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	category, err := h.ProductService.CreateCategory(req.Slug, req.Name, req.SortOrder)
	if err != nil {
		respondProductSaveError(c, err)
		return
	}
	response.Success(c, category)
}

// GetAdminCategories 获取分类列表 (Admin)
func (h *Handler) GetAdminCategories(c *gin.Context) {
	categories, err := h.ProductService.ListCategories()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, categories)
}

func respondProductSaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.not_found", nil)
	case errors.Is(err, service.ErrProductPriceInvalid):
		respondError(c, response.CodeBadRequest, "error.product_price_invalid", nil)
	case errors.Is(err, service.ErrSlugExists):
		respondError(c, response.CodeBadRequest, "error.slug_exists", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}
