package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/grocer-next/internal/config"
	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/queue"
	"github.com/grocer-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo         repository.OrderRepository
	productRepo       repository.ProductRepository
	settingService    *SettingService
	commissionService *CommissionService
	queueClient       *queue.Client
	orderCfg          config.OrderConfig
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	settingService *SettingService,
	commissionService *CommissionService,
	queueClient *queue.Client,
	orderCfg config.OrderConfig,
) *OrderService {
	return &OrderService{
		orderRepo:         orderRepo,
		productRepo:       productRepo,
		settingService:    settingService,
		commissionService: commissionService,
		queueClient:       queueClient,
		orderCfg:          orderCfg,
	}
}

// CreateOrderItem 下单项
type CreateOrderItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	UserID          uint
	Items           []CreateOrderItem
	PaymentMethod   string
	DeliveryAddress models.JSON
	ClientIP        string
}

// 允许的状态流转表。已支付订单不能回退到待支付。
var allowedOrderTransitions = map[string]map[string]bool{
	constants.OrderStatusPendingPayment: {
		constants.OrderStatusPaid:     true,
		constants.OrderStatusCanceled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusDelivering: true,
		constants.OrderStatusCompleted:  true,
	},
	constants.OrderStatusDelivering: {
		constants.OrderStatusCompleted: true,
	},
}

// CreateOrder 用户下单。商品校验、扣库存、建单在同一事务内完成，
// 配送费与货到付款附加费按当前设置快照进金额字段。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	items, err := mergeCreateOrderItems(input.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrOrderEmpty
	}

	paymentMethod := normalizePaymentMethod(input.PaymentMethod)
	if paymentMethod == "" {
		return nil, ErrOrderStatusInvalid
	}

	shippingFee := s.resolveShippingFee()
	codSurcharge := models.NewMoneyFromDecimal(decimal.Zero)
	if paymentMethod == constants.PaymentMethodCOD {
		codSurcharge = s.resolveCODSurcharge()
	}

	expireMinutes := s.resolveExpireMinutes()
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireMinutes) * time.Minute)
	order := &models.Order{
		OrderNo:         generateOrderNo(),
		UserID:          input.UserID,
		Status:          constants.OrderStatusPendingPayment,
		Currency:        s.resolveCurrency(),
		ShippingFee:     shippingFee,
		CODSurcharge:    codSurcharge,
		PaymentMethod:   paymentMethod,
		DeliveryAddress: input.DeliveryAddress,
		ClientIP:        strings.TrimSpace(input.ClientIP),
		ExpiresAt:       &expiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)
		subtotal := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := productRepo.GetByIDForUpdate(item.ProductID)
			if err != nil {
				return err
			}
			if product == nil || !product.IsActive {
				return ErrProductNotAvailable
			}
			ok, err := productRepo.DecrementStock(product.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return ErrStockInsufficient
			}
			lineTotal := product.PriceAmount.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:  product.ID,
				TitleJSON:  product.TitleJSON,
				Unit:       product.Unit,
				UnitPrice:  product.PriceAmount,
				Quantity:   item.Quantity,
				TotalPrice: models.NewMoneyFromDecimal(lineTotal),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}

		order.ItemsSubtotal = models.NewMoneyFromDecimal(subtotal)
		order.TotalAmount = order.ItemsSubtotal.AddMoney(order.ShippingFee).AddMoney(order.CODSurcharge)
		order.Items = orderItems
		return s.orderRepo.WithTx(tx).Create(order)
	})
	if err != nil {
		return nil, err
	}

	if s.queueClient != nil {
		delay := time.Until(expiresAt)
		if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
			logger.Warnw("订单超时取消任务入队失败", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// PayOrder 标记订单已支付（支付回调/货到付款确认入口）
func (s *OrderService) PayOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusPaid {
		return order, nil
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrOrderStatusInvalid
	}

	now := time.Now()
	hit, err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusPendingPayment, constants.OrderStatusPaid, map[string]interface{}{
		"paid_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, ErrOrderStatusInvalid
	}
	order.Status = constants.OrderStatusPaid
	order.PaidAt = &now

	s.afterOrderPaid(order.ID)
	return order, nil
}

// afterOrderPaid 支付后触发佣金处理：同步算一次，失败依赖队列重试
func (s *OrderService) afterOrderPaid(orderID uint) {
	if s.commissionService != nil {
		if err := s.commissionService.ProcessOrder(orderID); err != nil {
			logger.Warnw("订单佣金处理失败", "order_id", orderID, "error", err)
		}
	}
	if s.queueClient != nil {
		if err := s.queueClient.EnqueueCommissionProcess(queue.CommissionProcessPayload{OrderID: orderID}); err != nil {
			logger.Warnw("订单佣金任务入队失败", "order_id", orderID, "error", err)
		}
	}
}

// CancelOrder 用户取消待支付订单并回补库存
func (s *OrderService) CancelOrder(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (userID != 0 && order.UserID != userID) {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrOrderStatusInvalid
	}
	if err := s.cancelPendingOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelExpiredOrder 超时取消待支付订单，由队列任务触发。
// 订单已支付或已取消时直接返回，不报错。
func (s *OrderService) CancelExpiredOrder(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.Status != constants.OrderStatusPendingPayment {
		return nil
	}
	if order.ExpiresAt != nil && order.ExpiresAt.After(time.Now()) {
		return nil
	}
	return s.cancelPendingOrder(order)
}

func (s *OrderService) cancelPendingOrder(order *models.Order) error {
	now := time.Now()
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		hit, err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusPendingPayment, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
		})
		if err != nil {
			return err
		}
		if !hit {
			return ErrOrderStatusInvalid
		}
		for _, item := range order.Items {
			if err := productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Status = constants.OrderStatusCanceled
	order.CanceledAt = &now
	return nil
}

// UpdateOrderStatus 管理端按流转表更新订单状态
func (s *OrderService) UpdateOrderStatus(orderID uint, targetStatus string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	target := strings.TrimSpace(targetStatus)
	if target == "" || !isOrderTransitionAllowed(order.Status, target) {
		return nil, ErrOrderStatusInvalid
	}
	if order.Status == target {
		return order, nil
	}

	if target == constants.OrderStatusCanceled {
		if err := s.cancelPendingOrder(order); err != nil {
			return nil, err
		}
		return order, nil
	}
	if target == constants.OrderStatusPaid {
		return s.PayOrder(order.ID)
	}

	now := time.Now()
	updates := map[string]interface{}{}
	if target == constants.OrderStatusCompleted {
		updates["completed_at"] = now
	}
	hit, err := s.orderRepo.UpdateStatus(order.ID, order.Status, target, updates)
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, ErrOrderStatusInvalid
	}
	order.Status = target
	if target == constants.OrderStatusCompleted {
		order.CompletedAt = &now
	}
	order.UpdatedAt = now
	return order, nil
}

// GetOrderByUser 获取本人订单
func (s *OrderService) GetOrderByUser(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByUser 用户订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrOrderNotFound
	}
	return s.orderRepo.List(filter)
}

// GetOrderForAdmin 管理端获取订单
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

func (s *OrderService) resolveExpireMinutes() int {
	if s.orderCfg.PaymentExpireMinutes > 0 {
		return s.orderCfg.PaymentExpireMinutes
	}
	return 30
}

func (s *OrderService) resolveCurrency() string {
	currency := strings.ToUpper(strings.TrimSpace(s.orderCfg.Currency))
	if currency == "" {
		return "USD"
	}
	return currency
}

func (s *OrderService) resolveShippingFee() models.Money {
	return s.resolveOrderFee(constants.SettingFieldShippingFee, s.orderCfg.ShippingFee)
}

func (s *OrderService) resolveCODSurcharge() models.Money {
	return s.resolveOrderFee(constants.SettingFieldCODSurcharge, s.orderCfg.CODSurcharge)
}

// resolveOrderFee 先取后台设置，缺省回落到配置文件
func (s *OrderService) resolveOrderFee(field, fallback string) models.Money {
	defaultFee := models.NewMoneyFromDecimal(decimal.Zero)
	if parsed, err := models.NewMoneyFromString(fallback); err == nil && !parsed.Decimal.IsNegative() {
		defaultFee = parsed
	}
	fee, err := s.settingService.GetOrderFee(field, defaultFee)
	if err != nil {
		logger.Warnw("读取订单费用设置失败", "field", field, "error", err)
		return defaultFee
	}
	return fee
}

func normalizePaymentMethod(raw string) string {
	method := strings.ToLower(strings.TrimSpace(raw))
	switch method {
	case "":
		return constants.PaymentMethodOnline
	case constants.PaymentMethodOnline, constants.PaymentMethodCOD:
		return method
	default:
		return ""
	}
}

func isOrderTransitionAllowed(current, target string) bool {
	if current == target {
		return true
	}
	nexts, ok := allowedOrderTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// mergeCreateOrderItems 合并重复商品的下单项
func mergeCreateOrderItems(items []CreateOrderItem) ([]CreateOrderItem, error) {
	merged := make([]CreateOrderItem, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, ErrOrderEmpty
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	randPart := randNumeric(6)
	return fmt.Sprintf("GN%s%s", now, randPart)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
