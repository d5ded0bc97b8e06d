package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/grocer-next/internal/config"
	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"
	"gorm.io/gorm"
)

func TestMergeCreateOrderItems(t *testing.T) {
	items := []CreateOrderItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}
	merged, err := mergeCreateOrderItems(items)
	if err != nil {
		t.Fatalf("mergeCreateOrderItems error: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 items, got %d", len(merged))
	}
	if merged[0].ProductID != 1 || merged[0].Quantity != 3 {
		t.Fatalf("unexpected merged item: %+v", merged[0])
	}
}

func TestMergeCreateOrderItemsRejectsInvalid(t *testing.T) {
	if _, err := mergeCreateOrderItems([]CreateOrderItem{{ProductID: 0, Quantity: 1}}); err != ErrOrderEmpty {
		t.Fatalf("expected ErrOrderEmpty for zero product, got %v", err)
	}
	if _, err := mergeCreateOrderItems([]CreateOrderItem{{ProductID: 1, Quantity: 0}}); err != ErrOrderEmpty {
		t.Fatalf("expected ErrOrderEmpty for zero quantity, got %v", err)
	}
}

func TestIsOrderTransitionAllowed(t *testing.T) {
	if !isOrderTransitionAllowed(constants.OrderStatusPaid, constants.OrderStatusDelivering) {
		t.Fatalf("expected paid -> delivering allowed")
	}
	if !isOrderTransitionAllowed(constants.OrderStatusDelivering, constants.OrderStatusCompleted) {
		t.Fatalf("expected delivering -> completed allowed")
	}
	if isOrderTransitionAllowed(constants.OrderStatusPaid, constants.OrderStatusPendingPayment) {
		t.Fatalf("paid order must not revert to pending payment")
	}
	if isOrderTransitionAllowed(constants.OrderStatusCompleted, constants.OrderStatusCanceled) {
		t.Fatalf("completed order must not be canceled")
	}
}

func TestCreateOrderComputesTotalsAndDecrementsStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-create@example.com")
	tomato := createOrderTestProduct(t, db, "organic-tomatoes", "3.50", 10)
	milk := createOrderTestProduct(t, db, "fresh-milk-1l", "2.00", 5)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items: []CreateOrderItem{
			{ProductID: tomato.ID, Quantity: 2},
			{ProductID: milk.ID, Quantity: 3},
		},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending payment, got %s", order.Status)
	}
	// 小计 2*3.50 + 3*2.00 = 13.00，配送费 5.00，货到付款附加费 2.00
	if !order.ItemsSubtotal.Decimal.Equal(mustMoney(t, "13.00").Decimal) {
		t.Fatalf("expected subtotal 13.00, got %s", order.ItemsSubtotal)
	}
	if !order.ShippingFee.Decimal.Equal(mustMoney(t, "5.00").Decimal) {
		t.Fatalf("expected shipping 5.00, got %s", order.ShippingFee)
	}
	if !order.CODSurcharge.Decimal.Equal(mustMoney(t, "2.00").Decimal) {
		t.Fatalf("expected cod surcharge 2.00, got %s", order.CODSurcharge)
	}
	if !order.TotalAmount.Decimal.Equal(mustMoney(t, "20.00").Decimal) {
		t.Fatalf("expected total 20.00, got %s", order.TotalAmount)
	}
	if order.ExpiresAt == nil || !order.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", order.ExpiresAt)
	}

	reloaded := reloadOrderTestProduct(t, db, tomato.ID)
	if reloaded.StockQuantity != 8 {
		t.Fatalf("expected tomato stock 8, got %d", reloaded.StockQuantity)
	}
}

func TestCreateOrderOnlineSkipsCODSurcharge(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-online@example.com")
	product := createOrderTestProduct(t, db, "jasmine-rice-5kg", "12.00", 4)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:        user.ID,
		Items:         []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.CODSurcharge.Decimal.IsZero() {
		t.Fatalf("expected no cod surcharge for online payment, got %s", order.CODSurcharge)
	}
	if !order.TotalAmount.Decimal.Equal(mustMoney(t, "17.00").Decimal) {
		t.Fatalf("expected total 17.00, got %s", order.TotalAmount)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-stock@example.com")
	product := createOrderTestProduct(t, db, "free-range-eggs-12", "4.50", 2)

	if _, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 3}},
	}); err != ErrStockInsufficient {
		t.Fatalf("expected ErrStockInsufficient, got %v", err)
	}

	// 事务回滚，库存不变
	reloaded := reloadOrderTestProduct(t, db, product.ID)
	if reloaded.StockQuantity != 2 {
		t.Fatalf("expected stock unchanged, got %d", reloaded.StockQuantity)
	}
}

func TestPayOrderTransitionsAndIsIdempotent(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-pay@example.com")
	product := createOrderTestProduct(t, db, "bananas", "1.20", 10)
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	paid, err := svc.PayOrder(order.ID)
	if err != nil {
		t.Fatalf("pay order failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid order with paid_at, got %+v", paid)
	}

	again, err := svc.PayOrder(order.ID)
	if err != nil {
		t.Fatalf("second pay should be idempotent, got: %v", err)
	}
	if again.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid status, got %s", again.Status)
	}

	if _, err := svc.CancelOrder(order.ID, user.ID); err != ErrOrderStatusInvalid {
		t.Fatalf("expected paid order not cancelable, got %v", err)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-cancel@example.com")
	product := createOrderTestProduct(t, db, "fresh-spinach", "2.80", 6)
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if reloadOrderTestProduct(t, db, product.ID).StockQuantity != 2 {
		t.Fatalf("expected stock reserved")
	}

	canceled, err := svc.CancelOrder(order.ID, user.ID)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("expected canceled order, got %+v", canceled)
	}
	if reloadOrderTestProduct(t, db, product.ID).StockQuantity != 6 {
		t.Fatalf("expected stock restored to 6")
	}

	// 他人订单不可取消
	other := createOrderTestUser(t, db, "buyer-other@example.com")
	order2, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create second order failed: %v", err)
	}
	if _, err := svc.CancelOrder(order2.ID, other.ID); err != ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound for foreign order, got %v", err)
	}
}

func TestCancelExpiredOrderHonorsDeadline(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-expire@example.com")
	product := createOrderTestProduct(t, db, "greek-yogurt", "3.20", 8)
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 未到期不取消
	if err := svc.CancelExpiredOrder(order.ID); err != nil {
		t.Fatalf("cancel before deadline should be silent, got: %v", err)
	}
	current, err := repository.NewOrderRepository(db).GetByID(order.ID)
	if err != nil || current == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if current.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order still pending, got %s", current.Status)
	}

	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate expiry failed: %v", err)
	}
	if err := svc.CancelExpiredOrder(order.ID); err != nil {
		t.Fatalf("cancel expired order failed: %v", err)
	}

	current, err = repository.NewOrderRepository(db).GetByID(order.ID)
	if err != nil || current == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if current.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled order, got %s", current.Status)
	}
	if reloadOrderTestProduct(t, db, product.ID).StockQuantity != 8 {
		t.Fatalf("expected stock restored after timeout cancel")
	}
}

func TestUpdateOrderStatusRespectsTransitionTable(t *testing.T) {
	svc, db := setupOrderServiceTest(t)

	user := createOrderTestUser(t, db, "buyer-status@example.com")
	product := createOrderTestProduct(t, db, "sourdough-loaf", "4.00", 5)
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.PayOrder(order.ID); err != nil {
		t.Fatalf("pay order failed: %v", err)
	}

	delivering, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusDelivering)
	if err != nil {
		t.Fatalf("update to delivering failed: %v", err)
	}
	if delivering.Status != constants.OrderStatusDelivering {
		t.Fatalf("expected delivering, got %s", delivering.Status)
	}

	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusPendingPayment); err != ErrOrderStatusInvalid {
		t.Fatalf("expected backward transition rejected, got %v", err)
	}
}

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:order_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingSvc := NewSettingService(newMockSettingRepo())
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		settingSvc,
		nil,
		nil,
		config.OrderConfig{
			PaymentExpireMinutes: 30,
			Currency:             "USD",
			ShippingFee:          "5.00",
			CODSurcharge:         "2.00",
		},
	)
	return svc, db
}

func createOrderTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createOrderTestProduct(t *testing.T, db *gorm.DB, slug, price string, stock int) models.Product {
	t.Helper()

	category := models.Category{
		Slug:      fmt.Sprintf("category-%s", slug),
		NameJSON:  models.JSON{"en-US": "Category"},
		CreatedAt: time.Now(),
	}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	row := models.Product{
		CategoryID:    category.ID,
		Slug:          slug,
		TitleJSON:     models.JSON{"en-US": slug},
		PriceAmount:   mustMoney(t, price),
		Unit:          "each",
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return row
}

func reloadOrderTestProduct(t *testing.T, db *gorm.DB, productID uint) models.Product {
	t.Helper()

	var row models.Product
	if err := db.First(&row, productID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	return row
}
