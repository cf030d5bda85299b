package usecase

import (
	"context"
	"net/http"
	"testing"

	"shop/internal/domain/model"
	"shop/internal/payment"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newOrderUsecaseForTest(t *testing.T, pay *stubProcessor) (*OrderUsecase, *mockCartRepo, *mockCartItemRepo, *mockProductRepo, *fakeTxRepos, *fakeTxManager) {
	t.Helper()

	carts := new(mockCartRepo)
	cartItems := new(mockCartItemRepo)
	products := new(mockProductRepo)
	txRepos := newFakeTxRepos()
	txm := newFakeTxManager(txRepos)

	uc := NewOrderUsecase(txm, carts, cartItems, products, pay, 5)
	return uc, carts, cartItems, products, txRepos, txm
}

func TestOrderUsecase_PlaceOrder_EmptyCart_RejectedBeforeTx(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true, TransactionID: "tx-1"}}
	uc, carts, cartItems, _, _, txm := newOrderUsecaseForTest(t, pay)

	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1, Status: model.CartStatusActive}, nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, CodeBusinessRule, he.Code)
	assert.Equal(t, "cart empty", he.Message)

	//トランザクションにも決済にも入らない
	assert.False(t, txm.calledRollback)
	assert.Equal(t, 0, pay.calls)
}

func TestOrderUsecase_PlaceOrder_CollectsAllViolations(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true, TransactionID: "tx-1"}}
	uc, carts, cartItems, products, _, _ := newOrderUsecaseForTest(t, pay)

	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 100, Quantity: 2},
		{ID: 2, CartID: 10, ProductID: 200, Quantity: 5},
		{ID: 3, CartID: 10, ProductID: 300, Quantity: 1},
	}, nil)

	//100は非公開、200は在庫不足、300は問題なし
	products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, IsActive: false, Price: price("10.00"), Stock: 99}, nil)
	products.On("FindByID", mock.Anything, int64(200)).Return(model.Product{ID: 200, IsActive: true, Price: price("20.00"), Stock: 3}, nil)
	products.On("FindByID", mock.Anything, int64(300)).Return(model.Product{ID: 300, IsActive: true, Price: price("30.00"), Stock: 10}, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "cart validation failed", he.Message)
	require.Len(t, he.Details, 2)
	assert.Contains(t, he.Details, "product 100: not available")
	assert.Contains(t, he.Details, "product 200: insufficient stock (want 5, have 3)")

	//決済は走らない
	assert.Equal(t, 0, pay.calls)
}

func TestOrderUsecase_PlaceOrder_PaymentFailure_NoOrderCreated(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: false, FailureReason: "card declined"}}
	uc, carts, cartItems, products, txRepos, _ := newOrderUsecaseForTest(t, pay)

	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 100, Quantity: 2},
	}, nil)
	products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, IsActive: true, Price: price("10.00"), Stock: 5}, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "payment failed: card declined", he.Message)

	//決済には合計金額が渡る
	assert.Equal(t, 1, pay.calls)
	assert.True(t, pay.lastAmount.Equal(price("20.00")))
	assert.Equal(t, "card", pay.lastMethod)

	txRepos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_Success_DecrementsStockAndClearsCart(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true, TransactionID: "tx-123"}}
	uc, carts, cartItems, products, txRepos, _ := newOrderUsecaseForTest(t, pay)

	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 100, Quantity: 2},
		{ID: 2, CartID: 10, ProductID: 200, Quantity: 1},
	}, nil)

	p100 := model.Product{ID: 100, Name: "apple", IsActive: true, Price: price("10.50"), Stock: 5}
	p200 := model.Product{ID: 200, Name: "banana", IsActive: true, Price: price("3.25"), Stock: 5}
	products.On("FindByID", mock.Anything, int64(100)).Return(p100, nil)
	products.On("FindByID", mock.Anything, int64(200)).Return(p200, nil)

	//トランザクション内の取り直し
	txRepos.products.On("FindByID", mock.Anything, int64(100)).Return(p100, nil)
	txRepos.products.On("FindByID", mock.Anything, int64(200)).Return(p200, nil)
	txRepos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	txRepos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(200), int64(1)).Return(true, nil)
	txRepos.orders.On("Create", mock.Anything, mock.Anything).Return(int64(77), nil)
	txRepos.orderItems.On("CreateBulk", mock.Anything, int64(77), mock.Anything).Return(nil)
	txRepos.carts.On("UpdateStatus", mock.Anything, int64(10), model.CartStatusCheckedOut).Return(nil)
	txRepos.carts.On("Clear", mock.Anything, int64(10)).Return(nil)

	out, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{PaymentMethod: "card"})
	require.NoError(t, err)

	assert.Equal(t, int64(77), out.ID)
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	//合計は明細スナップショットの合計と一致する（10.50*2 + 3.25*1）
	assert.True(t, out.TotalAmount.Equal(price("24.25")))
	require.Len(t, out.Items, 2)

	sum := decimal.Zero
	for _, it := range out.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	assert.True(t, out.TotalAmount.Equal(sum))

	//注文に決済IDが乗る
	txRepos.orders.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.PaymentTransactionID == "tx-123" && o.UserID == 1
	}))
	txRepos.carts.AssertExpectations(t)
	txRepos.inventory.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_StockRace_RollsBack(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true, TransactionID: "tx-1"}}
	uc, carts, cartItems, products, txRepos, txm := newOrderUsecaseForTest(t, pay)

	carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10}, nil)
	cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 100, Quantity: 2},
	}, nil)

	p := model.Product{ID: 100, IsActive: true, Price: price("10.00"), Stock: 5}
	products.On("FindByID", mock.Anything, int64(100)).Return(p, nil)

	//事前検証は通るがトランザクション内で誰かに先を越された
	txRepos.products.On("FindByID", mock.Anything, int64(100)).Return(p, nil)
	txRepos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(false, nil)

	_, err := uc.PlaceOrder(context.Background(), 1, PlaceOrderInput{})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "product 100: insufficient stock", he.Message)
	assert.True(t, txm.calledRollback)

	txRepos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_GetMyOrderDetail_OtherUsersOrder_NotFound(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, txRepos, _ := newOrderUsecaseForTest(t, pay)

	txRepos.orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{ID: 7, UserID: 2, Status: model.OrderStatusPending}, nil)

	_, err := uc.GetMyOrderDetail(context.Background(), 1, 7)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	//存在の有無を漏らさないためforbiddenではなくnot found
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestOrderUsecase_CancelOrder_RestoresStockAndIncrementsCount(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, txRepos, _ := newOrderUsecaseForTest(t, pay)

	txRepos.orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{ID: 7, UserID: 1, Status: model.OrderStatusPending, TotalAmount: price("24.25")}, nil)
	txRepos.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, CancellationCount: 2}, nil)
	txRepos.orderItems.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{
		{ProductID: 100, Quantity: 2},
		{ProductID: 200, Quantity: 1},
	}, nil)
	txRepos.inventory.On("IncreaseStock", mock.Anything, int64(100), int64(2)).Return(nil)
	txRepos.inventory.On("IncreaseStock", mock.Anything, int64(200), int64(1)).Return(nil)
	txRepos.orders.On("UpdateStatus", mock.Anything, int64(7), model.OrderStatusCancelled).Return(nil)
	txRepos.users.On("IncrementCancellationCount", mock.Anything, int64(1)).Return(nil)

	out, err := uc.CancelOrder(context.Background(), 1, model.RoleCustomer, 7)
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderStatusCancelled), out.Status)
	txRepos.inventory.AssertExpectations(t)
	txRepos.users.AssertCalled(t, "IncrementCancellationCount", mock.Anything, int64(1))
}

func TestOrderUsecase_CancelOrder_LimitReached_Forbidden(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, txRepos, _ := newOrderUsecaseForTest(t, pay)

	txRepos.orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{ID: 7, UserID: 1, Status: model.OrderStatusPending}, nil)
	//上限は5
	txRepos.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, CancellationCount: 5}, nil)

	_, err := uc.CancelOrder(context.Background(), 1, model.RoleCustomer, 7)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Status)
	assert.Equal(t, "cancellation limit reached", he.Message)

	txRepos.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	txRepos.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_CancelOrder_AdminBypassesLimit(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, txRepos, _ := newOrderUsecaseForTest(t, pay)

	txRepos.orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{ID: 7, UserID: 1, Status: model.OrderStatusPending}, nil)
	txRepos.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, CancellationCount: 5}, nil)
	txRepos.orderItems.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{}, nil)
	txRepos.orders.On("UpdateStatus", mock.Anything, int64(7), model.OrderStatusCancelled).Return(nil)
	txRepos.users.On("IncrementCancellationCount", mock.Anything, int64(1)).Return(nil)

	//管理者が別ユーザーの注文をキャンセルする
	_, err := uc.CancelOrder(context.Background(), 99, model.RoleAdmin, 7)
	require.NoError(t, err)
}

func TestOrderUsecase_CancelOrder_Shipped_Rejected(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, txRepos, _ := newOrderUsecaseForTest(t, pay)

	txRepos.orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{ID: 7, UserID: 1, Status: model.OrderStatusShipped}, nil)

	_, err := uc.CancelOrder(context.Background(), 1, model.RoleCustomer, 7)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "only pending orders can be cancelled", he.Message)
}

func TestOrderUsecase_CancelOrder_OtherUsersOrder_Forbidden(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, txRepos, _ := newOrderUsecaseForTest(t, pay)

	txRepos.orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{ID: 7, UserID: 2, Status: model.OrderStatusPending}, nil)

	_, err := uc.CancelOrder(context.Background(), 1, model.RoleCustomer, 7)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Status)
}

func TestOrderUsecase_ListMyOrders_InvalidPaging(t *testing.T) {
	pay := &stubProcessor{result: payment.Result{Success: true}}
	uc, _, _, _, _, _ := newOrderUsecaseForTest(t, pay)

	_, err := uc.ListMyOrders(context.Background(), 1, 0, 20)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	_, err = uc.ListMyOrders(context.Background(), 1, 1, 101)
	he, ok = AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

var _ repo.TxRepos = (*fakeTxRepos)(nil)
