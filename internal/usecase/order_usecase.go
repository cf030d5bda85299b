package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	"shop/internal/payment"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	payments  payment.Processor

	//ユーザーごとのキャンセル上限（超えたら以後キャンセル不可）
	maxCancellations int64
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	payments payment.Processor,
	maxCancellations int64,
) *OrderUsecase {
	return &OrderUsecase{
		tx:               tx,
		carts:            carts,
		cartItems:        cartItems,
		products:         products,
		payments:         payments,
		maxCancellations: maxCancellations,
	}
}

type PlaceOrderInput struct {
	PaymentMethod string
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	Status        string            `json:"status"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "card"
	}
	if len(method) > 50 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid payment_method")
	}

	//ACTIVEカート取得（空カートはトランザクションを開く前に弾く）
	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeBusinessRule, "cart empty")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	cartItems, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if len(cartItems) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeBusinessRule, "cart empty")
	}

	//事前検証。違反は1件ずつではなく全部まとめて返す。
	//合計は現在の商品価格で計算する（カート追加時の価格ではない）。
	var violations []string
	total := decimal.Zero

	for _, ci := range cartItems {
		p, err := u.products.FindByID(ctx, ci.ProductID)
		if err == repo.ErrNotFound {
			violations = append(violations, fmt.Sprintf("product %d: not available", ci.ProductID))
			continue
		}
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !p.IsActive {
			violations = append(violations, fmt.Sprintf("product %d: not available", ci.ProductID))
			continue
		}
		if p.Stock < ci.Quantity {
			violations = append(violations, fmt.Sprintf("product %d: insufficient stock (want %d, have %d)", ci.ProductID, ci.Quantity, p.Stock))
			continue
		}

		total = total.Add(p.Price.Mul(decimal.NewFromInt(ci.Quantity)))
	}

	if len(violations) > 0 {
		return OrderOutput{}, NewHTTPErrorWithDetails(http.StatusBadRequest, CodeBusinessRule, "cart validation failed", violations)
	}

	//疑似決済。成功でも失敗でも副作用は無い。
	payRes, err := u.payments.ProcessPayment(ctx, total, method)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "payment error")
	}
	if !payRes.Success {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeBusinessRule, "payment failed: "+payRes.FailureReason)
	}

	var out OrderOutput

	//注文確定はトランザクション。途中で失敗したら在庫減算ごと全部巻き戻る。
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		txTotal := decimal.Zero

		for _, ci := range cartItems {
			//事前検証の後に商品が変わっているかもしれないので取り直す
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, CodeBusinessRule, fmt.Sprintf("product %d: not available", ci.ProductID))
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, CodeBusinessRule, fmt.Sprintf("product %d: not available", ci.ProductID))
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, CodeBusinessRule, fmt.Sprintf("product %d: insufficient stock", ci.ProductID))
			}

			//スナップショット（現在価格）
			now := time.Now()
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			txTotal = txTotal.Add(p.Price.Mul(decimal.NewFromInt(ci.Quantity)))
		}

		// 注文作成（total_amountは明細スナップショットの合計と必ず一致させる）
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:               userID,
			Status:               model.OrderStatusPending,
			TotalAmount:          txTotal,
			PaymentMethod:        method,
			PaymentTransactionID: payRes.TransactionID,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		created := model.Order{
			ID:            orderID,
			UserID:        userID,
			Status:        model.OrderStatusPending,
			TotalAmount:   txTotal,
			PaymentMethod: method,
			CreatedAt:     now,
		}
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 注文キャンセル。PENDINGのみ・本人（または管理者）のみ。
// 在庫戻し＋ステータス変更＋キャンセル回数+1を1トランザクションで行う。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, role model.Role, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeForbidden, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}

	isAdmin := role == model.RoleAdmin

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//所有チェック（他人の注文は403）
		if !isAdmin && o.UserID != userID {
			return NewHTTPError(http.StatusForbidden, CodeForbidden, "forbidden")
		}

		//PENDING以外はキャンセル不可（SHIPPED以降は遷移表どおり拒否）
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusBadRequest, CodeBusinessRule, "only pending orders can be cancelled")
		}

		owner, err := r.Users().FindByID(ctx, o.UserID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//キャンセル上限。回数は減らないので上限到達後はサポート対応になる。
		//管理者によるキャンセルは上限の対象外。
		if !isAdmin && owner.CancellationCount >= u.maxCancellations {
			return NewHTTPError(http.StatusForbidden, CodeForbidden, "cancellation limit reached")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//在庫を全量戻す
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		if err := r.Users().IncrementCancellationCount(ctx, o.UserID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}
