package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
)

type AdminOrderUsecase struct {
	tx repo.TransactionManager

	//売上集計の対象期間（直近n日）
	revenueWindowDays int
}

func NewAdminOrderUsecase(tx repo.TransactionManager, revenueWindowDays int) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, revenueWindowDays: revenueWindowDays}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid limit")
	}
	if f.Status != "" && !model.ValidOrderStatus(f.Status) {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid status")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
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

// ステータス更新。遷移表に無い遷移（同一ステータスへの変更も含む）は拒否。
// CANCELLEDへの変更だけ在庫を戻す。それ以外は在庫に触らない。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, orderID int64, in AdminUpdateOrderStatusInput) error {
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}

	newStatus := strings.TrimSpace(in.Status)
	if !model.ValidOrderStatus(newStatus) {
		return NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid status")
	}
	to := model.OrderStatus(newStatus)

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		if !model.CanTransition(o.Status, to) {
			return NewHTTPError(http.StatusBadRequest, CodeBusinessRule,
				fmt.Sprintf("cannot change %s order to %s", o.Status, to))
		}

		//管理者キャンセルも在庫は戻す（ユーザーのキャンセル回数は増やさない）
		if to == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}

			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
				}
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, to); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		return nil
	})
}

type OrderStatisticsOutput struct {
	TotalOrders int64            `json:"total_orders"`
	ByStatus    map[string]int64 `json:"by_status"`
	//CANCELLEDを除いた売上合計
	Revenue decimal.Decimal `json:"revenue"`
}

// ステータス別件数と売上合計
func (u *AdminOrderUsecase) Statistics(ctx context.Context) (OrderStatisticsOutput, error) {
	out := OrderStatisticsOutput{
		ByStatus: map[string]int64{
			string(model.OrderStatusPending):   0,
			string(model.OrderStatusShipped):   0,
			string(model.OrderStatusDelivered): 0,
			string(model.OrderStatusCancelled): 0,
		},
		Revenue: decimal.Zero,
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		counts, err := r.Orders().CountByStatus(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		for _, c := range counts {
			out.ByStatus[string(c.Status)] = c.Count
			out.TotalOrders += c.Count
		}

		revenue, err := r.Orders().SumRevenue(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		out.Revenue = revenue
		return nil
	})

	if err != nil {
		return OrderStatisticsOutput{}, err
	}
	return out, nil
}

// 新しい順にn件（明細付き）
func (u *AdminOrderUsecase) Recent(ctx context.Context, limit int) ([]OrderOutput, error) {
	if limit < 1 || limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListRecent(ctx, limit)
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

type RevenueBucketOutput struct {
	Period  time.Time       `json:"period"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type RevenueOutput struct {
	Period  string                `json:"period"`
	Since   time.Time             `json:"since"`
	Buckets []RevenueBucketOutput `json:"buckets"`
}

// 直近revenueWindowDays日の売上をperiod単位で集計
func (u *AdminOrderUsecase) Revenue(ctx context.Context, period string) (RevenueOutput, error) {
	switch period {
	case "day", "week", "month", "year":
	default:
		return RevenueOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid period")
	}

	since := time.Now().AddDate(0, 0, -u.revenueWindowDays)

	out := RevenueOutput{
		Period:  period,
		Since:   since,
		Buckets: []RevenueBucketOutput{},
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		buckets, err := r.Orders().RevenueByPeriod(ctx, period, since)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		for _, b := range buckets {
			out.Buckets = append(out.Buckets, RevenueBucketOutput{
				Period:  b.Period,
				Orders:  b.Orders,
				Revenue: b.Revenue,
			})
		}
		return nil
	})

	if err != nil {
		return RevenueOutput{}, err
	}
	return out, nil
}
