package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// ステータス別の件数
type StatusCount struct {
	Status model.OrderStatus
	Count  int64
}

// 期間ごとの売上集計（date_truncで丸めた期間の先頭がPeriod）
type RevenueBucket struct {
	Period  time.Time
	Orders  int64
	Revenue decimal.Decimal
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
	//新しい順にn件
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)

	//集計系（読み取りのみ）
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	//CANCELLEDを除いた売上合計
	SumRevenue(ctx context.Context) (decimal.Decimal, error)
	//since以降をperiod（day/week/month/year）単位でグループ化
	RevenueByPeriod(ctx context.Context, period string, since time.Time) ([]RevenueBucket, error)
}
