package repository

import "context"

type InventoryRepository interface {
	// 在庫が足りるときだけ減算。チェックと減算は1文で行う（同時注文対策）。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error
}
