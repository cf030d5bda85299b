package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"Pending_to_Shipped", OrderStatusPending, OrderStatusShipped, true},
		{"Pending_to_Cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"Shipped_to_Delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"Shipped_to_Cancelled", OrderStatusShipped, OrderStatusCancelled, true},

		//配送飛ばしはNG
		{"Pending_to_Delivered", OrderStatusPending, OrderStatusDelivered, false},
		//終端からはどこへも行けない
		{"Delivered_to_Shipped", OrderStatusDelivered, OrderStatusShipped, false},
		{"Delivered_to_Cancelled", OrderStatusDelivered, OrderStatusCancelled, false},
		{"Cancelled_to_Pending", OrderStatusCancelled, OrderStatusPending, false},
		//巻き戻しもNG
		{"Shipped_to_Pending", OrderStatusShipped, OrderStatusPending, false},
		//同一ステータスへの変更もNG
		{"Pending_to_Pending", OrderStatusPending, OrderStatusPending, false},
		{"Shipped_to_Shipped", OrderStatusShipped, OrderStatusShipped, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus("PENDING"))
	assert.True(t, ValidOrderStatus("SHIPPED"))
	assert.True(t, ValidOrderStatus("DELIVERED"))
	assert.True(t, ValidOrderStatus("CANCELLED"))

	assert.False(t, ValidOrderStatus(""))
	assert.False(t, ValidOrderStatus("pending"))
	assert.False(t, ValidOrderStatus("REFUNDED"))
}
