package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 決済結果。失敗時はFailureReasonに理由が入る。
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// 決済ゲートウェイの約束。テストではこれを固定結果の実装に差し替える。
type Processor interface {
	ProcessPayment(ctx context.Context, amount decimal.Decimal, method string) (Result, error)
}

// 失敗時に返す理由（実ゲートウェイの代わりに固定の候補から選ぶ）
var failureReasons = []string{
	"insufficient funds",
	"card declined",
	"invalid card details",
	"payment gateway error",
	"payment gateway timeout",
}

// Simulatorは確率successRateで成功する疑似ゲートウェイ。
// どちらの結果でも副作用は無い。
type Simulator struct {
	successRate float64
	delay       time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(successRate float64, delay time.Duration) *Simulator {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &Simulator{
		successRate: successRate,
		delay:       delay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ゲートウェイ遅延を再現してから確率で成否を決める。
// 遅延は固定長で、途中でキャンセルはしない。
func (s *Simulator) ProcessPayment(ctx context.Context, amount decimal.Decimal, method string) (Result, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	reason := failureReasons[s.rng.Intn(len(failureReasons))]
	s.mu.Unlock()

	if roll < s.successRate {
		return Result{
			Success:       true,
			TransactionID: uuid.NewString(),
		}, nil
	}

	return Result{
		Success:       false,
		FailureReason: reason,
	}, nil
}
