package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod

	PaymentSuccessRate float64 // 決済シミュレータの成功率（0〜1）
	PaymentDelayMS     int     // 決済シミュレータの遅延（ミリ秒）

	MaxCancellations  int64 // ユーザーごとのキャンセル上限
	RevenueWindowDays int   // 売上集計のデフォルト期間（日）
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:      getenv("PORT", "8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		GoEnv:     getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	rate, err := floatEnv("PAYMENT_SUCCESS_RATE", 0.8)
	if err != nil {
		return Config{}, err
	}
	if rate < 0 || rate > 1 {
		return Config{}, fmt.Errorf("PAYMENT_SUCCESS_RATE must be between 0 and 1")
	}
	cfg.PaymentSuccessRate = rate

	delay, err := intEnv("PAYMENT_DELAY_MS", 300)
	if err != nil {
		return Config{}, err
	}
	if delay < 0 {
		return Config{}, fmt.Errorf("PAYMENT_DELAY_MS must be >= 0")
	}
	cfg.PaymentDelayMS = delay

	maxCancel, err := intEnv("MAX_CANCELLATIONS", 5)
	if err != nil {
		return Config{}, err
	}
	if maxCancel < 0 {
		return Config{}, fmt.Errorf("MAX_CANCELLATIONS must be >= 0")
	}
	cfg.MaxCancellations = int64(maxCancel)

	window, err := intEnv("REVENUE_WINDOW_DAYS", 30)
	if err != nil {
		return Config{}, err
	}
	if window < 1 {
		return Config{}, fmt.Errorf("REVENUE_WINDOW_DAYS must be >= 1")
	}
	cfg.RevenueWindowDays = window

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}
