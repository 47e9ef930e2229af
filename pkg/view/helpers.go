package view

import (
	"time"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/money"
)

// Amount is a money value rendered both as a number and for display.
type Amount struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

func amountOf(cents int64, currency string) Amount {
	return Amount{Value: money.Float(cents), Formatted: money.Format(cents, currency)}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
