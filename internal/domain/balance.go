package domain

import "github.com/shopspring/decimal"

// BalanceAccount is a party's spendable balance. Available is never negative.
type BalanceAccount struct {
	OwnerID   string
	Available decimal.Decimal
}
