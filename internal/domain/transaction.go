package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxTypeDebit  TxType = "debit"
	TxTypeCredit TxType = "credit"
)

// Transaction journals one balance mutation. Amount is signed.
type Transaction struct {
	ID          int64
	OwnerID     string
	Amount      decimal.Decimal
	TxType      TxType
	Description string
	OrderID     *uuid.UUID
	TaskID      *uuid.UUID
	CreatedAt   time.Time
}

// LedgerRef ties a balance mutation to the object that caused it.
type LedgerRef struct {
	Description string
	OrderID     *uuid.UUID
	TaskID      *uuid.UUID
}
