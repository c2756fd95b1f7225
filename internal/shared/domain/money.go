package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMoneyNegativeAmount   = errors.New("money amount cannot be negative")
	ErrMoneyInvalidCurrency  = errors.New("currency must be a 3-letter code")
	ErrMoneyCurrencyMismatch = errors.New("cannot operate on different currencies")
	ErrMoneyNegativeResult   = errors.New("money operation would produce a negative result")
	ErrMoneyNegativeFactor   = errors.New("money factor cannot be negative")
)

// Money is an amount in minor currency units (cents, pence) plus an
// ISO 4217 currency code. Immutable; all operations return a new value.
type Money struct {
	amount   int64
	currency string
}

// NewMoney creates a Money value. Amount is in minor units.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrMoneyNegativeAmount
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrMoneyInvalidCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// ZeroMoney creates a zero amount in the given currency.
func ZeroMoney(currency string) (Money, error) {
	return NewMoney(0, currency)
}

func (m Money) Amount() int64    { return m.amount }
func (m Money) Currency() string { return m.currency }
func (m Money) IsZero() bool     { return m.amount == 0 }

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrMoneyCurrencyMismatch
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns the difference; a negative result is rejected.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, ErrMoneyCurrencyMismatch
	}
	if other.amount > m.amount {
		return Money{}, ErrMoneyNegativeResult
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// MultiplyBy scales the amount by a non-negative factor, rounding to the
// nearest minor unit.
func (m Money) MultiplyBy(factor float64) (Money, error) {
	if factor < 0 {
		return Money{}, ErrMoneyNegativeFactor
	}
	scaled := float64(m.amount)*factor + 0.5
	return Money{amount: int64(scaled), currency: m.currency}, nil
}

// Equals checks value equality.
func (m Money) Equals(other ValueObject) bool {
	o, ok := other.(Money)
	if !ok {
		return false
	}
	return m.amount == o.amount && m.currency == o.currency
}

// String renders the amount in major units for logs and CLI output.
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.amount/100, m.amount%100, m.currency)
}
