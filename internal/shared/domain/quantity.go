package domain

import (
	"errors"
	"fmt"
)

var (
	ErrQuantityNegative     = errors.New("quantity cannot be negative")
	ErrQuantityInvalidUnit  = errors.New("invalid quantity unit")
	ErrQuantityUnitMismatch = errors.New("cannot add quantities with different units")
	ErrQuantityNotMass      = errors.New("only mass units convert to grams")
)

// Unit is the measurement unit of a produce quantity.
type Unit string

const (
	UnitGram     Unit = "g"
	UnitKilogram Unit = "kg"
	UnitPiece    Unit = "piece"
	UnitBundle   Unit = "bundle"
)

// IsValid checks whether the unit is one of the supported units.
func (u Unit) IsValid() bool {
	switch u {
	case UnitGram, UnitKilogram, UnitPiece, UnitBundle:
		return true
	default:
		return false
	}
}

// IsMass reports whether the unit is a mass unit.
func (u Unit) IsMass() bool {
	return u == UnitGram || u == UnitKilogram
}

// Quantity is a non-negative amount of produce in a specific unit.
// Immutable; arithmetic returns new values.
type Quantity struct {
	value float64
	unit  Unit
}

// NewQuantity creates a Quantity value.
func NewQuantity(value float64, unit Unit) (Quantity, error) {
	if value < 0 {
		return Quantity{}, ErrQuantityNegative
	}
	if !unit.IsValid() {
		return Quantity{}, ErrQuantityInvalidUnit
	}
	return Quantity{value: value, unit: unit}, nil
}

func (q Quantity) Value() float64 { return q.value }
func (q Quantity) Unit() Unit     { return q.unit }
func (q Quantity) IsZero() bool   { return q.value == 0 }

// Add returns the sum of two quantities with the same unit.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.unit != other.unit {
		return Quantity{}, ErrQuantityUnitMismatch
	}
	return Quantity{value: q.value + other.value, unit: q.unit}, nil
}

// LessThan compares quantities with the same unit; mass units are compared
// on their canonical gram value.
func (q Quantity) LessThan(other Quantity) (bool, error) {
	if q.unit == other.unit {
		return q.value < other.value, nil
	}
	if q.unit.IsMass() && other.unit.IsMass() {
		a, _ := q.ToGrams()
		b, _ := other.ToGrams()
		return a.value < b.value, nil
	}
	return false, ErrQuantityUnitMismatch
}

// In converts the quantity to the given unit. Only mass units convert
// between each other; any other mismatch is an error.
func (q Quantity) In(unit Unit) (Quantity, error) {
	if q.unit == unit {
		return q, nil
	}
	if !q.unit.IsMass() || !unit.IsMass() {
		return Quantity{}, ErrQuantityUnitMismatch
	}
	grams, err := q.ToGrams()
	if err != nil {
		return Quantity{}, err
	}
	if unit == UnitGram {
		return grams, nil
	}
	return Quantity{value: grams.value / 1000, unit: UnitKilogram}, nil
}

// ToGrams converts a mass quantity to its canonical gram representation.
func (q Quantity) ToGrams() (Quantity, error) {
	switch q.unit {
	case UnitGram:
		return q, nil
	case UnitKilogram:
		return Quantity{value: q.value * 1000, unit: UnitGram}, nil
	default:
		return Quantity{}, ErrQuantityNotMass
	}
}

// Equals checks value equality.
func (q Quantity) Equals(other ValueObject) bool {
	o, ok := other.(Quantity)
	if !ok {
		return false
	}
	return q.value == o.value && q.unit == o.unit
}

// String renders the quantity for logs and CLI output.
func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.value, q.unit)
}
