package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// ProduceItem is the read-only inventory view consumed by the order and
// subscription handlers. Stock mutation is owned by the inventory service,
// not by this core.
type ProduceItem struct {
	id                uuid.UUID
	name              string
	unitPrice         sharedDomain.Money
	availableQuantity sharedDomain.Quantity
}

// RehydrateProduceItem recreates a produce item from persisted state.
func RehydrateProduceItem(id uuid.UUID, name string, unitPrice sharedDomain.Money, available sharedDomain.Quantity) *ProduceItem {
	return &ProduceItem{
		id:                id,
		name:              name,
		unitPrice:         unitPrice,
		availableQuantity: available,
	}
}

func (p *ProduceItem) ID() uuid.UUID                            { return p.id }
func (p *ProduceItem) Name() string                             { return p.name }
func (p *ProduceItem) UnitPrice() sharedDomain.Money            { return p.unitPrice }
func (p *ProduceItem) AvailableQuantity() sharedDomain.Quantity { return p.availableQuantity }

// HasStock reports whether the requested quantity can be fulfilled.
// A unit mismatch counts as unfulfillable rather than an error: the caller
// asked for the item in a unit it is not sold in.
func (p *ProduceItem) HasStock(requested sharedDomain.Quantity) bool {
	insufficient, err := p.availableQuantity.LessThan(requested)
	if err != nil {
		return false
	}
	return !insufficient
}

// LinePrice computes unit price times the requested quantity. The unit
// price is per sale unit (the unit the stock is kept in), so a request in
// a different mass unit is converted before multiplying.
func (p *ProduceItem) LinePrice(requested sharedDomain.Quantity) (sharedDomain.Money, error) {
	priced, err := requested.In(p.availableQuantity.Unit())
	if err != nil {
		return sharedDomain.Money{}, err
	}
	return p.unitPrice.MultiplyBy(priced.Value())
}
