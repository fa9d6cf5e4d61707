package draft

import "salesadmin/backend/internal/domain"

// ItemEditor resolves a single catalog selection plus a quantity into a
// concrete line item. When opened on an existing item the product identity
// is locked and only the quantity can change.
type ItemEditor struct {
	candidates []domain.Product
	initial    *domain.LineItem
	productID  int64
	quantity   int
}

func newItemEditor(candidates []domain.Product, initial *domain.LineItem) *ItemEditor {
	ie := &ItemEditor{candidates: candidates, initial: initial}
	if initial != nil {
		ie.productID = initial.ProductID
		ie.quantity = initial.Quantity
	}
	return ie
}

func (ie *ItemEditor) Locked() bool {
	return ie.initial != nil
}

// Candidates returns the catalog products offered by the selector.
func (ie *ItemEditor) Candidates() []domain.Product {
	out := make([]domain.Product, len(ie.candidates))
	copy(out, ie.candidates)
	return out
}

// SelectProduct picks a product from the candidate list. The selection is
// cleared when the id is not offered; identity changes are rejected while
// editing an existing item.
func (ie *ItemEditor) SelectProduct(id int64) error {
	if ie.Locked() {
		if id == ie.initial.ProductID {
			return nil
		}
		return ErrProductLocked
	}
	ie.productID = 0
	for _, p := range ie.candidates {
		if p.ID == id {
			ie.productID = id
			break
		}
	}
	return nil
}

// SetQuantity sets the item quantity. Non-positive quantities are rejected
// locally and never reach the draft.
func (ie *ItemEditor) SetQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	ie.quantity = quantity
	return nil
}

// resolve turns the current selection into a line item. The chosen id is
// looked up in the candidate list, falling back to the initial item when it
// matches: while editing, the item's own product may have dropped out of the
// catalog but the recorded name and price still apply. An unset quantity
// defaults to 1.
func (ie *ItemEditor) resolve() (domain.LineItem, error) {
	if ie.productID == 0 {
		return domain.LineItem{}, ErrNoProductSelected
	}

	quantity := ie.quantity
	if quantity < 1 {
		quantity = 1
	}

	if product, ok := findProduct(ie.candidates, ie.productID); ok {
		return domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			Quantity:  quantity,
		}, nil
	}
	if ie.initial != nil && ie.initial.ProductID == ie.productID {
		item := *ie.initial
		item.Quantity = quantity
		return item, nil
	}
	return domain.LineItem{}, ErrNoProductSelected
}
