// Package draft implements the sale-aggregate editing engine: an explicit
// state machine that owns one in-progress Sale draft, embeds a nested
// line-item editor, keeps the derived total in sync, and prevents duplicate
// catalog references. All transitions are synchronous; callers serialize
// access (the service holds one editor behind a mutex).
package draft

import (
	"errors"
	"fmt"

	"salesadmin/backend/internal/domain"
)

var (
	ErrClosed               = errors.New("sale editor is closed")
	ErrItemEditorActive     = errors.New("line item editor is active")
	ErrNoItemEditor         = errors.New("no line item editor is active")
	ErrNoProductSelected    = errors.New("no product selected")
	ErrProductLocked        = errors.New("product cannot change while editing a line item")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInvalidUnitPrice     = errors.New("unit price must not be negative")
	ErrUnknownLineItem      = errors.New("line item not in draft")
	ErrMissingCustomer      = errors.New("customer is required")
	ErrMissingPaymentMethod = errors.New("payment method is required")
)

type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Editor is the sale-aggregate editor. The zero value is a closed editor.
type Editor struct {
	mode          Mode
	saleID        int64
	customer      domain.Reference
	paymentMethod domain.Reference
	lineItems     []domain.LineItem
	totalPrice    int64
	ref           domain.ReferenceData
	item          *ItemEditor
}

func NewEditor() *Editor {
	return &Editor{}
}

// Open starts an editing session. A nil initial sale opens an empty draft in
// create mode; otherwise the draft is populated from the sale in edit mode,
// reconciling each line item against the catalog snapshot. A previously open
// draft is discarded first, so Open always starts clean.
func (e *Editor) Open(initial *domain.Sale, ref domain.ReferenceData) {
	e.reset()
	e.ref = ref

	if initial == nil {
		e.mode = ModeCreate
		return
	}

	e.mode = ModeEdit
	e.saleID = initial.ID
	e.customer = initial.Customer
	e.paymentMethod = initial.PaymentMethod
	e.lineItems = reconcileLineItems(initial.LineItems, ref.Products)
	e.recomputeTotal()
}

// reconcileLineItems refreshes name and unit price from the current catalog.
// A catalog entry that no longer exists falls back to the values recorded on
// the sale itself; the edit must not fail because the catalog moved on.
func reconcileLineItems(items []domain.LineItem, catalog []domain.Product) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if product, ok := findProduct(catalog, item.ProductID); ok {
			item.Name = product.Name
			item.UnitPrice = product.UnitPrice
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		out = append(out, item)
	}
	return out
}

func findProduct(catalog []domain.Product, id int64) (domain.Product, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (e *Editor) IsOpen() bool {
	return e.mode != ModeClosed
}

func (e *Editor) Mode() Mode {
	return e.mode
}

func (e *Editor) SaleID() int64 {
	return e.saleID
}

// SelectCustomer replaces the draft's customer with the entry matching id in
// the session's reference list. An unknown id clears the field; selection is
// never an error while the editor is open.
func (e *Editor) SelectCustomer(id int64) error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	e.customer = domain.Reference{}
	for _, c := range e.ref.Customers {
		if c.ID == id {
			e.customer = domain.Reference{ID: c.ID, Name: c.Name}
			break
		}
	}
	return nil
}

// SelectPaymentMethod mirrors SelectCustomer for the payment method field.
func (e *Editor) SelectPaymentMethod(id int64) error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	e.paymentMethod = domain.Reference{}
	for _, pm := range e.ref.PaymentMethods {
		if pm.ID == id {
			e.paymentMethod = domain.Reference{ID: pm.ID, Name: pm.Name}
			break
		}
	}
	return nil
}

// BeginAddLineItem opens the nested line-item editor for a new item. The
// candidate list excludes every product already in the draft.
func (e *Editor) BeginAddLineItem() error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	if e.item != nil {
		return ErrItemEditorActive
	}
	e.item = newItemEditor(e.candidateProducts(0), nil)
	return nil
}

// BeginEditLineItem opens the nested editor on an existing item. The product
// selector is locked; only the quantity can change. The candidate list
// excludes all other present products but keeps the edited one.
func (e *Editor) BeginEditLineItem(productID int64) error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	if e.item != nil {
		return ErrItemEditorActive
	}
	for _, item := range e.lineItems {
		if item.ProductID == productID {
			initial := item
			e.item = newItemEditor(e.candidateProducts(productID), &initial)
			return nil
		}
	}
	return ErrUnknownLineItem
}

// candidateProducts filters the catalog down to products not yet in the
// draft. keepID, when non-zero, names the item being edited and stays in.
func (e *Editor) candidateProducts(keepID int64) []domain.Product {
	present := make(map[int64]bool, len(e.lineItems))
	for _, item := range e.lineItems {
		present[item.ProductID] = true
	}
	candidates := make([]domain.Product, 0, len(e.ref.Products))
	for _, p := range e.ref.Products {
		if present[p.ID] && p.ID != keepID {
			continue
		}
		candidates = append(candidates, p)
	}
	return candidates
}

// ItemEditor returns the active nested editor, or nil.
func (e *Editor) ItemEditor() *ItemEditor {
	return e.item
}

// SaveLineItem resolves the nested editor into a concrete line item, commits
// it into the draft, and closes the nested editor. The parent state (create
// or edit) is untouched.
func (e *Editor) SaveLineItem() error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	if e.item == nil {
		return ErrNoItemEditor
	}
	item, err := e.item.resolve()
	if err != nil {
		return err
	}
	if err := e.CommitLineItem(item); err != nil {
		return err
	}
	e.item = nil
	return nil
}

// CancelLineItem discards the nested editor without touching the draft.
func (e *Editor) CancelLineItem() error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	e.item = nil
	return nil
}

// CommitLineItem merges a resolved line item into the draft: an item with
// the same productId is replaced in place, otherwise the item is appended.
// This is where the no-duplicates invariant lives; the total is recomputed
// before returning.
func (e *Editor) CommitLineItem(item domain.LineItem) error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	if item.ProductID <= 0 {
		return ErrNoProductSelected
	}
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if item.UnitPrice < 0 {
		return ErrInvalidUnitPrice
	}

	replaced := false
	for i := range e.lineItems {
		if e.lineItems[i].ProductID == item.ProductID {
			e.lineItems[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		e.lineItems = append(e.lineItems, item)
	}
	e.recomputeTotal()
	return nil
}

// RemoveLineItem deletes the matching item and recomputes the total. An
// absent productId is a no-op, not an error.
func (e *Editor) RemoveLineItem(productID int64) error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	for i := range e.lineItems {
		if e.lineItems[i].ProductID == productID {
			e.lineItems = append(e.lineItems[:i], e.lineItems[i+1:]...)
			break
		}
	}
	e.recomputeTotal()
	return nil
}

func (e *Editor) recomputeTotal() {
	var total int64
	for _, item := range e.lineItems {
		total += item.LineTotal()
	}
	e.totalPrice = total
}

func (e *Editor) TotalPrice() int64 {
	return e.totalPrice
}

// LineItems returns a copy of the draft's line items in order.
func (e *Editor) LineItems() []domain.LineItem {
	out := make([]domain.LineItem, len(e.lineItems))
	copy(out, e.lineItems)
	return out
}

func (e *Editor) Customer() domain.Reference {
	return e.customer
}

func (e *Editor) PaymentMethod() domain.Reference {
	return e.paymentMethod
}

// Submit validates the draft, builds the save payload, and hands it to the
// save collaborator. On success the editor closes and the draft is reset; on
// failure (validation or save) the draft is left intact so the user can fix
// or retry. The nested editor must be resolved or cancelled first.
func (e *Editor) Submit(save func(payload domain.SalePayload) error) error {
	if e.mode == ModeClosed {
		return ErrClosed
	}
	if e.item != nil {
		return ErrItemEditorActive
	}
	if e.customer.IsZero() {
		return ErrMissingCustomer
	}
	if e.paymentMethod.IsZero() {
		return ErrMissingPaymentMethod
	}

	e.recomputeTotal()
	payload := domain.SalePayload{
		CustomerID:      e.customer.ID,
		PaymentMethodID: e.paymentMethod.ID,
		TotalPrice:      e.totalPrice,
		Products:        make([]domain.SaleLineInput, 0, len(e.lineItems)),
	}
	for _, item := range e.lineItems {
		payload.Products = append(payload.Products, domain.SaleLineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	if err := save(payload); err != nil {
		return fmt.Errorf("save sale: %w", err)
	}

	e.reset()
	return nil
}

// Cancel discards the draft unconditionally, including an active nested
// editor. No save call is made.
func (e *Editor) Cancel() {
	e.reset()
}

// reset returns the editor to the closed state with empty draft fields.
// Every path out of an editing session ends here.
func (e *Editor) reset() {
	e.mode = ModeClosed
	e.saleID = 0
	e.customer = domain.Reference{}
	e.paymentMethod = domain.Reference{}
	e.lineItems = nil
	e.totalPrice = 0
	e.ref = domain.ReferenceData{}
	e.item = nil
}

// View is a read-only snapshot of the editor for transport to the UI.
type View struct {
	Open          bool              `json:"open"`
	Mode          string            `json:"mode"`
	SaleID        int64             `json:"saleId,omitempty"`
	Customer      domain.Reference  `json:"customer"`
	PaymentMethod domain.Reference  `json:"paymentMethod"`
	TotalPrice    int64             `json:"totalPrice"`
	LineItems     []domain.LineItem `json:"products"`
	ItemEditor    *ItemView         `json:"itemEditor,omitempty"`
}

type ItemView struct {
	Locked     bool             `json:"locked"`
	ProductID  int64            `json:"productId,omitempty"`
	Quantity   int              `json:"quantity"`
	Candidates []domain.Product `json:"candidates"`
}

func (e *Editor) View() View {
	v := View{
		Open:          e.IsOpen(),
		Mode:          e.mode.String(),
		SaleID:        e.saleID,
		Customer:      e.customer,
		PaymentMethod: e.paymentMethod,
		TotalPrice:    e.totalPrice,
		LineItems:     e.LineItems(),
	}
	if e.item != nil {
		v.ItemEditor = &ItemView{
			Locked:     e.item.Locked(),
			ProductID:  e.item.productID,
			Quantity:   e.item.quantity,
			Candidates: e.item.Candidates(),
		}
	}
	return v
}
