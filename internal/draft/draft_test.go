package draft

import (
	"errors"
	"fmt"
	"testing"

	"salesadmin/backend/internal/domain"
)

func testRefData() domain.ReferenceData {
	return domain.ReferenceData{
		Customers: []domain.Customer{
			{ID: 1, Name: "A"},
			{ID: 2, Name: "B"},
		},
		PaymentMethods: []domain.PaymentMethod{
			{ID: 1, Name: "Dinheiro"},
			{ID: 2, Name: "Pix"},
		},
		Products: []domain.Product{
			{ID: 5, Name: "Teclado", UnitPrice: 10},
			{ID: 6, Name: "Mouse", UnitPrice: 25},
			{ID: 7, Name: "Monitor", UnitPrice: 100},
		},
	}
}

func assertTotalInvariant(t *testing.T, e *Editor) {
	t.Helper()
	var want int64
	for _, item := range e.LineItems() {
		want += item.UnitPrice * int64(item.Quantity)
	}
	if got := e.TotalPrice(); got != want {
		t.Fatalf("total price %d does not match weighted sum %d", got, want)
	}
}

func assertNoDuplicates(t *testing.T, e *Editor) {
	t.Helper()
	seen := map[int64]bool{}
	for _, item := range e.LineItems() {
		if seen[item.ProductID] {
			t.Fatalf("duplicate productId %d in line items", item.ProductID)
		}
		seen[item.ProductID] = true
	}
}

func TestOpenCreateStartsEmpty(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())

	if e.Mode() != ModeCreate {
		t.Fatalf("expected create mode, got %v", e.Mode())
	}
	if !e.Customer().IsZero() || !e.PaymentMethod().IsZero() {
		t.Fatalf("expected empty references in a fresh create draft")
	}
	if len(e.LineItems()) != 0 || e.TotalPrice() != 0 {
		t.Fatalf("expected empty line items and zero total")
	}
}

func TestOpenEditPopulatesAndReconciles(t *testing.T) {
	e := NewEditor()
	sale := &domain.Sale{
		ID:            7,
		Customer:      domain.Reference{ID: 1, Name: "A"},
		PaymentMethod: domain.Reference{ID: 2, Name: "Pix"},
		LineItems: []domain.LineItem{
			{ProductID: 5, Quantity: 3, UnitPrice: 10},
		},
	}
	e.Open(sale, testRefData())

	if e.Mode() != ModeEdit || e.SaleID() != 7 {
		t.Fatalf("expected edit mode on sale 7")
	}
	items := e.LineItems()
	if len(items) != 1 {
		t.Fatalf("expected exactly one line item, got %d", len(items))
	}
	if items[0].ProductID != 5 || items[0].Quantity != 3 {
		t.Fatalf("unexpected line item %+v", items[0])
	}
	if items[0].Name != "Teclado" {
		t.Fatalf("expected name refreshed from catalog, got %q", items[0].Name)
	}
	if e.TotalPrice() != 30 {
		t.Fatalf("expected total 30, got %d", e.TotalPrice())
	}
}

func TestOpenEditFallsBackWhenProductGone(t *testing.T) {
	e := NewEditor()
	sale := &domain.Sale{
		ID:            9,
		Customer:      domain.Reference{ID: 1, Name: "A"},
		PaymentMethod: domain.Reference{ID: 2, Name: "Pix"},
		LineItems: []domain.LineItem{
			{ProductID: 99, Name: "Descontinuado", Quantity: 2, UnitPrice: 45},
		},
	}
	e.Open(sale, testRefData())

	items := e.LineItems()
	if len(items) != 1 {
		t.Fatalf("expected the missing-product item to survive reconciliation")
	}
	if items[0].Name != "Descontinuado" || items[0].UnitPrice != 45 {
		t.Fatalf("expected fallback to recorded name/price, got %+v", items[0])
	}
	if e.TotalPrice() != 90 {
		t.Fatalf("expected total 90, got %d", e.TotalPrice())
	}
}

func TestSelectCustomerUnknownIDClears(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())

	if err := e.SelectCustomer(1); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	if e.Customer().Name != "A" {
		t.Fatalf("expected customer A, got %+v", e.Customer())
	}
	if err := e.SelectCustomer(42); err != nil {
		t.Fatalf("unknown id must not error: %v", err)
	}
	if !e.Customer().IsZero() {
		t.Fatalf("unknown id must clear the field, got %+v", e.Customer())
	}
}

func TestCommitSequenceNeverDuplicates(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())

	commits := []domain.LineItem{
		{ProductID: 5, Name: "Teclado", UnitPrice: 10, Quantity: 1},
		{ProductID: 6, Name: "Mouse", UnitPrice: 25, Quantity: 2},
		{ProductID: 5, Name: "Teclado", UnitPrice: 10, Quantity: 4},
		{ProductID: 7, Name: "Monitor", UnitPrice: 100, Quantity: 1},
		{ProductID: 6, Name: "Mouse", UnitPrice: 25, Quantity: 1},
		{ProductID: 5, Name: "Teclado", UnitPrice: 10, Quantity: 2},
	}
	for i, item := range commits {
		if err := e.CommitLineItem(item); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		assertNoDuplicates(t, e)
		assertTotalInvariant(t, e)
	}

	items := e.LineItems()
	if len(items) != 3 {
		t.Fatalf("expected 3 distinct items, got %d", len(items))
	}
	// Replacement preserves first-insertion order.
	if items[0].ProductID != 5 || items[1].ProductID != 6 || items[2].ProductID != 7 {
		t.Fatalf("unexpected order: %+v", items)
	}
	if items[0].Quantity != 2 || items[1].Quantity != 1 {
		t.Fatalf("expected later commits to replace in place, got %+v", items)
	}
	if e.TotalPrice() != 2*10+1*25+1*100 {
		t.Fatalf("unexpected total %d", e.TotalPrice())
	}
}

func TestCommitRejectsInvalidItems(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())

	cases := []struct {
		item domain.LineItem
		want error
	}{
		{domain.LineItem{ProductID: 0, Quantity: 1}, ErrNoProductSelected},
		{domain.LineItem{ProductID: 5, Quantity: 0, UnitPrice: 10}, ErrInvalidQuantity},
		{domain.LineItem{ProductID: 5, Quantity: -2, UnitPrice: 10}, ErrInvalidQuantity},
		{domain.LineItem{ProductID: 5, Quantity: 1, UnitPrice: -1}, ErrInvalidUnitPrice},
	}
	for _, tc := range cases {
		if err := e.CommitLineItem(tc.item); !errors.Is(err, tc.want) {
			t.Fatalf("commit %+v: expected %v, got %v", tc.item, tc.want, err)
		}
	}
	if len(e.LineItems()) != 0 {
		t.Fatalf("rejected commits must not touch the draft")
	}
}

func TestRemoveLineItem(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	mustCommit(t, e, 5, 2, 10)
	mustCommit(t, e, 6, 1, 25)

	if err := e.RemoveLineItem(5); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertTotalInvariant(t, e)
	if len(e.LineItems()) != 1 || e.TotalPrice() != 25 {
		t.Fatalf("unexpected state after remove: %+v total=%d", e.LineItems(), e.TotalPrice())
	}

	// Removing an absent id is a no-op, not an error.
	if err := e.RemoveLineItem(42); err != nil {
		t.Fatalf("remove of absent id: %v", err)
	}
	if len(e.LineItems()) != 1 {
		t.Fatalf("no-op remove must not change the list")
	}
}

func mustCommit(t *testing.T, e *Editor, productID int64, quantity int, unitPrice int64) {
	t.Helper()
	err := e.CommitLineItem(domain.LineItem{
		ProductID: productID,
		Name:      fmt.Sprintf("p%d", productID),
		UnitPrice: unitPrice,
		Quantity:  quantity,
	})
	if err != nil {
		t.Fatalf("commit product %d: %v", productID, err)
	}
}

func TestCandidateListExcludesPresentProducts(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	mustCommit(t, e, 5, 1, 10)
	mustCommit(t, e, 6, 1, 25)

	if err := e.BeginAddLineItem(); err != nil {
		t.Fatalf("begin add: %v", err)
	}
	candidates := e.ItemEditor().Candidates()
	if len(candidates) != 1 || candidates[0].ID != 7 {
		t.Fatalf("add candidates must exclude present products, got %+v", candidates)
	}
	if err := e.CancelLineItem(); err != nil {
		t.Fatalf("cancel item: %v", err)
	}

	if err := e.BeginEditLineItem(5); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	candidates = e.ItemEditor().Candidates()
	ids := map[int64]bool{}
	for _, p := range candidates {
		ids[p.ID] = true
	}
	if !ids[5] || ids[6] || !ids[7] {
		t.Fatalf("edit candidates must keep the edited id and exclude others, got %+v", candidates)
	}
}

func TestEditLineItemReplacesInPlace(t *testing.T) {
	e := NewEditor()
	sale := &domain.Sale{
		ID:            7,
		Customer:      domain.Reference{ID: 1, Name: "A"},
		PaymentMethod: domain.Reference{ID: 2, Name: "Pix"},
		LineItems: []domain.LineItem{
			{ProductID: 5, Quantity: 3, UnitPrice: 10},
			{ProductID: 6, Quantity: 1, UnitPrice: 25},
		},
	}
	e.Open(sale, testRefData())

	if err := e.BeginEditLineItem(5); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if !e.ItemEditor().Locked() {
		t.Fatalf("product selector must be locked while editing")
	}
	if err := e.ItemEditor().SelectProduct(6); !errors.Is(err, ErrProductLocked) {
		t.Fatalf("expected ErrProductLocked, got %v", err)
	}
	if err := e.ItemEditor().SetQuantity(4); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if err := e.SaveLineItem(); err != nil {
		t.Fatalf("save item: %v", err)
	}

	items := e.LineItems()
	if len(items) != 2 {
		t.Fatalf("edit must not create a second entry, got %d items", len(items))
	}
	if items[0].ProductID != 5 || items[0].Quantity != 4 {
		t.Fatalf("expected item 5 updated in place at position 0, got %+v", items)
	}
	if e.TotalPrice() != 4*10+1*25 {
		t.Fatalf("expected total %d, got %d", 4*10+1*25, e.TotalPrice())
	}
	if e.ItemEditor() != nil {
		t.Fatalf("nested editor must close on save")
	}
}

func TestItemEditorSaveRequiresSelection(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	if err := e.BeginAddLineItem(); err != nil {
		t.Fatalf("begin add: %v", err)
	}
	if err := e.SaveLineItem(); !errors.Is(err, ErrNoProductSelected) {
		t.Fatalf("expected ErrNoProductSelected, got %v", err)
	}
	// The nested editor survives a failed save so the user can fix it.
	if e.ItemEditor() == nil {
		t.Fatalf("nested editor must stay open after a rejected save")
	}
}

func TestItemEditorQuantityDefaultsToOne(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	if err := e.BeginAddLineItem(); err != nil {
		t.Fatalf("begin add: %v", err)
	}
	if err := e.ItemEditor().SelectProduct(6); err != nil {
		t.Fatalf("select product: %v", err)
	}
	if err := e.SaveLineItem(); err != nil {
		t.Fatalf("save item: %v", err)
	}
	items := e.LineItems()
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("unset quantity must default to 1, got %+v", items)
	}
	if items[0].UnitPrice != 25 || items[0].Name != "Mouse" {
		t.Fatalf("expected price/name snapshotted from catalog, got %+v", items[0])
	}
}

func TestItemEditorRejectsInvalidQuantity(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	if err := e.BeginAddLineItem(); err != nil {
		t.Fatalf("begin add: %v", err)
	}
	if err := e.ItemEditor().SetQuantity(0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if err := e.ItemEditor().SetQuantity(-3); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestSubmitRequiresCustomerAndPaymentMethod(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	mustCommit(t, e, 5, 1, 10)

	saveCalls := 0
	save := func(domain.SalePayload) error {
		saveCalls++
		return nil
	}

	if err := e.Submit(save); !errors.Is(err, ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}
	if err := e.SelectCustomer(1); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	if err := e.Submit(save); !errors.Is(err, ErrMissingPaymentMethod) {
		t.Fatalf("expected ErrMissingPaymentMethod, got %v", err)
	}
	if saveCalls != 0 {
		t.Fatalf("rejected submits must never reach the save collaborator")
	}

	if err := e.SelectPaymentMethod(2); err != nil {
		t.Fatalf("select payment method: %v", err)
	}
	if err := e.Submit(save); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if saveCalls != 1 {
		t.Fatalf("expected exactly one save call, got %d", saveCalls)
	}
}

func TestSubmitPayloadShape(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	mustCommit(t, e, 5, 3, 10)
	mustCommit(t, e, 7, 1, 100)
	_ = e.SelectCustomer(1)
	_ = e.SelectPaymentMethod(2)

	var got domain.SalePayload
	if err := e.Submit(func(p domain.SalePayload) error {
		got = p
		return nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got.CustomerID != 1 || got.PaymentMethodID != 2 {
		t.Fatalf("unexpected reference ids in payload: %+v", got)
	}
	if got.TotalPrice != 130 || got.TotalPrice != got.WeightedTotal() {
		t.Fatalf("payload total must be the weighted sum, got %+v", got)
	}
	if len(got.Products) != 2 || got.Products[0].ProductID != 5 || got.Products[1].ProductID != 7 {
		t.Fatalf("unexpected payload lines: %+v", got.Products)
	}
}

func TestSubmitFailureKeepsDraftIntact(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	mustCommit(t, e, 5, 2, 10)
	_ = e.SelectCustomer(1)
	_ = e.SelectPaymentMethod(2)

	saveErr := errors.New("connection refused")
	if err := e.Submit(func(domain.SalePayload) error { return saveErr }); !errors.Is(err, saveErr) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if !e.IsOpen() {
		t.Fatalf("failed save must leave the editor open")
	}
	if len(e.LineItems()) != 1 || e.TotalPrice() != 20 {
		t.Fatalf("failed save must leave the draft intact")
	}

	// Retry succeeds against an intact draft.
	if err := e.Submit(func(domain.SalePayload) error { return nil }); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if e.IsOpen() {
		t.Fatalf("successful submit must close the editor")
	}
}

func TestSubmitBlockedWhileItemEditorActive(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	_ = e.SelectCustomer(1)
	_ = e.SelectPaymentMethod(2)
	if err := e.BeginAddLineItem(); err != nil {
		t.Fatalf("begin add: %v", err)
	}
	if err := e.Submit(func(domain.SalePayload) error { return nil }); !errors.Is(err, ErrItemEditorActive) {
		t.Fatalf("expected ErrItemEditorActive, got %v", err)
	}
}

func TestCloseAlwaysResetsDraft(t *testing.T) {
	ref := testRefData()
	sale := &domain.Sale{
		ID:            7,
		Customer:      domain.Reference{ID: 1, Name: "A"},
		PaymentMethod: domain.Reference{ID: 2, Name: "Pix"},
		LineItems:     []domain.LineItem{{ProductID: 5, Quantity: 3, UnitPrice: 10}},
	}

	paths := map[string]func(e *Editor){
		"cancel": func(e *Editor) {
			e.Cancel()
		},
		"cancel with nested editor active": func(e *Editor) {
			_ = e.BeginAddLineItem()
			e.Cancel()
		},
		"successful submit": func(e *Editor) {
			_ = e.Submit(func(domain.SalePayload) error { return nil })
		},
	}

	for name, closePath := range paths {
		e := NewEditor()
		e.Open(sale, ref)
		closePath(e)

		if e.IsOpen() {
			t.Fatalf("%s: editor must be closed", name)
		}
		e.Open(nil, ref)
		if e.Mode() != ModeCreate || len(e.LineItems()) != 0 || e.TotalPrice() != 0 ||
			!e.Customer().IsZero() || !e.PaymentMethod().IsZero() || e.SaleID() != 0 {
			t.Fatalf("%s: reopening in create mode must start from an empty draft", name)
		}
	}
}

func TestOperationsOnClosedEditor(t *testing.T) {
	e := NewEditor()

	if err := e.SelectCustomer(1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := e.BeginAddLineItem(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := e.CommitLineItem(domain.LineItem{ProductID: 5, Quantity: 1, UnitPrice: 10}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := e.RemoveLineItem(5); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := e.Submit(func(domain.SalePayload) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestBeginEditUnknownItem(t *testing.T) {
	e := NewEditor()
	e.Open(nil, testRefData())
	if err := e.BeginEditLineItem(5); !errors.Is(err, ErrUnknownLineItem) {
		t.Fatalf("expected ErrUnknownLineItem, got %v", err)
	}
}

func TestEditKeepsItemWhoseProductLeftCatalog(t *testing.T) {
	e := NewEditor()
	sale := &domain.Sale{
		ID:            3,
		Customer:      domain.Reference{ID: 1, Name: "A"},
		PaymentMethod: domain.Reference{ID: 2, Name: "Pix"},
		LineItems: []domain.LineItem{
			{ProductID: 99, Name: "Descontinuado", Quantity: 2, UnitPrice: 45},
		},
	}
	e.Open(sale, testRefData())

	if err := e.BeginEditLineItem(99); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := e.ItemEditor().SetQuantity(5); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if err := e.SaveLineItem(); err != nil {
		t.Fatalf("save must fall back to the item's recorded values: %v", err)
	}
	items := e.LineItems()
	if items[0].Quantity != 5 || items[0].UnitPrice != 45 || items[0].Name != "Descontinuado" {
		t.Fatalf("unexpected item after fallback edit: %+v", items[0])
	}
	if e.TotalPrice() != 225 {
		t.Fatalf("expected total 225, got %d", e.TotalPrice())
	}
}

func TestViewReflectsEditorState(t *testing.T) {
	e := NewEditor()
	v := e.View()
	if v.Open || v.Mode != "closed" {
		t.Fatalf("closed editor view: %+v", v)
	}

	e.Open(nil, testRefData())
	mustCommit(t, e, 5, 2, 10)
	_ = e.BeginAddLineItem()

	v = e.View()
	if !v.Open || v.Mode != "create" || v.TotalPrice != 20 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.ItemEditor == nil || v.ItemEditor.Locked {
		t.Fatalf("expected an unlocked nested editor in view, got %+v", v.ItemEditor)
	}
	for _, p := range v.ItemEditor.Candidates {
		if p.ID == 5 {
			t.Fatalf("candidates in view must exclude present products")
		}
	}
}
