package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"salesadmin/backend/internal/domain"
	"salesadmin/backend/internal/draft"
	"salesadmin/backend/internal/refdata"
	"salesadmin/backend/internal/store"
	"salesadmin/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the application layer: sales CRUD against the repository plus
// ownership of the single system-wide sale draft session. Only one draft is
// open at a time; all draft transitions are serialized behind mu.
type Service struct {
	repo    store.Repository
	refdata *refdata.Provider

	mu        sync.Mutex
	editor    *draft.Editor
	sessionID string
}

func New(repo store.Repository, provider *refdata.Provider) *Service {
	return &Service{
		repo:    repo,
		refdata: provider,
		editor:  draft.NewEditor(),
	}
}

func (s *Service) ReferenceData(ctx context.Context) (domain.ReferenceData, error) {
	return s.refdata.Snapshot(ctx)
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.repo.GetSaleByID(ctx, id)
}

func (s *Service) CreateSale(ctx context.Context, payload domain.SalePayload) (*domain.Sale, error) {
	sale, err := s.payloadToSale(ctx, payload)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "sale_create", "sale", fmt.Sprintf("%d", created.ID), fmt.Sprintf("total=%d,items=%d", created.TotalPrice, len(created.LineItems)))
	return created, nil
}

func (s *Service) UpdateSale(ctx context.Context, id int64, payload domain.SalePayload) (*domain.Sale, error) {
	if id <= 0 {
		return nil, store.ErrInvalidSale
	}
	sale, err := s.payloadToSale(ctx, payload)
	if err != nil {
		return nil, err
	}
	sale.ID = id
	updated, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "sale_update", "sale", fmt.Sprintf("%d", updated.ID), fmt.Sprintf("total=%d,items=%d", updated.TotalPrice, len(updated.LineItems)))
	return updated, nil
}

func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if id <= 0 {
		return store.ErrInvalidSale
	}
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "sale_delete", "sale", fmt.Sprintf("%d", id), "")
	return nil
}

// payloadToSale expands the wire payload into a full sale, resolving line
// item names from the catalog snapshot. The declared total must match the
// weighted sum; clients are not trusted to compute it.
func (s *Service) payloadToSale(ctx context.Context, payload domain.SalePayload) (domain.Sale, error) {
	if payload.CustomerID <= 0 || payload.PaymentMethodID <= 0 {
		return domain.Sale{}, store.ErrInvalidSale
	}
	if payload.TotalPrice != payload.WeightedTotal() {
		return domain.Sale{}, store.ErrInvalidSale
	}

	seen := make(map[int64]bool, len(payload.Products))
	items := make([]domain.LineItem, 0, len(payload.Products))
	ref, refErr := s.refdata.Snapshot(ctx)
	if refErr != nil {
		log.Printf("[service] WARN: reference data unavailable, storing line items without catalog names: %v", refErr)
	}
	for _, line := range payload.Products {
		if line.ProductID <= 0 || line.Quantity < 1 || line.UnitPrice < 0 {
			return domain.Sale{}, store.ErrInvalidSale
		}
		if seen[line.ProductID] {
			return domain.Sale{}, store.ErrInvalidSale
		}
		seen[line.ProductID] = true

		item := domain.LineItem{
			ProductID: line.ProductID,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
		for _, p := range ref.Products {
			if p.ID == line.ProductID {
				item.Name = p.Name
				break
			}
		}
		items = append(items, item)
	}

	return domain.Sale{
		Customer:      domain.Reference{ID: payload.CustomerID},
		PaymentMethod: domain.Reference{ID: payload.PaymentMethodID},
		TotalPrice:    payload.TotalPrice,
		LineItems:     items,
	}, nil
}

// OpenDraft starts an editing session, in edit mode when saleID is given.
// Reference data that cannot be loaded does not block opening: the editor
// stays usable with empty selection lists, matching the fire-and-forget
// fetch model of the UI.
func (s *Service) OpenDraft(ctx context.Context, saleID *int64) (draft.View, error) {
	var initial *domain.Sale
	if saleID != nil {
		sale, err := s.repo.GetSaleByID(ctx, *saleID)
		if err != nil {
			return draft.View{}, err
		}
		initial = sale
	}

	ref, err := s.refdata.Snapshot(ctx)
	if err != nil {
		log.Printf("[service] WARN: opening draft without reference data: %v", err)
		ref = domain.ReferenceData{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.editor.Open(initial, ref)
	s.sessionID = xid.New("draft")
	s.logAudit(ctx, "sale_draft_open", "draft", s.sessionID, s.editor.Mode().String())
	return s.editor.View(), nil
}

func (s *Service) DraftView() draft.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.View()
}

func (s *Service) SelectDraftCustomer(id int64) (draft.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editor.SelectCustomer(id); err != nil {
		return draft.View{}, err
	}
	return s.editor.View(), nil
}

func (s *Service) SelectDraftPaymentMethod(id int64) (draft.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editor.SelectPaymentMethod(id); err != nil {
		return draft.View{}, err
	}
	return s.editor.View(), nil
}

// BeginDraftItem opens the nested line-item editor: add mode when productID
// is nil, edit-in-place otherwise.
func (s *Service) BeginDraftItem(productID *int64) (draft.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if productID == nil {
		err = s.editor.BeginAddLineItem()
	} else {
		err = s.editor.BeginEditLineItem(*productID)
	}
	if err != nil {
		return draft.View{}, err
	}
	return s.editor.View(), nil
}

// CommitDraftItem resolves the nested editor with the given selection and
// quantity and merges the result into the draft. A zero quantity means
// "unset" and defaults to one.
func (s *Service) CommitDraftItem(productID int64, quantity int) (draft.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.editor.ItemEditor()
	if item == nil {
		return draft.View{}, draft.ErrNoItemEditor
	}
	if err := item.SelectProduct(productID); err != nil {
		return draft.View{}, err
	}
	if quantity != 0 {
		if err := item.SetQuantity(quantity); err != nil {
			return draft.View{}, err
		}
	}
	if err := s.editor.SaveLineItem(); err != nil {
		return draft.View{}, err
	}
	return s.editor.View(), nil
}

func (s *Service) CancelDraftItem() (draft.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editor.CancelLineItem(); err != nil {
		return draft.View{}, err
	}
	return s.editor.View(), nil
}

func (s *Service) RemoveDraftItem(productID int64) (draft.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editor.RemoveLineItem(productID); err != nil {
		return draft.View{}, err
	}
	return s.editor.View(), nil
}

// SubmitDraft persists the draft through the repository. Create mode posts a
// new sale, edit mode patches the existing one. A failed save keeps the
// draft open and intact for retry; success closes and resets it.
func (s *Service) SubmitDraft(ctx context.Context) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := s.editor.Mode()
	saleID := s.editor.SaleID()
	sessionID := s.sessionID

	var saved *domain.Sale
	err := s.editor.Submit(func(payload domain.SalePayload) error {
		sale, err := s.payloadToSale(ctx, payload)
		if err != nil {
			return err
		}
		if mode == draft.ModeEdit {
			sale.ID = saleID
			saved, err = s.repo.UpdateSale(ctx, sale)
		} else {
			saved, err = s.repo.CreateSale(ctx, sale)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.sessionID = ""
	s.logAudit(ctx, "sale_draft_submit", "sale", fmt.Sprintf("%d", saved.ID), sessionID)
	return saved, nil
}

// CancelDraft discards the draft unconditionally, including any active
// line-item editor. No save call is made.
func (s *Service) CancelDraft(ctx context.Context) draft.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != "" {
		s.logAudit(ctx, "sale_draft_cancel", "draft", s.sessionID, "")
	}
	s.editor.Cancel()
	s.sessionID = ""
	return s.editor.View()
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
	})
	if err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
