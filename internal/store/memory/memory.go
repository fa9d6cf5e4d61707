// Package memory is an in-memory Repository used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"salesadmin/backend/internal/domain"
	"salesadmin/backend/internal/store"
	"salesadmin/backend/internal/xid"
)

type Store struct {
	mu             sync.RWMutex
	customers      []domain.Customer
	paymentMethods []domain.PaymentMethod
	products       []domain.Product
	sales          map[int64]domain.Sale
	saleOrder      []int64
	nextSaleID     int64
	auditLogs      []domain.AuditLog
	users          map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		sales:      make(map[int64]domain.Sale),
		nextSaleID: 1,
		users:      make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with reference data and a default
// admin account (admin/admin123, for local development only).
func NewSeeded() *Store {
	s := New()
	s.customers = []domain.Customer{
		{ID: 1, Name: "Ana Souza"},
		{ID: 2, Name: "Bruno Lima"},
		{ID: 3, Name: "Carla Mendes"},
		{ID: 4, Name: "Diego Ferreira"},
	}
	s.paymentMethods = []domain.PaymentMethod{
		{ID: 1, Name: "Dinheiro"},
		{ID: 2, Name: "Pix"},
		{ID: 3, Name: "Cartão de Crédito"},
		{ID: 4, Name: "Boleto"},
	}
	s.products = []domain.Product{
		{ID: 1, Name: "Teclado Mecânico", UnitPrice: 25900},
		{ID: 2, Name: "Mouse Sem Fio", UnitPrice: 11900},
		{ID: 3, Name: "Monitor 24\"", UnitPrice: 89900},
		{ID: 4, Name: "Headset USB", UnitPrice: 19900},
		{ID: 5, Name: "Webcam Full HD", UnitPrice: 24900},
	}
	s.users["admin"] = domain.UserAccount{
		Username:  "admin",
		Password:  "admin123",
		Role:      domain.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	return s
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Customer, len(s.customers))
	copy(out, s.customers)
	return out, nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PaymentMethod, len(s.paymentMethods))
	copy(out, s.paymentMethods)
	return out, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		out = append(out, copySale(s.sales[id]))
	}
	return out, nil
}

func (s *Store) GetSaleByID(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copySale(sale)
	return &out, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := validateSale(sale); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale.ID = s.nextSaleID
	s.nextSaleID++
	now := time.Now().UTC()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	s.resolveReferences(&sale)

	s.sales[sale.ID] = copySale(sale)
	s.saleOrder = append(s.saleOrder, sale.ID)

	out := copySale(sale)
	return &out, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := validateSale(sale); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[sale.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale.CreatedAt = existing.CreatedAt
	sale.UpdatedAt = time.Now().UTC()
	s.resolveReferences(&sale)

	s.sales[sale.ID] = copySale(sale)

	out := copySale(sale)
	return &out, nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	for i, saleID := range s.saleOrder {
		if saleID == id {
			s.saleOrder = append(s.saleOrder[:i], s.saleOrder[i+1:]...)
			break
		}
	}
	return nil
}

// resolveReferences fills in display names for the customer and payment
// method from the seeded reference lists. Callers hold s.mu.
func (s *Store) resolveReferences(sale *domain.Sale) {
	for _, c := range s.customers {
		if c.ID == sale.Customer.ID {
			sale.Customer.Name = c.Name
			break
		}
	}
	for _, pm := range s.paymentMethods {
		if pm.ID == sale.PaymentMethod.ID {
			sale.PaymentMethod.Name = pm.Name
			break
		}
	}
}

func validateSale(sale domain.Sale) error {
	if sale.Customer.ID <= 0 || sale.PaymentMethod.ID <= 0 {
		return store.ErrInvalidSale
	}
	seen := make(map[int64]bool, len(sale.LineItems))
	var total int64
	for _, item := range sale.LineItems {
		if item.ProductID <= 0 || item.Quantity < 1 || item.UnitPrice < 0 {
			return store.ErrInvalidSale
		}
		if seen[item.ProductID] {
			return store.ErrInvalidSale
		}
		seen[item.ProductID] = true
		total += item.LineTotal()
	}
	if sale.TotalPrice != total {
		return store.ErrInvalidSale
	}
	return nil
}

func copySale(sale domain.Sale) domain.Sale {
	out := sale
	out.LineItems = make([]domain.LineItem, len(sale.LineItems))
	copy(out.LineItems, sale.LineItems)
	return out
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuditLog, len(s.auditLogs))
	copy(out, s.auditLogs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
