package domain

import "time"

// Product is a catalog entry. The catalog is externally owned reference data;
// the editing engine only ever reads it. Prices are integer cents.
type Product struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
}

// Reference is a minimal pointer to an externally owned entity. A zero ID
// means "not selected".
type Reference struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (r Reference) IsZero() bool {
	return r.ID == 0
}

type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PaymentMethod struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LineItem is one product-quantity pairing within a sale. Name and UnitPrice
// are snapshotted from the catalog at selection time and survive later
// catalog changes.
type LineItem struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

func (li LineItem) LineTotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// Sale is the persisted aggregate. TotalPrice is always the weighted sum of
// its line items; the draft editor guarantees it before sending and the
// service re-verifies it on the way in.
type Sale struct {
	ID            int64      `json:"id"`
	Customer      Reference  `json:"customer"`
	PaymentMethod Reference  `json:"paymentMethod"`
	TotalPrice    int64      `json:"totalPrice"`
	LineItems     []LineItem `json:"products"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
}

// SaleLineInput is one line of the outbound save payload.
type SaleLineInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unitPrice"`
}

// SalePayload is the body of POST /sales and PATCH /sales. Line items are
// keyed by productId.
type SalePayload struct {
	CustomerID      int64           `json:"customerId"`
	PaymentMethodID int64           `json:"paymentMethodId"`
	TotalPrice      int64           `json:"totalPrice"`
	Products        []SaleLineInput `json:"products"`
}

// WeightedTotal returns the sum of unitPrice*quantity over the payload lines.
func (p SalePayload) WeightedTotal() int64 {
	var total int64
	for _, line := range p.Products {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// ReferenceData is the set of read-only snapshots the sale editor depends
// on, fetched once per editing session and immutable for its duration.
type ReferenceData struct {
	Customers      []Customer      `json:"customers"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
	Products       []Product       `json:"products"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type ClerkCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ClerkUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleClerk = "clerk"
)
