package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kminvoice/km-invoice/internal/invoice/domain"
	"github.com/kminvoice/km-invoice/pkg/errors"
)

// MemInvoiceStore is an in-memory invoice store with the repository's
// not-found and exported-flag behaviour, for service and handler tests.
type MemInvoiceStore struct {
	mu     sync.Mutex
	nextID map[domain.InvoiceType]int64
	rows   map[domain.InvoiceType]map[int64]*domain.Invoice

	// Err, when set, is returned by every call
	Err error
}

// NewMemInvoiceStore creates an empty store
func NewMemInvoiceStore() *MemInvoiceStore {
	return &MemInvoiceStore{
		nextID: make(map[domain.InvoiceType]int64),
		rows:   make(map[domain.InvoiceType]map[int64]*domain.Invoice),
	}
}

func copyInvoice(inv *domain.Invoice) *domain.Invoice {
	c := *inv
	if inv.Exported != nil {
		c.Exported = PtrBool(*inv.Exported)
	}
	return &c
}

func (m *MemInvoiceStore) Create(ctx context.Context, t domain.InvoiceType, inv *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	m.nextID[t]++
	now := time.Now()
	inv.ID = m.nextID[t]
	inv.Type = t
	inv.CreatedAt, inv.UpdatedAt = now, now
	inv.Exported = nil
	if !t.Staged() {
		inv.Exported = PtrBool(false)
	}

	if m.rows[t] == nil {
		m.rows[t] = make(map[int64]*domain.Invoice)
	}
	m.rows[t][inv.ID] = copyInvoice(inv)
	return nil
}

func (m *MemInvoiceStore) GetByID(ctx context.Context, t domain.InvoiceType, id int64) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	inv, ok := m.rows[t][id]
	if !ok {
		return nil, errors.NotFound("invoice")
	}
	return copyInvoice(inv), nil
}

func (m *MemInvoiceStore) List(ctx context.Context, t domain.InvoiceType, filter domain.ListFilter) ([]*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if filter.Exported != nil && t.Staged() {
		return nil, errors.BadRequestKey("errors.not_exportable")
	}

	out := make([]*domain.Invoice, 0, len(m.rows[t]))
	for _, inv := range m.rows[t] {
		if filter.Exported != nil && *inv.Exported != *filter.Exported {
			continue
		}
		out = append(out, copyInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemInvoiceStore) Update(ctx context.Context, t domain.InvoiceType, inv *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	old, ok := m.rows[t][inv.ID]
	if !ok {
		return errors.NotFound("invoice")
	}
	inv.Type = t
	inv.CreatedAt = old.CreatedAt
	inv.UpdatedAt = time.Now()
	inv.Exported = old.Exported
	m.rows[t][inv.ID] = copyInvoice(inv)
	return nil
}

func (m *MemInvoiceStore) MarkExported(ctx context.Context, t domain.InvoiceType, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if t.Staged() {
		return errors.BadRequestKey("errors.not_exportable")
	}

	inv, ok := m.rows[t][id]
	if !ok {
		return errors.NotFound("invoice")
	}
	inv.Exported = PtrBool(true)
	return nil
}

func (m *MemInvoiceStore) Delete(ctx context.Context, t domain.InvoiceType, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	if _, ok := m.rows[t][id]; !ok {
		return errors.NotFound("invoice")
	}
	delete(m.rows[t], id)
	return nil
}

// Count returns the number of rows of type t
func (m *MemInvoiceStore) Count(t domain.InvoiceType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[t])
}

// MemTierStore is an in-memory tier registry
type MemTierStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Tier
}

// NewMemTierStore creates an empty registry
func NewMemTierStore() *MemTierStore {
	return &MemTierStore{rows: make(map[int64]*domain.Tier)}
}

func (m *MemTierStore) Create(ctx context.Context, tier *domain.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.rows {
		if existing.ICE == tier.ICE {
			return errors.Conflict("a tier with this ICE already exists")
		}
	}

	m.nextID++
	now := time.Now()
	tier.ID = m.nextID
	tier.CreatedAt, tier.UpdatedAt = now, now
	c := *tier
	m.rows[tier.ID] = &c
	return nil
}

func (m *MemTierStore) GetByID(ctx context.Context, id int64) (*domain.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tier, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("tier")
	}
	c := *tier
	return &c, nil
}

func (m *MemTierStore) List(ctx context.Context) ([]*domain.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Tier, 0, len(m.rows))
	for _, tier := range m.rows {
		c := *tier
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemTierStore) Update(ctx context.Context, tier *domain.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.rows[tier.ID]
	if !ok {
		return errors.NotFound("tier")
	}
	tier.CreatedAt = old.CreatedAt
	tier.UpdatedAt = time.Now()
	c := *tier
	m.rows[tier.ID] = &c
	return nil
}

func (m *MemTierStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return errors.NotFound("tier")
	}
	delete(m.rows, id)
	return nil
}
