package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bizmanager/internal/events"
	"bizmanager/internal/models"
	"bizmanager/internal/store"
)

// memStore is an in-memory stand-in for the gorm store.
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	users    map[uint]*models.User
	products map[uint]*models.Product
	items    []models.SaleItem
	now      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   100,
		users:    map[uint]*models.User{},
		products: map[uint]*models.Product{},
		now:      time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id() uint { m.nextID++; return m.nextID }

func (m *memStore) CreateBusinessWithAdmin(_ context.Context, b *models.Business, admin *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == admin.Username {
			return store.ErrConflict
		}
	}
	b.ID = m.id()
	admin.BusinessID = b.ID
	admin.ID = m.id()
	cp := *admin
	m.users[admin.ID] = &cp
	return nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListUsers(_ context.Context, businessID uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.BusinessID == businessID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, businessID, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return store.ErrConflict
		}
	}
	u.ID = m.id()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.users[u.ID]; !ok || cur.BusinessID != u.BusinessID {
		return store.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, businessID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; !ok || u.BusinessID != businessID {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) ListProducts(_ context.Context, businessID uint, f store.ProductFilter) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.products {
		if p.BusinessID != businessID {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, *p)
	}
	total := int64(len(out))
	if f.Page.Page > 0 && f.Page.PageSize > 0 {
		start := min((f.Page.Page-1)*f.Page.PageSize, len(out))
		out = out[start:min(start+f.Page.PageSize, len(out))]
	}
	return out, total, nil
}

func (m *memStore) GetProduct(_ context.Context, businessID, id uint) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.products[p.ID]; !ok || cur.BusinessID != p.BusinessID {
		return store.ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, businessID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; !ok || p.BusinessID != businessID {
		return store.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) RecordSale(_ context.Context, businessID, userID uint, lines []store.SaleLine) (*models.Sale, error) {
	merged, err := store.MergeLines(lines)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range merged {
		p, ok := m.products[l.ProductID]
		if !ok || p.BusinessID != businessID {
			return nil, store.ErrUnknownProduct
		}
		if p.Quantity < l.Quantity {
			return nil, &store.StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Quantity}
		}
	}
	sale := &models.Sale{BusinessID: businessID, UserID: userID}
	sale.ID = m.id()
	sale.CreatedAt = m.now
	sale.Total, sale.Profit = decimal.Zero, decimal.Zero
	for _, l := range merged {
		p := m.products[l.ProductID]
		p.Quantity -= l.Quantity
		q := decimal.NewFromInt(int64(l.Quantity))
		it := models.SaleItem{
			SaleID:      sale.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Category:    p.Category,
			Quantity:    l.Quantity,
			UnitPrice:   p.Price,
			UnitCost:    p.CostPrice,
			TotalPrice:  p.Price.Mul(q),
			Profit:      p.Price.Sub(p.CostPrice).Mul(q),
			CreatedAt:   m.now,
		}
		sale.Items = append(sale.Items, it)
		sale.Total = sale.Total.Add(it.TotalPrice)
		sale.Profit = sale.Profit.Add(it.Profit)
		m.items = append(m.items, it)
	}
	sale.TotalCost = sale.Total.Sub(sale.Profit)
	return sale, nil
}

func (m *memStore) SaleItems(_ context.Context, businessID uint, f store.SaleFilter) ([]models.SaleItem, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SaleItem
	for _, it := range m.items {
		if !f.From.IsZero() && it.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && it.CreatedAt.After(f.To) {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		out = append(out, it)
	}
	return out, int64(len(out)), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SaleRecorded
	err    error
}

func (p *recordingPublisher) PublishSale(_ context.Context, ev events.SaleRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }
