package web

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/cart"
	"bizmanager/internal/models"
	"bizmanager/internal/reports"
)

type fakeUser struct {
	apiclient.Account
	password string
}

type recordedSale struct {
	key string
	req cart.SaleRequest
}

// fakeAPI is an in-memory API shared by every token.
type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]*fakeUser
	products map[uint]*models.Product
	sales    []recordedSale
	rows     []reports.Row
	saleErr  error
	expired  bool
	nextID   uint
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID: 100,
		users: map[string]*fakeUser{
			"boss":  {Account: apiclient.Account{ID: 1, Username: "boss", BusinessID: 1, Role: "admin"}, password: "boss-pass"},
			"clerk": {Account: apiclient.Account{ID: 2, Username: "clerk", BusinessID: 1, Role: "staff"}, password: "clerk-pass"},
		},
		products: map[uint]*models.Product{
			10: {Base: models.Base{ID: 10}, BusinessID: 1, Name: "Apple", Category: "fruit",
				Price: decimal.NewFromInt(10), CostPrice: decimal.NewFromInt(6), Quantity: 5},
			11: {Base: models.Base{ID: 11}, BusinessID: 1, Name: "Banana", Category: "fruit",
				Price: decimal.NewFromInt(20), CostPrice: decimal.NewFromInt(12), Quantity: 1},
		},
	}
}

func (f *fakeAPI) connect(string) API { return f }

var errUnauthorized = &apiclient.Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Invalid or expired token"}

func (f *fakeAPI) Login(_ context.Context, username, password string) (*apiclient.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok || u.password != password {
		return nil, &apiclient.Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Invalid username or password"}
	}
	return &apiclient.LoginResult{Token: "tok-" + u.Username, Username: u.Username, ID: u.ID, BusinessID: u.BusinessID, Role: u.Role}, nil
}

func (f *fakeAPI) Signup(_ context.Context, in apiclient.SignupInput) (*apiclient.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[in.Username]; ok {
		return nil, &apiclient.Error{Status: http.StatusConflict, Code: "CONFLICT", Message: "Business or username already exists"}
	}
	f.nextID++
	u := &fakeUser{Account: apiclient.Account{ID: f.nextID, Username: in.Username, BusinessID: f.nextID, Role: "admin"}, password: in.Password}
	f.users[in.Username] = u
	return &u.Account, nil
}

func (f *fakeAPI) ListProducts(_ context.Context, q apiclient.ProductQuery) (*apiclient.ProductPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired {
		return nil, errUnauthorized
	}
	var items []models.Product
	for _, p := range f.products {
		if q.Category == "" || p.Category == q.Category {
			items = append(items, *p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &apiclient.ProductPage{Items: items, Total: int64(len(items))}, nil
}

func (f *fakeAPI) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &apiclient.Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Product not found"}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) applyProduct(p *models.Product, in apiclient.ProductInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.CostPrice != nil {
		p.CostPrice = *in.CostPrice
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
}

func (f *fakeAPI) CreateProduct(_ context.Context, in apiclient.ProductInput) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &models.Product{Base: models.Base{ID: f.nextID}, BusinessID: 1}
	f.applyProduct(p, in)
	f.products[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, id uint, in apiclient.ProductInput) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &apiclient.Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Product not found"}
	}
	f.applyProduct(p, in)
	cp := *p
	return &cp, nil
}

func (f *fakeAPI) DeleteProduct(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
	return nil
}

func (f *fakeAPI) ProductSummary(context.Context) (*reports.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ps []models.Product
	for _, p := range f.products {
		ps = append(ps, *p)
	}
	inv := reports.InventorySummary(ps, reports.DefaultLowStock)
	return &inv, nil
}

func (f *fakeAPI) Submitter(key string) cart.Submitter {
	return cart.SubmitterFunc(func(_ context.Context, req cart.SaleRequest) (cart.SaleResult, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.saleErr != nil {
			return cart.SaleResult{}, f.saleErr
		}
		for _, s := range f.sales {
			if s.key == key {
				return cart.SaleResult{}, &apiclient.Error{Status: http.StatusConflict, Code: "DUPLICATE_SUBMISSION", Message: "This sale has already been submitted"}
			}
		}
		for _, it := range req.Items {
			f.products[it.ProductID].Quantity -= it.QuantitySold
		}
		f.sales = append(f.sales, recordedSale{key: key, req: req})
		return cart.SaleResult{SaleID: uint(len(f.sales)), RecordedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}, nil
	})
}

func (f *fakeAPI) SalesReport(context.Context, apiclient.SalesQuery) ([]reports.Row, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, int64(len(f.rows)), nil
}

func (f *fakeAPI) DailySales(_ context.Context, day time.Time) (*reports.Daily, error) {
	return &reports.Daily{Date: day.Format("2006-01-02"), Revenue: decimal.NewFromInt(500), Profit: decimal.NewFromInt(150)}, nil
}

func (f *fakeAPI) MonthlySales(_ context.Context, year int) ([]reports.Month, error) {
	return reports.MonthlySeries(year, time.UTC, nil), nil
}

func (f *fakeAPI) ProfitSummary(context.Context, time.Time, time.Time) (*reports.Profit, error) {
	return &reports.Profit{Revenue: decimal.NewFromInt(100), Expenses: decimal.NewFromInt(60), Profit: decimal.NewFromInt(40), Margin: decimal.NewFromInt(40)}, nil
}

func (f *fakeAPI) ListUsers(context.Context) ([]apiclient.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiclient.Account
	for _, u := range f.users {
		out = append(out, u.Account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAPI) findUser(id uint) *fakeUser {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeAPI) GetUser(_ context.Context, id uint) (*apiclient.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findUser(id)
	if u == nil {
		return nil, &apiclient.Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "User not found"}
	}
	acc := u.Account
	return &acc, nil
}

func (f *fakeAPI) CreateUser(_ context.Context, in apiclient.UserInput) (*apiclient.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &fakeUser{Account: apiclient.Account{ID: f.nextID, Username: in.Username, BusinessID: 1, Role: in.Role}, password: in.Password}
	f.users[in.Username] = u
	acc := u.Account
	return &acc, nil
}

func (f *fakeAPI) UpdateUser(_ context.Context, id uint, in apiclient.UserInput) (*apiclient.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.findUser(id)
	if u == nil {
		return nil, &apiclient.Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "User not found"}
	}
	delete(f.users, u.Username)
	u.Username = in.Username
	if in.Role != "" {
		u.Role = in.Role
	}
	if in.Password != "" {
		u.password = in.Password
	}
	f.users[u.Username] = u
	acc := u.Account
	return &acc, nil
}

func (f *fakeAPI) DeleteUser(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.findUser(id); u != nil {
		delete(f.users, u.Username)
	}
	return nil
}
