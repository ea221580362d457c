package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"bizmanager/internal/cart"
	"bizmanager/internal/models"
	"bizmanager/internal/reports"
)

const IdempotencyHeader = "Idempotency-Key"

type LoginResult struct {
	Token      string `json:"token"`
	Username   string `json:"username"`
	ID         uint   `json:"id"`
	BusinessID uint   `json:"business_id"`
	Role       string `json:"role"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/login",
		body:   map[string]string{"username": username, "password": password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type SignupInput struct {
	BusinessName    string `json:"business_name"`
	BusinessAddress string `json:"business_address,omitempty"`
	BusinessPhone   string `json:"business_phone,omitempty"`
	BusinessEmail   string `json:"business_email,omitempty"`
	Username        string `json:"username"`
	Password        string `json:"password"`
}

// Account is a user as the API exposes it.
type Account struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	BusinessID uint   `json:"business_id"`
	Role       string `json:"role"`
}

func (c *Client) Signup(ctx context.Context, in SignupInput) (*Account, error) {
	var out Account
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/signup", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductQuery filters a product listing. Zero Page fetches everything.
type ProductQuery struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// ProductPage is one page of products with the total match count.
type ProductPage struct {
	Items []models.Product
	Total int64
}

func totalCount(h http.Header, fallback int) int64 {
	if n, err := strconv.ParseInt(h.Get("X-Total-Count"), 10, 64); err == nil {
		return n
	}
	return int64(fallback)
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	var items []models.Product
	h, err := c.do(ctx, request{method: http.MethodGet, path: "/products", query: q.values(), out: &items})
	if err != nil {
		return nil, err
	}
	return &ProductPage{Items: items, Total: totalCount(h, len(items))}, nil
}

func (c *Client) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var out models.Product
	if _, err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/products/%d", id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductInput creates or patches a product. Nil fields are omitted.
type ProductInput struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	var out models.Product
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/products", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var out models.Product
	_, err := c.do(ctx, request{method: http.MethodPatch, path: fmt.Sprintf("/products/%d", id), body: in, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/products/%d", id)})
	return err
}

func (c *Client) ProductSummary(ctx context.Context) (*reports.Inventory, error) {
	var out reports.Inventory
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/products/summary", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordSale posts a whole cart as one sale. key, when set, is sent as the
// Idempotency-Key so a repeated submission is refused by the server.
func (c *Client) RecordSale(ctx context.Context, key string, req cart.SaleRequest) (*models.Sale, error) {
	var out models.Sale
	r := request{method: http.MethodPost, path: "/sales", body: req, out: &out}
	if key != "" {
		r.headers = map[string]string{IdempotencyHeader: key}
	}
	if _, err := c.do(ctx, r); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submitter adapts RecordSale to cart.Submitter.
func (c *Client) Submitter(key string) cart.Submitter {
	return cart.SubmitterFunc(func(ctx context.Context, req cart.SaleRequest) (cart.SaleResult, error) {
		sale, err := c.RecordSale(ctx, key, req)
		if err != nil {
			return cart.SaleResult{}, err
		}
		return cart.SaleResult{SaleID: sale.ID, RecordedAt: sale.CreatedAt}, nil
	})
}

// SalesQuery filters sale reports. Zero times are unbounded.
type SalesQuery struct {
	Start    time.Time
	End      time.Time
	Category string
	Page     int
	PageSize int
}

func (q SalesQuery) values() url.Values {
	v := url.Values{}
	if !q.Start.IsZero() {
		v.Set("start_date", q.Start.Format(time.RFC3339Nano))
	}
	if !q.End.IsZero() {
		v.Set("end_date", q.End.Format(time.RFC3339Nano))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

func (c *Client) SalesReport(ctx context.Context, q SalesQuery) ([]reports.Row, int64, error) {
	var rows []reports.Row
	h, err := c.do(ctx, request{method: http.MethodGet, path: "/sales/report", query: q.values(), out: &rows})
	if err != nil {
		return nil, 0, err
	}
	return rows, totalCount(h, len(rows)), nil
}

// DailySales summarizes one day; a zero day means today on the server.
func (c *Client) DailySales(ctx context.Context, day time.Time) (*reports.Daily, error) {
	v := url.Values{}
	if !day.IsZero() {
		v.Set("date", day.Format("2006-01-02"))
	}
	var out reports.Daily
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/sales/daily", query: v, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MonthlySales(ctx context.Context, year int) ([]reports.Month, error) {
	v := url.Values{}
	if year > 0 {
		v.Set("year", strconv.Itoa(year))
	}
	var out []reports.Month
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/sales/monthly", query: v, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProfitSummary(ctx context.Context, start, end time.Time) (*reports.Profit, error) {
	q := SalesQuery{Start: start, End: end}
	var out reports.Profit
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/sales/profit", query: q.values(), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]Account, error) {
	var out []Account
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/users", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id uint) (*Account, error) {
	var out Account
	if _, err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/users/%d", id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserInput creates or updates a user. An empty Password keeps the
// current one on update.
type UserInput struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (*Account, error) {
	var out Account
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/users", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id uint, in UserInput) (*Account, error) {
	var out Account
	_, err := c.do(ctx, request{method: http.MethodPut, path: fmt.Sprintf("/users/%d", id), body: in, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/users/%d", id)})
	return err
}
