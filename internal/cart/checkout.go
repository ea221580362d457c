package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart        = errors.New("cart: cannot submit an empty cart")
	ErrSubmitInProgress = errors.New("cart: a submission is already in progress")
	ErrAlreadyCompleted = errors.New("cart: sale already completed")
	ErrNotFailed        = errors.New("cart: checkout has not failed")
)

// State is the position of a Checkout in its lifecycle.
type State int

const (
	Building State = iota
	Submitting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// SaleItem is the per-line transaction record sent to the server.
type SaleItem struct {
	ProductID    uint            `json:"product_id"`
	QuantitySold int             `json:"quantity_sold"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Profit       decimal.Decimal `json:"profit"`
}

// SaleRequest is the single batched request for a whole cart.
type SaleRequest struct {
	Items []SaleItem `json:"items"`
}

// SaleResult is what the server acknowledges for a recorded sale.
type SaleResult struct {
	SaleID     uint
	RecordedAt time.Time
}

// Submitter records a sale. It either records every item or none.
type Submitter interface {
	SubmitSale(ctx context.Context, req SaleRequest) (SaleResult, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req SaleRequest) (SaleResult, error)

func (f SubmitterFunc) SubmitSale(ctx context.Context, req SaleRequest) (SaleResult, error) {
	return f(ctx, req)
}

// BuildSaleRequest maps every line of c to a transaction record.
func BuildSaleRequest(c *Cart) SaleRequest {
	req := SaleRequest{Items: make([]SaleItem, 0, c.Len())}
	for _, l := range c.lines {
		req.Items = append(req.Items, SaleItem{
			ProductID:    l.Product.ID,
			QuantitySold: l.Quantity,
			TotalPrice:   l.Subtotal(),
			Profit:       l.Profit(),
		})
	}
	return req
}

// Checkout drives the submission of a cart:
//
//	Building -> Submitting -> Completed
//	                       -> Failed -> Building
//
// It is safe for concurrent use; a second Submit while one is outstanding
// is refused.
type Checkout struct {
	mu      sync.Mutex
	cart    *Cart
	state   State
	err     error
	receipt Receipt
	now     func() time.Time
}

// NewCheckout starts a checkout over c in the Building state.
func NewCheckout(c *Cart) *Checkout {
	return &Checkout{cart: c, now: time.Now}
}

func (co *Checkout) State() State {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.state
}

// Err is the error of the last failed submission.
func (co *Checkout) Err() error {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.err
}

// Receipt returns the receipt once the checkout has completed.
func (co *Checkout) Receipt() (Receipt, bool) {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.receipt, co.state == Completed
}

// Retry moves a failed checkout back to Building.
func (co *Checkout) Retry() error {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.state != Failed {
		return ErrNotFailed
	}
	co.state = Building
	co.err = nil
	return nil
}

// Submit sends the cart as one batched request. On failure the cart is left
// untouched and the checkout moves to Failed; a later Submit retries.
func (co *Checkout) Submit(ctx context.Context, s Submitter) (Receipt, error) {
	co.mu.Lock()
	switch co.state {
	case Submitting:
		co.mu.Unlock()
		return Receipt{}, ErrSubmitInProgress
	case Completed:
		co.mu.Unlock()
		return Receipt{}, ErrAlreadyCompleted
	}
	if co.cart == nil || co.cart.IsEmpty() {
		co.mu.Unlock()
		return Receipt{}, ErrEmptyCart
	}
	lines := co.cart.Lines()
	totals := co.cart.Totals()
	req := BuildSaleRequest(co.cart)
	co.state = Submitting
	co.err = nil
	co.mu.Unlock()

	res, err := s.SubmitSale(ctx, req)

	co.mu.Lock()
	defer co.mu.Unlock()
	if err != nil {
		co.state = Failed
		co.err = err
		return Receipt{}, err
	}
	issued := res.RecordedAt
	if issued.IsZero() {
		issued = co.now()
	}
	co.receipt = Receipt{
		SaleID:   res.SaleID,
		Lines:    lines,
		Total:    totals.Total,
		Profit:   totals.Profit,
		IssuedAt: issued,
	}
	co.state = Completed
	return co.receipt, nil
}
