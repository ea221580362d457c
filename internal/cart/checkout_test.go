package cart

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledCart(t *testing.T) *Cart {
	t.Helper()
	c := New()
	require.NoError(t, c.AddLine(productA))
	require.NoError(t, c.AddLine(productA))
	require.NoError(t, c.AddLine(productB))
	return c
}

func TestBuildSaleRequest(t *testing.T) {
	req := BuildSaleRequest(filledCart(t))

	require.Len(t, req.Items, 2)
	assert.Equal(t, uint(1), req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].QuantitySold)
	assert.True(t, req.Items[0].TotalPrice.Equal(dec("20")))
	assert.True(t, req.Items[0].Profit.Equal(dec("8")))
	assert.True(t, req.Items[1].TotalPrice.Equal(dec("20")))
	assert.True(t, req.Items[1].Profit.Equal(dec("8")))
}

func TestSubmitEmptyCartSendsNothing(t *testing.T) {
	called := false
	co := NewCheckout(New())
	_, err := co.Submit(context.Background(), SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
		called = true
		return SaleResult{}, nil
	}))

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.False(t, called)
	assert.Equal(t, Building, co.State())
}

func TestSubmitSuccessCompletesWithReceipt(t *testing.T) {
	c := filledCart(t)
	at := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	var sent SaleRequest
	co := NewCheckout(c)

	rcpt, err := co.Submit(context.Background(), SubmitterFunc(func(_ context.Context, req SaleRequest) (SaleResult, error) {
		sent = req
		return SaleResult{SaleID: 17, RecordedAt: at}, nil
	}))

	require.NoError(t, err)
	assert.Equal(t, Completed, co.State())
	assert.Len(t, sent.Items, 2)
	assert.Equal(t, c.Lines(), rcpt.Lines)
	assert.True(t, rcpt.Total.Equal(dec("40")))
	assert.True(t, rcpt.Profit.Equal(dec("8")))
	assert.Equal(t, uint(17), rcpt.SaleID)
	assert.Equal(t, at, rcpt.IssuedAt)
	assert.Equal(t, 3, rcpt.Units())

	got, ok := co.Receipt()
	assert.True(t, ok)
	assert.Equal(t, rcpt, got)

	_, err = co.Submit(context.Background(), SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
		t.Fatal("completed checkout must not resubmit")
		return SaleResult{}, nil
	}))
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestSubmitFailureKeepsCartAndAllowsRetry(t *testing.T) {
	c := filledCart(t)
	before := c.Lines()
	boom := errors.New("server unavailable")
	co := NewCheckout(c)

	_, err := co.Submit(context.Background(), SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
		return SaleResult{}, boom
	}))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, co.State())
	assert.ErrorIs(t, co.Err(), boom)
	assert.Equal(t, before, c.Lines())
	_, ok := co.Receipt()
	assert.False(t, ok)

	require.NoError(t, co.Retry())
	assert.Equal(t, Building, co.State())
	assert.ErrorIs(t, co.Retry(), ErrNotFailed)

	_, err = co.Submit(context.Background(), SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
		return SaleResult{SaleID: 2}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, Completed, co.State())
}

func TestSubmitFromFailedRetriesDirectly(t *testing.T) {
	co := NewCheckout(filledCart(t))
	calls := 0
	sub := SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
		calls++
		if calls == 1 {
			return SaleResult{}, errors.New("timeout")
		}
		return SaleResult{SaleID: 5}, nil
	})

	_, err := co.Submit(context.Background(), sub)
	require.Error(t, err)
	_, err = co.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSecondSubmitWhileOutstandingIsRefused(t *testing.T) {
	co := NewCheckout(filledCart(t))
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := co.Submit(context.Background(), SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
			close(entered)
			<-release
			return SaleResult{SaleID: 1}, nil
		}))
		done <- err
	}()

	<-entered
	assert.Equal(t, Submitting, co.State())
	_, err := co.Submit(context.Background(), SubmitterFunc(func(context.Context, SaleRequest) (SaleResult, error) {
		t.Fatal("duplicate submission reached the server")
		return SaleResult{}, nil
	}))
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Completed, co.State())
}

func TestReceiptText(t *testing.T) {
	r := Receipt{
		SaleID:   3,
		Lines:    filledCart(t).Lines(),
		Total:    dec("40"),
		IssuedAt: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	text := r.Text("Corner Shop")

	assert.Contains(t, text, "Corner Shop")
	assert.Contains(t, text, "Date: 2026-01-02 15:04:05")
	assert.Contains(t, text, "Product A x2")
	assert.Contains(t, text, "$20.00")
	assert.True(t, strings.Contains(text, "Total:") && strings.Contains(text, "$40.00"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "building", Building.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "failed", Failed.String())
}
