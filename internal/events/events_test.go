package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmanager/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func sampleSale() *models.Sale {
	return &models.Sale{
		Base:       models.Base{ID: 12, CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		BusinessID: 3,
		UserID:     5,
		Total:      decimal.RequireFromString("40"),
		Profit:     decimal.RequireFromString("8"),
		Items: []models.SaleItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}
}

func TestFromSale(t *testing.T) {
	ev := FromSale(sampleSale())
	assert.Equal(t, uint(12), ev.SaleID)
	assert.Equal(t, "sale-recorded-3", ev.Key())
	assert.Equal(t, []SaleLine{{ProductID: 1, QuantitySold: 2}, {ProductID: 2, QuantitySold: 1}}, ev.Items)
}

func TestEncodeUsesNumbers(t *testing.T) {
	body, err := FromSale(sampleSale()).Encode()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, float64(40), m["total"])
	assert.Equal(t, float64(12), m["sale_id"])
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	require.NoError(t, p.PublishSale(context.Background(), FromSale(sampleSale())))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "sale-recorded-3", string(w.msgs[0].Key))

	w.err = errors.New("broker down")
	assert.Error(t, p.PublishSale(context.Background(), FromSale(sampleSale())))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishSale(context.Background(), SaleRecorded{}))
	assert.NoError(t, p.Close())
}
