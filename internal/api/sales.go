package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bizmanager/internal/events"
	"bizmanager/internal/idempotency"
	"bizmanager/internal/reports"
	"bizmanager/internal/store"
)

const idempotencyHeader = "Idempotency-Key"

// saleItemRequest carries the client's view of the line. Only product and
// quantity are trusted; prices are re-read from the catalog.
type saleItemRequest struct {
	ProductID    uint            `json:"product_id" binding:"required"`
	QuantitySold int             `json:"quantity_sold" binding:"required,min=1"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Profit       decimal.Decimal `json:"profit"`
}

type saleRequest struct {
	Items []saleItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (s *Server) recordSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "A sale needs at least one item with a positive quantity", err)
		return
	}
	claims := claimsFrom(c)
	ctx := c.Request.Context()
	log := s.Log.With().Uint("business_id", claims.BusinessID).Uint("user_id", claims.UserID).Logger()

	key := c.GetHeader(idempotencyHeader)
	if key != "" {
		key = saleKey(claims.BusinessID, claims.UserID, key)
		err := s.Guard.Reserve(ctx, key)
		switch {
		case errors.Is(err, idempotency.ErrDuplicate):
			abortError(c, http.StatusConflict, CodeDuplicateSubmission, "This sale has already been submitted")
			return
		case err != nil:
			log.Warn().Err(err).Msg("idempotency guard unavailable, recording without it")
			key = ""
		}
	}

	lines := make([]store.SaleLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, store.SaleLine{ProductID: it.ProductID, Quantity: it.QuantitySold})
	}
	sale, err := s.Sales.RecordSale(ctx, claims.BusinessID, claims.UserID, lines)
	if err != nil {
		if key != "" {
			s.release(ctx, key, log)
		}
		var stockErr *store.StockError
		switch {
		case errors.As(err, &stockErr):
			c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
				Error:   CodeInsufficientStock,
				Message: "Insufficient stock for " + stockErr.Name,
				Details: stockErr.Error(),
			})
		case errors.Is(err, store.ErrUnknownProduct), errors.Is(err, store.ErrInvalidQuantity), errors.Is(err, store.ErrEmptySale):
			badRequest(c, "Invalid sale", err)
		default:
			storeError(c, err, "Sale")
		}
		return
	}

	log.Info().Uint("sale_id", sale.ID).Str("total", sale.Total.StringFixed(2)).Msg("sale recorded")
	s.publish(ctx, events.FromSale(sale))
	c.JSON(http.StatusCreated, sale)
}

// saleKey scopes a client key to the submitting user of one business.
func saleKey(businessID, userID uint, key string) string {
	return fmt.Sprintf("sale:%d:%d:%s", businessID, userID, key)
}

// release frees key after a failed sale. It runs even when the client has
// gone away, otherwise the retry would be refused as a duplicate.
func (s *Server) release(ctx context.Context, key string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Guard.Release(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to release idempotency key")
	}
}

// publish delivers ev without failing the request; the sale is already
// committed.
func (s *Server) publish(ctx context.Context, ev events.SaleRecorded) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.PublishSale(ctx, ev); err != nil {
		s.Log.Error().Err(err).Uint("sale_id", ev.SaleID).Msg("failed to publish sale event")
	}
}

// dateRange reads start_date and end_date.
func (s *Server) dateRange(c *gin.Context) (from, to time.Time, ok bool) {
	from, err := reports.ParseBound(c.Query("start_date"), false, s.Location)
	if err != nil {
		badRequest(c, "Invalid start_date", err)
		return from, to, false
	}
	to, err = reports.ParseBound(c.Query("end_date"), true, s.Location)
	if err != nil {
		badRequest(c, "Invalid end_date", err)
		return from, to, false
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		badRequest(c, "end_date is before start_date", nil)
		return from, to, false
	}
	return from, to, true
}

func (s *Server) salesReport(c *gin.Context) {
	from, to, ok := s.dateRange(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	f := store.SaleFilter{From: from, To: to, Category: c.Query("category"), Page: page}
	items, total, err := s.Sales.SaleItems(c.Request.Context(), claimsFrom(c).BusinessID, f)
	if err != nil {
		storeError(c, err, "Sale")
		return
	}
	setTotal(c, total)
	c.JSON(http.StatusOK, reports.Rows(items))
}

func (s *Server) dailySales(c *gin.Context) {
	day := s.Now().In(s.Location)
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, s.Location)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD", err)
			return
		}
		day = d
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.Location)
	f := store.SaleFilter{From: from, To: from.AddDate(0, 0, 1).Add(-time.Nanosecond)}
	items, _, err := s.Sales.SaleItems(c.Request.Context(), claimsFrom(c).BusinessID, f)
	if err != nil {
		storeError(c, err, "Sale")
		return
	}
	c.JSON(http.StatusOK, reports.DailySummary(from, items))
}

func (s *Server) monthlySales(c *gin.Context) {
	year := s.Now().In(s.Location).Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 {
			badRequest(c, "year must be a number", err)
			return
		}
		year = y
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.Location)
	f := store.SaleFilter{From: from, To: from.AddDate(1, 0, 0).Add(-time.Nanosecond)}
	items, _, err := s.Sales.SaleItems(c.Request.Context(), claimsFrom(c).BusinessID, f)
	if err != nil {
		storeError(c, err, "Sale")
		return
	}
	c.JSON(http.StatusOK, reports.MonthlySeries(year, s.Location, items))
}

func (s *Server) profitSummary(c *gin.Context) {
	from, to, ok := s.dateRange(c)
	if !ok {
		return
	}
	items, _, err := s.Sales.SaleItems(c.Request.Context(), claimsFrom(c).BusinessID, store.SaleFilter{From: from, To: to})
	if err != nil {
		storeError(c, err, "Sale")
		return
	}
	c.JSON(http.StatusOK, reports.ProfitSummary(items))
}
