package web

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/reports"
)

func emptyMonths() []reports.Month {
	return reports.MonthlySeries(0, time.UTC, nil)
}

func (s *Server) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	api := s.api(c)
	now := s.now().In(s.location)
	data := ViewData{
		"Title":      "Dashboard",
		"Year":       now.Year(),
		"Inventory":  &reports.Inventory{StockValue: decimal.Zero},
		"Daily":      reports.Daily{},
		"Months":     emptyMonths(),
		"MaxRevenue": decimal.Zero,
	}

	var errs []string
	if inv, err := api.ProductSummary(ctx); err != nil {
		if expired(c, err) {
			return
		}
		errs = append(errs, apiclient.MessageOr(err, "Failed to fetch products"))
	} else {
		data["Inventory"] = inv
	}
	if daily, err := api.DailySales(ctx, now); err != nil {
		errs = append(errs, apiclient.MessageOr(err, "Failed to fetch daily sales"))
	} else {
		data["Daily"] = *daily
	}
	if months, err := api.MonthlySales(ctx, now.Year()); err != nil {
		errs = append(errs, apiclient.MessageOr(err, "Failed to fetch monthly sales"))
	} else {
		maxRev := decimal.Zero
		for _, m := range months {
			maxRev = decimal.Max(maxRev, m.Revenue)
		}
		data["Months"] = months
		data["MaxRevenue"] = maxRev
	}
	if len(errs) > 0 {
		data["Error"] = strings.Join(errs, ". ")
	}
	s.render(c, http.StatusOK, "dashboard.tmpl", data)
}

// historyTotals are the cards above the sales history table.
type historyTotals struct {
	Sales   decimal.Decimal
	Average decimal.Decimal
	Profit  decimal.Decimal
}

func summarizeRows(rows []reports.Row) historyTotals {
	t := historyTotals{Sales: decimal.Zero, Average: decimal.Zero, Profit: decimal.Zero}
	for _, r := range rows {
		t.Sales = t.Sales.Add(r.TotalPrice)
		t.Profit = t.Profit.Add(r.Profit)
	}
	if len(rows) > 0 {
		t.Average = t.Sales.Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
	}
	return t
}

func validPreset(p string) bool {
	for _, v := range reports.Presets {
		if v == p {
			return true
		}
	}
	return false
}

func (s *Server) salesHistory(c *gin.Context) {
	preset := c.DefaultQuery("range", "Today")
	if !validPreset(preset) {
		preset = "Today"
	}
	category := strings.TrimSpace(c.Query("category"))
	start, end := reports.PresetRange(preset, s.now().In(s.location))

	rows, _, err := s.api(c).SalesReport(c.Request.Context(), apiclient.SalesQuery{Start: start, End: end, Category: category})
	if err != nil && expired(c, err) {
		return
	}

	if c.Query("format") == "csv" {
		if err != nil {
			c.String(http.StatusBadGateway, apiclient.MessageOr(err, "Failed to fetch sales data"))
			return
		}
		s.writeCSV(c, rows)
		return
	}

	totals := summarizeRows(rows)
	data := ViewData{
		"Title":       "Sales History",
		"Presets":     reports.Presets,
		"Range":       preset,
		"Category":    category,
		"Rows":        rows,
		"TotalSales":  totals.Sales,
		"AverageSale": totals.Average,
		"TotalProfit": totals.Profit,
	}
	if err != nil {
		data["Error"] = apiclient.MessageOr(err, "Failed to fetch sales data")
	}
	s.render(c, http.StatusOK, "sales_history.tmpl", data)
}

func (s *Server) writeCSV(c *gin.Context, rows []reports.Row) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="sales_data.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Date", "Product", "Quantity Sold", "Total Sales", "Total Cost", "Profit", "Category"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.Date.In(s.location).Format(time.RFC3339),
			r.ProductName,
			strconv.Itoa(r.QuantitySold),
			r.TotalPrice.StringFixed(2),
			r.TotalCostPrice.StringFixed(2),
			r.Profit.StringFixed(2),
			r.Category,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.log.Error().Err(err).Msg("failed to write csv export")
	}
}

var timeframes = []string{"Monthly", "Quarterly", "Yearly"}

// timeframeRange is the current month, quarter or year around now.
func timeframeRange(tf string, now time.Time) (time.Time, time.Time) {
	loc := now.Location()
	switch tf {
	case "Monthly":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case "Quarterly":
		q := (int(now.Month()) - 1) / 3
		start := time.Date(now.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 3, 0).Add(-time.Nanosecond)
	}
	start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

func (s *Server) profitLoss(c *gin.Context) {
	tf := c.DefaultQuery("timeframe", "Yearly")
	if tf != "Monthly" && tf != "Quarterly" {
		tf = "Yearly"
	}
	ctx := c.Request.Context()
	api := s.api(c)
	now := s.now().In(s.location)
	start, end := timeframeRange(tf, now)

	data := ViewData{
		"Title":      "Profit/Loss",
		"Timeframes": timeframes,
		"Timeframe":  tf,
		"Year":       now.Year(),
		"Daily":      reports.Daily{},
		"Period":     reports.Profit{},
		"Months":     emptyMonths(),
	}
	var errs []string
	if period, err := api.ProfitSummary(ctx, start, end); err != nil {
		if expired(c, err) {
			return
		}
		errs = append(errs, apiclient.MessageOr(err, "Failed to fetch profit summary"))
	} else {
		data["Period"] = *period
	}
	if daily, err := api.DailySales(ctx, now); err != nil {
		errs = append(errs, apiclient.MessageOr(err, "Failed to fetch daily sales"))
	} else {
		data["Daily"] = *daily
	}
	if months, err := api.MonthlySales(ctx, now.Year()); err != nil {
		errs = append(errs, apiclient.MessageOr(err, "Failed to fetch monthly sales"))
	} else {
		data["Months"] = months
	}
	if len(errs) > 0 {
		data["Error"] = strings.Join(errs, ". ")
	}
	s.render(c, http.StatusOK, "profit_loss.tmpl", data)
}
