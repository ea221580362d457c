package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bizmanager/internal/models"
	"bizmanager/internal/reports"
	"bizmanager/internal/store"
)

// productRequest is used for create (all of name, price, cost_price required)
// and for partial update (nil fields are left alone).
type productRequest struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	Quantity    *int             `json:"quantity"`
}

func (r productRequest) apply(p *models.Product) string {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Category != nil {
		p.Category = strings.TrimSpace(*r.Category)
	}
	if r.Description != nil {
		p.Description = strings.TrimSpace(*r.Description)
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.CostPrice != nil {
		p.CostPrice = *r.CostPrice
	}
	if r.Quantity != nil {
		p.Quantity = *r.Quantity
	}

	switch {
	case p.Name == "":
		return "Product name is required"
	case p.Price.IsNegative():
		return "Price must not be negative"
	case p.CostPrice.IsNegative():
		return "Cost price must not be negative"
	case p.Quantity < 0:
		return "Quantity must not be negative"
	}
	return ""
}

func (s *Server) listProducts(c *gin.Context) {
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	f := store.ProductFilter{Category: c.Query("category"), Query: c.Query("q"), Page: page}
	items, total, err := s.Products.ListProducts(c.Request.Context(), claimsFrom(c).BusinessID, f)
	if err != nil {
		storeError(c, err, "Product")
		return
	}
	if items == nil {
		items = []models.Product{}
	}
	setTotal(c, total)
	c.JSON(http.StatusOK, items)
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := s.Products.GetProduct(c.Request.Context(), claimsFrom(c).BusinessID, id)
	if err != nil {
		storeError(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload", err)
		return
	}
	if req.Price == nil || req.CostPrice == nil {
		badRequest(c, "Price and cost price are required", nil)
		return
	}
	p := &models.Product{BusinessID: claimsFrom(c).BusinessID}
	if msg := req.apply(p); msg != "" {
		badRequest(c, msg, nil)
		return
	}
	if err := s.Products.CreateProduct(c.Request.Context(), p); err != nil {
		storeError(c, err, "Product")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload", err)
		return
	}
	ctx := c.Request.Context()
	p, err := s.Products.GetProduct(ctx, claimsFrom(c).BusinessID, id)
	if err != nil {
		storeError(c, err, "Product")
		return
	}
	if msg := req.apply(p); msg != "" {
		badRequest(c, msg, nil)
		return
	}
	if err := s.Products.UpdateProduct(ctx, p); err != nil {
		storeError(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.Products.DeleteProduct(c.Request.Context(), claimsFrom(c).BusinessID, id); err != nil {
		storeError(c, err, "Product")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) productSummary(c *gin.Context) {
	items, _, err := s.Products.ListProducts(c.Request.Context(), claimsFrom(c).BusinessID, store.ProductFilter{})
	if err != nil {
		storeError(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, reports.InventorySummary(items, reports.DefaultLowStock))
}
