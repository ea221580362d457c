package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/models"
)

const pageSize = 20

// productForm is the raw product form, re-rendered as typed on errors.
type productForm struct {
	Name        string
	Category    string
	Description string
	Price       string
	CostPrice   string
	Quantity    string
}

func readProductForm(c *gin.Context) productForm {
	return productForm{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Category:    strings.TrimSpace(c.PostForm("category")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Price:       strings.TrimSpace(c.PostForm("price")),
		CostPrice:   strings.TrimSpace(c.PostForm("cost_price")),
		Quantity:    strings.TrimSpace(c.PostForm("quantity")),
	}
}

func formFromProduct(p *models.Product) productForm {
	return productForm{
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		CostPrice:   p.CostPrice.StringFixed(2),
		Quantity:    strconv.Itoa(p.Quantity),
	}
}

func parseMoney(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// input validates the form. The message is empty when it is valid.
func (f productForm) input() (apiclient.ProductInput, string) {
	if f.Name == "" {
		return apiclient.ProductInput{}, "Product name is required"
	}
	price, ok := parseMoney(f.Price)
	if !ok {
		return apiclient.ProductInput{}, "Price must be a non-negative number"
	}
	cost, ok := parseMoney(f.CostPrice)
	if !ok {
		return apiclient.ProductInput{}, "Cost price must be a non-negative number"
	}
	qty, err := strconv.Atoi(f.Quantity)
	if err != nil || qty < 0 {
		return apiclient.ProductInput{}, "Quantity must be a non-negative whole number"
	}
	return apiclient.ProductInput{
		Name:        &f.Name,
		Category:    &f.Category,
		Description: &f.Description,
		Price:       &price,
		CostPrice:   &cost,
		Quantity:    &qty,
	}, ""
}

func (s *Server) productList(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	search := strings.TrimSpace(c.Query("q"))
	category := strings.TrimSpace(c.Query("category"))
	data := ViewData{"Title": "Products", "Search": search, "Category": category, "Page": page, "Pages": 1, "Total": int64(0)}

	res, err := s.api(c).ListProducts(c.Request.Context(), apiclient.ProductQuery{
		Category: category,
		Search:   search,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		if expired(c, err) {
			return
		}
		data["Error"] = apiclient.MessageOr(err, "Failed to fetch products")
		s.render(c, http.StatusOK, "products.tmpl", data)
		return
	}
	data["Products"] = res.Items
	data["Total"] = res.Total
	data["Pages"] = max(1, int((res.Total+pageSize-1)/pageSize))
	s.render(c, http.StatusOK, "products.tmpl", data)
}

// productFormPage renders the create or edit form with the inventory
// summary on top.
func (s *Server) productFormPage(c *gin.Context, status int, id uint, form productForm, errMsg string) {
	data := ViewData{"Title": "Product", "Form": form, "ProductID": id, "Action": "/products/new"}
	if id != 0 {
		data["Action"] = "/products/" + strconv.FormatUint(uint64(id), 10) + "/edit"
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	if id == 0 {
		if inv, err := s.api(c).ProductSummary(c.Request.Context()); err == nil {
			data["Inventory"] = inv
		} else {
			s.log.Warn().Err(err).Msg("failed to fetch inventory summary")
		}
	}
	s.render(c, status, "product_form.tmpl", data)
}

func (s *Server) productNewPage(c *gin.Context) {
	s.productFormPage(c, http.StatusOK, 0, productForm{Quantity: "0"}, "")
}

func (s *Server) productCreate(c *gin.Context) {
	form := readProductForm(c)
	in, msg := form.input()
	if msg != "" {
		s.productFormPage(c, http.StatusBadRequest, 0, form, msg)
		return
	}
	p, err := s.api(c).CreateProduct(c.Request.Context(), in)
	if err != nil {
		if expired(c, err) {
			return
		}
		s.productFormPage(c, http.StatusBadRequest, 0, form, apiclient.MessageOr(err, "Failed to add product"))
		return
	}
	addFlash(c, "Product "+p.Name+" added.")
	c.Redirect(http.StatusSeeOther, "/products")
}

func (s *Server) productEditPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := s.api(c).GetProduct(c.Request.Context(), id)
	if err != nil {
		if expired(c, err) {
			return
		}
		if apiclient.StatusOf(err) == http.StatusNotFound {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to fetch product"))
		c.Redirect(http.StatusSeeOther, "/products")
		return
	}
	s.productFormPage(c, http.StatusOK, id, formFromProduct(p), "")
}

func (s *Server) productUpdate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	form := readProductForm(c)
	in, msg := form.input()
	if msg != "" {
		s.productFormPage(c, http.StatusBadRequest, id, form, msg)
		return
	}
	if _, err := s.api(c).UpdateProduct(c.Request.Context(), id, in); err != nil {
		if expired(c, err) {
			return
		}
		s.productFormPage(c, http.StatusBadRequest, id, form, apiclient.MessageOr(err, "Failed to update product"))
		return
	}
	addFlash(c, "Product updated.")
	c.Redirect(http.StatusSeeOther, "/products")
}

// productDelete removes a product. The list is re-fetched after the
// redirect, so it always reflects what the server holds.
func (s *Server) productDelete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.api(c).DeleteProduct(c.Request.Context(), id); err != nil {
		if expired(c, err) {
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to delete product"))
	} else {
		addFlash(c, "Product deleted.")
	}
	c.Redirect(http.StatusSeeOther, "/products")
}
