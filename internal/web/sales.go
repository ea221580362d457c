package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/cart"
	"bizmanager/internal/models"
)

func toCartProduct(p models.Product) cart.Product {
	return cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Cost:     p.CostPrice,
		Stock:    p.Quantity,
	}
}

func storedEntries(c *gin.Context) []cart.Entry {
	raw, _ := sessions.Default(c).Get(cartKey).(string)
	var entries []cart.Entry
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &entries)
	}
	return entries
}

func saveEntries(c *gin.Context, entries []cart.Entry) error {
	sess := sessions.Default(c)
	if len(entries) == 0 {
		sess.Delete(cartKey)
		return sess.Save()
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	sess.Set(cartKey, string(b))
	return sess.Save()
}

func adjustmentMessage(a cart.Adjustment) string {
	switch {
	case a.Name == "":
		return "A product in your cart is no longer available and was removed."
	case a.Kept == 0:
		return a.Name + " is out of stock and was removed from the cart."
	}
	return fmt.Sprintf("Only %d of %s in stock, the cart quantity was lowered.", a.Kept, a.Name)
}

const cartFullMessage = "Cart is full, the last change was not saved. Check out or remove items first."

// storeCart saves a changed cart. When the session cannot hold it the
// previous cart is put back and false is returned.
func (s *Server) storeCart(c *gin.Context, entries []cart.Entry) bool {
	prev := storedEntries(c)
	err := saveEntries(c, entries)
	if err == nil {
		return true
	}
	s.log.Warn().Err(err).Int("lines", len(entries)).Msg("failed to save cart")
	if err := saveEntries(c, prev); err != nil {
		s.log.Error().Err(err).Msg("failed to restore cart")
	}
	return false
}

// restoreCart fetches the catalog and rebuilds the session cart against it.
// Lines that no longer fit the stock are adjusted, saved back and returned.
func (s *Server) restoreCart(c *gin.Context) (*cart.Cart, []models.Product, []cart.Adjustment, error) {
	res, err := s.api(c).ListProducts(c.Request.Context(), apiclient.ProductQuery{})
	if err != nil {
		return nil, nil, nil, err
	}
	products := make([]cart.Product, 0, len(res.Items))
	for _, p := range res.Items {
		products = append(products, toCartProduct(p))
	}
	crt, adjustments := cart.Restore(products, storedEntries(c))
	if len(adjustments) > 0 {
		if err := saveEntries(c, crt.Entries()); err != nil {
			s.log.Error().Err(err).Msg("failed to save cart")
		}
	}
	return crt, res.Items, adjustments, nil
}

// loadCart is restoreCart with the adjustments reported as flashes.
func (s *Server) loadCart(c *gin.Context) (*cart.Cart, []models.Product, error) {
	crt, products, adjustments, err := s.restoreCart(c)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range adjustments {
		addFlash(c, adjustmentMessage(a))
	}
	return crt, products, nil
}

func salesURL(search string) string {
	if search == "" {
		return "/sales"
	}
	return "/sales?q=" + url.QueryEscape(search)
}

func (s *Server) salesPage(c *gin.Context) {
	s.renderSales(c, http.StatusOK, strings.TrimSpace(c.Query("q")), "")
}

// renderSales shows the sales entry page. A full cookie cannot carry a
// flash, so cart errors are passed in as errMsg.
func (s *Server) renderSales(c *gin.Context, status int, search, errMsg string) {
	data := ViewData{"Title": "New Sale", "Search": search, "Totals": cart.Totals{}}

	crt, products, err := s.loadCart(c)
	if err != nil {
		if expired(c, err) {
			return
		}
		data["Error"] = apiclient.MessageOr(err, "Failed to fetch products")
		s.render(c, http.StatusOK, "sales.tmpl", data)
		return
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	if search != "" {
		term := strings.ToLower(search)
		filtered := products[:0:0]
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), term) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	data["Products"] = products
	data["Lines"] = crt.Lines()
	data["Totals"] = crt.Totals()
	s.render(c, status, "sales.tmpl", data)
}

func formProductID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.PostForm("product_id"), 10, 64)
	return uint(id), err == nil && id > 0
}

// cartMessage turns a cart error into the banner text.
func cartMessage(err error) string {
	var stock *cart.StockError
	switch {
	case errors.As(err, &stock):
		return fmt.Sprintf("Cannot add more %s: only %d in stock.", stock.Name, stock.Available)
	case errors.Is(err, cart.ErrInsufficientStock):
		return "This product is out of stock."
	case errors.Is(err, cart.ErrInvalidQuantity):
		return "Quantity must not be negative."
	}
	return "Failed to update the cart."
}

func (s *Server) cartAdd(c *gin.Context) {
	search := strings.TrimSpace(c.PostForm("q"))
	back := salesURL(search)
	id, ok := formProductID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, back)
		return
	}
	crt, products, err := s.loadCart(c)
	if err != nil {
		if expired(c, err) {
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to fetch products"))
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	var found *models.Product
	for i := range products {
		if products[i].ID == id {
			found = &products[i]
			break
		}
	}
	switch {
	case found == nil:
		addFlash(c, "Product not found.")
	default:
		if err := crt.AddLine(toCartProduct(*found)); err != nil {
			addFlash(c, cartMessage(err))
		} else if !s.storeCart(c, crt.Entries()) {
			s.renderSales(c, http.StatusUnprocessableEntity, search, cartFullMessage)
			return
		}
	}
	c.Redirect(http.StatusSeeOther, back)
}

func (s *Server) cartUpdate(c *gin.Context) {
	search := strings.TrimSpace(c.PostForm("q"))
	back := salesURL(search)
	id, ok := formProductID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, back)
		return
	}
	qty, err := strconv.Atoi(strings.TrimSpace(c.PostForm("quantity")))
	if err != nil {
		addFlash(c, "Quantity must be a whole number.")
		c.Redirect(http.StatusSeeOther, back)
		return
	}
	crt, _, err := s.loadCart(c)
	if err != nil {
		if expired(c, err) {
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to fetch products"))
		c.Redirect(http.StatusSeeOther, back)
		return
	}
	switch err := crt.UpdateQuantity(id, qty); {
	case errors.Is(err, cart.ErrLineNotFound):
	case err != nil:
		addFlash(c, cartMessage(err))
	default:
		if !s.storeCart(c, crt.Entries()) {
			s.renderSales(c, http.StatusUnprocessableEntity, search, cartFullMessage)
			return
		}
	}
	c.Redirect(http.StatusSeeOther, back)
}

// cartRemove drops a line without consulting the catalog.
func (s *Server) cartRemove(c *gin.Context) {
	back := salesURL(strings.TrimSpace(c.PostForm("q")))
	if id, ok := formProductID(c); ok {
		entries := storedEntries(c)
		kept := entries[:0]
		for _, e := range entries {
			if e.ProductID != id {
				kept = append(kept, e)
			}
		}
		if err := saveEntries(c, kept); err != nil {
			s.log.Error().Err(err).Msg("failed to save cart")
		}
	}
	c.Redirect(http.StatusSeeOther, back)
}

// issueCheckoutToken stores a single-use token that the checkout form must
// echo back. It doubles as the sale's idempotency key.
func issueCheckoutToken(c *gin.Context, token string) error {
	sess := sessions.Default(c)
	sess.Set(checkoutKey, token)
	return sess.Save()
}

func (s *Server) renderCheckout(c *gin.Context, status int, crt *cart.Cart, token, errMsg string) {
	data := ViewData{"Title": "Checkout", "Lines": crt.Lines(), "Totals": crt.Totals(), "Token": token}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	s.render(c, status, "checkout.tmpl", data)
}

func (s *Server) checkoutPage(c *gin.Context) {
	crt, _, err := s.loadCart(c)
	if err != nil {
		if expired(c, err) {
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to fetch products"))
		c.Redirect(http.StatusSeeOther, "/sales")
		return
	}
	if crt.IsEmpty() {
		addFlash(c, "Your cart is empty.")
		c.Redirect(http.StatusSeeOther, "/sales")
		return
	}
	token := uuid.NewString()
	if err := issueCheckoutToken(c, token); err != nil {
		s.log.Error().Err(err).Msg("failed to save checkout token")
	}
	s.renderCheckout(c, http.StatusOK, crt, token, "")
}

func (s *Server) checkout(c *gin.Context) {
	sess := sessions.Default(c)
	want, _ := sess.Get(checkoutKey).(string)
	token := c.PostForm("checkout_token")
	if want == "" || token != want {
		addFlash(c, "This sale has already been submitted.")
		c.Redirect(http.StatusSeeOther, "/sales")
		return
	}
	sess.Delete(checkoutKey)
	if err := sess.Save(); err != nil {
		s.log.Error().Err(err).Msg("failed to consume checkout token")
	}

	crt, _, adjustments, err := s.restoreCart(c)
	if err != nil {
		if expired(c, err) {
			return
		}
		_ = issueCheckoutToken(c, token)
		addFlash(c, apiclient.MessageOr(err, "Failed to fetch products"))
		c.Redirect(http.StatusSeeOther, "/checkout")
		return
	}
	// Stock moved since the cart was reviewed: show the new cart instead of
	// submitting a different one.
	if len(adjustments) > 0 {
		if crt.IsEmpty() {
			for _, a := range adjustments {
				addFlash(c, adjustmentMessage(a))
			}
			c.Redirect(http.StatusSeeOther, "/sales")
			return
		}
		if err := issueCheckoutToken(c, token); err != nil {
			s.log.Error().Err(err).Msg("failed to save checkout token")
		}
		msgs := make([]string, 0, len(adjustments)+1)
		for _, a := range adjustments {
			msgs = append(msgs, adjustmentMessage(a))
		}
		msgs = append(msgs, "Please review the cart and confirm again.")
		s.renderCheckout(c, http.StatusConflict, crt, token, strings.Join(msgs, " "))
		return
	}

	co := cart.NewCheckout(crt)
	receipt, err := co.Submit(c.Request.Context(), s.api(c).Submitter(token))
	var apiErr *apiclient.Error
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		addFlash(c, "Your cart is empty.")
		c.Redirect(http.StatusSeeOther, "/sales")
		return
	case errors.As(err, &apiErr) && apiErr.Code == "DUPLICATE_SUBMISSION":
		_ = saveEntries(c, nil)
		addFlash(c, "This sale has already been recorded.")
		c.Redirect(http.StatusSeeOther, "/sales")
		return
	case err != nil:
		if expired(c, err) {
			return
		}
		s.log.Warn().Err(err).Str("state", co.State().String()).Msg("checkout failed")
		// Same key on retry: if the sale did go through, the server refuses
		// the repeat instead of recording it twice.
		if err := issueCheckoutToken(c, token); err != nil {
			s.log.Error().Err(err).Msg("failed to save checkout token")
		}
		status := apiclient.StatusOf(err)
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		s.renderCheckout(c, status, crt, token, apiclient.MessageOr(err, "Failed to complete sale. Please try again."))
		return
	}

	if err := saveEntries(c, nil); err != nil {
		s.log.Error().Err(err).Msg("failed to clear cart")
	}
	s.log.Info().Uint("sale_id", receipt.SaleID).Str("total", receipt.Total.StringFixed(2)).Msg("sale completed")
	s.render(c, http.StatusOK, "receipt.tmpl", ViewData{
		"Title":       "Receipt",
		"Receipt":     receipt,
		"ReceiptText": receipt.Text(s.bizName),
	})
}
