package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"bizmanager/internal/session"
)

type ViewData map[string]any

// NavItem is one sidebar entry.
type NavItem struct {
	Name   string
	Link   string
	Active bool
}

var adminNav = []NavItem{
	{Name: "Dashboard", Link: "/dashboard"},
	{Name: "Add Product", Link: "/products/new"},
	{Name: "Product List", Link: "/products"},
	{Name: "New Sale", Link: "/sales"},
	{Name: "Sales History", Link: "/sales-history"},
	{Name: "Profit/Loss", Link: "/profit-loss"},
	{Name: "Users", Link: "/users"},
	{Name: "Settings", Link: "/settings"},
}

// Navigation returns the sidebar for s. Staff only see New Sale.
func Navigation(s session.Session, path string) []NavItem {
	if !s.Authenticated() {
		return nil
	}
	var out []NavItem
	for _, it := range adminNav {
		if !s.IsAdmin() && it.Link != "/sales" {
			continue
		}
		it.Active = it.Link == path
		out = append(out, it)
	}
	return out
}

// withUser adds the session, navigation and pending flashes to data.
func withUser(c *gin.Context, data ViewData) ViewData {
	if data == nil {
		data = ViewData{}
	}
	s := session.From(c)
	data["Session"] = s
	data["Nav"] = Navigation(s, c.Request.URL.Path)

	sess := sessions.Default(c)
	var flashes []string
	if raw := sess.Flashes(); len(raw) > 0 {
		for _, f := range raw {
			flashes = append(flashes, fmt.Sprint(f))
		}
		_ = sess.Save()
	}
	data["Flashes"] = flashes
	return data
}

func (s *Server) render(c *gin.Context, status int, name string, data ViewData) {
	c.HTML(status, name, withUser(c, data))
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.String(http.StatusNotFound, "Not found")
		return 0, false
	}
	return uint(id), true
}
