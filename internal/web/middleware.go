package web

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/session"
)

// Web-owned session keys, removed at logout with the identity keys.
const (
	cartKey     = "cart"
	checkoutKey = "checkout_token"
)

// hydrate loads the browser session on every request.
func hydrate() gin.HandlerFunc {
	return func(c *gin.Context) {
		session.Attach(c, session.Load(sessions.Default(c)))
		c.Next()
	}
}

func mustLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.From(c).Authenticated() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func mustAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.From(c).IsAdmin() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// expired handles an API 401: the token is no longer accepted, so the
// session is dropped and the browser sent to the login page.
func expired(c *gin.Context, err error) bool {
	if apiclient.StatusOf(err) != http.StatusUnauthorized {
		return false
	}
	_, _ = session.Clear(sessions.Default(c), cartKey, checkoutKey)
	session.Attach(c, session.Session{})
	addFlash(c, "Your session has expired, please log in again.")
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
	return true
}

func addFlash(c *gin.Context, msg string) {
	sess := sessions.Default(c)
	sess.AddFlash(msg)
	_ = sess.Save()
}

func homeFor(s session.Session) string {
	if s.IsAdmin() {
		return "/dashboard"
	}
	return "/sales"
}
