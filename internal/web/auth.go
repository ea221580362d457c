package web

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/session"
	"bizmanager/internal/validate"
)

func (s *Server) loginPage(c *gin.Context) {
	if sess := session.From(c); sess.Authenticated() {
		c.Redirect(http.StatusSeeOther, homeFor(sess))
		return
	}
	s.render(c, http.StatusOK, "login.tmpl", nil)
}

func (s *Server) login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	pw := c.PostForm("password")
	if username == "" || pw == "" {
		s.render(c, http.StatusBadRequest, "login.tmpl", ViewData{"Error": "Fill all fields", "Username": username})
		return
	}

	res, err := s.connect("").Login(c.Request.Context(), username, pw)
	if err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("login failed")
		status := http.StatusUnauthorized
		if apiclient.StatusOf(err) == http.StatusTooManyRequests {
			status = http.StatusTooManyRequests
		}
		s.render(c, status, "login.tmpl", ViewData{
			"Error":    apiclient.MessageOr(err, "Login failed. Please check your credentials."),
			"Username": username,
		})
		return
	}

	s.startSession(c, res)
}

// startSession stores the login result and sends the user to their home page.
func (s *Server) startSession(c *gin.Context, res *apiclient.LoginResult) {
	sess := session.Session{
		Token:      res.Token,
		Username:   res.Username,
		UserID:     res.ID,
		BusinessID: res.BusinessID,
		Role:       res.Role,
	}
	if err := sess.Persist(sessions.Default(c)); err != nil {
		s.log.Error().Err(err).Msg("failed to save session")
		s.render(c, http.StatusInternalServerError, "login.tmpl", ViewData{"Error": "Login failed. Please try again."})
		return
	}
	c.Redirect(http.StatusSeeOther, homeFor(sess))
}

// logout drops every session key, wherever it is called from.
func (s *Server) logout(c *gin.Context) {
	if _, err := session.Clear(sessions.Default(c), cartKey, checkoutKey); err != nil {
		s.log.Error().Err(err).Msg("failed to clear session")
	}
	session.Attach(c, session.Session{})
	c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) signupPage(c *gin.Context) {
	s.render(c, http.StatusOK, "signup.tmpl", ViewData{"Form": validate.Signup{}, "Errors": validate.Errors{}})
}

func (s *Server) signup(c *gin.Context) {
	confirm := c.PostForm("confirm_password")
	form := validate.Signup{
		BusinessName:    strings.TrimSpace(c.PostForm("business_name")),
		BusinessAddress: strings.TrimSpace(c.PostForm("business_address")),
		BusinessPhone:   strings.TrimSpace(c.PostForm("business_phone")),
		BusinessEmail:   strings.TrimSpace(c.PostForm("business_email")),
		Username:        strings.TrimSpace(c.PostForm("username")),
		Password:        c.PostForm("password"),
		ConfirmPassword: &confirm,
	}
	if errs := form.Validate(); !errs.OK() {
		s.render(c, http.StatusBadRequest, "signup.tmpl", ViewData{"Form": form, "Errors": errs})
		return
	}

	_, err := s.connect("").Signup(c.Request.Context(), apiclient.SignupInput{
		BusinessName:    form.BusinessName,
		BusinessAddress: form.BusinessAddress,
		BusinessPhone:   form.BusinessPhone,
		BusinessEmail:   form.BusinessEmail,
		Username:        form.Username,
		Password:        form.Password,
	})
	if err != nil {
		s.render(c, http.StatusBadRequest, "signup.tmpl", ViewData{
			"Form":   form,
			"Errors": validate.Errors{},
			"Error":  apiclient.MessageOr(err, "Signup failed. Please try again."),
		})
		return
	}

	// Sign the new owner straight in.
	res, err := s.connect("").Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		s.log.Warn().Err(err).Str("username", form.Username).Msg("login after signup failed")
		addFlash(c, "Account created, please log in.")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	s.startSession(c, res)
}
