package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/session"
	"bizmanager/internal/validate"
)

// userForm is the user create/update form without its passwords.
type userForm struct {
	Username string
	Role     string
}

func (s *Server) userList(c *gin.Context) {
	data := ViewData{"Title": "Users"}
	users, err := s.api(c).ListUsers(c.Request.Context())
	if err != nil {
		if expired(c, err) {
			return
		}
		data["Error"] = apiclient.MessageOr(err, "Failed to fetch users")
	}
	data["Users"] = users
	s.render(c, http.StatusOK, "users.tmpl", data)
}

func (s *Server) renderUserForm(c *gin.Context, status int, id uint, form userForm, errs validate.Errors, errMsg string) {
	data := ViewData{"Title": "User", "UserID": id, "Form": form, "Errors": errs, "Action": "/users/new"}
	if id != 0 {
		data["Action"] = "/users/" + strconv.FormatUint(uint64(id), 10) + "/edit"
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	s.render(c, status, "user_form.tmpl", data)
}

func (s *Server) userNewPage(c *gin.Context) {
	s.renderUserForm(c, http.StatusOK, 0, userForm{Role: "staff"}, validate.Errors{}, "")
}

func (s *Server) userCreate(c *gin.Context) {
	form := userForm{Username: strings.TrimSpace(c.PostForm("username")), Role: c.PostForm("role")}
	pw, confirm := c.PostForm("password"), c.PostForm("confirm_password")

	errs := validate.Errors{}
	validate.Username(errs, form.Username)
	validate.Password(errs, pw, &confirm)
	validate.Role(errs, form.Role)
	if !errs.OK() {
		s.renderUserForm(c, http.StatusBadRequest, 0, form, errs, "")
		return
	}

	_, err := s.api(c).CreateUser(c.Request.Context(), apiclient.UserInput{Username: form.Username, Password: pw, Role: form.Role})
	if err != nil {
		if expired(c, err) {
			return
		}
		s.renderUserForm(c, http.StatusBadRequest, 0, form, validate.Errors{}, apiclient.MessageOr(err, "Failed to create user"))
		return
	}
	addFlash(c, "User "+form.Username+" created.")
	c.Redirect(http.StatusSeeOther, "/users")
}

func (s *Server) userEditPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	u, err := s.api(c).GetUser(c.Request.Context(), id)
	if err != nil {
		if expired(c, err) {
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to fetch user"))
		c.Redirect(http.StatusSeeOther, "/users")
		return
	}
	s.renderUserForm(c, http.StatusOK, id, userForm{Username: u.Username, Role: u.Role}, validate.Errors{}, "")
}

func (s *Server) userUpdate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	form := userForm{Username: strings.TrimSpace(c.PostForm("username")), Role: c.PostForm("role")}
	pw, confirm := c.PostForm("password"), c.PostForm("confirm_password")

	errs := validate.Errors{}
	validate.Username(errs, form.Username)
	validate.OptionalPassword(errs, pw, confirm)
	validate.Role(errs, form.Role)
	if !errs.OK() {
		s.renderUserForm(c, http.StatusBadRequest, id, form, errs, "")
		return
	}

	u, err := s.api(c).UpdateUser(c.Request.Context(), id, apiclient.UserInput{Username: form.Username, Password: pw, Role: form.Role})
	if err != nil {
		if expired(c, err) {
			return
		}
		s.renderUserForm(c, http.StatusBadRequest, id, form, validate.Errors{}, apiclient.MessageOr(err, "Failed to update user"))
		return
	}
	s.refreshSelf(c, u)
	addFlash(c, "User "+u.Username+" updated.")
	c.Redirect(http.StatusSeeOther, "/users")
}

// refreshSelf keeps the session in step when users edit their own account.
func (s *Server) refreshSelf(c *gin.Context, u *apiclient.Account) {
	sess := session.From(c)
	if u.ID != sess.UserID || (u.Username == sess.Username && u.Role == sess.Role) {
		return
	}
	sess.Username, sess.Role = u.Username, u.Role
	if err := sess.Persist(sessions.Default(c)); err != nil {
		s.log.Error().Err(err).Msg("failed to save session")
	}
	session.Attach(c, sess)
}

func (s *Server) userDelete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if id == session.From(c).UserID {
		addFlash(c, "You cannot delete your own account.")
		c.Redirect(http.StatusSeeOther, "/users")
		return
	}
	if err := s.api(c).DeleteUser(c.Request.Context(), id); err != nil {
		if expired(c, err) {
			return
		}
		addFlash(c, apiclient.MessageOr(err, "Failed to delete user"))
	} else {
		addFlash(c, "User deleted.")
	}
	c.Redirect(http.StatusSeeOther, "/users")
}

func (s *Server) settingsPage(c *gin.Context) {
	sess := session.From(c)
	form := userForm{Username: sess.Username, Role: sess.Role}
	data := ViewData{"Title": "Settings", "Form": form, "Errors": validate.Errors{}}
	if u, err := s.api(c).GetUser(c.Request.Context(), sess.UserID); err != nil {
		if expired(c, err) {
			return
		}
		data["Error"] = apiclient.MessageOr(err, "Failed to fetch account")
	} else {
		data["Form"] = userForm{Username: u.Username, Role: u.Role}
	}
	s.render(c, http.StatusOK, "settings.tmpl", data)
}

// settingsSave updates the signed-in user's own name and password. The role
// is not editable here.
func (s *Server) settingsSave(c *gin.Context) {
	sess := session.From(c)
	form := userForm{Username: strings.TrimSpace(c.PostForm("username")), Role: sess.Role}
	pw, confirm := c.PostForm("password"), c.PostForm("confirm_password")

	errs := validate.Errors{}
	validate.Username(errs, form.Username)
	validate.OptionalPassword(errs, pw, confirm)
	if !errs.OK() {
		s.render(c, http.StatusBadRequest, "settings.tmpl", ViewData{"Title": "Settings", "Form": form, "Errors": errs})
		return
	}

	u, err := s.api(c).UpdateUser(c.Request.Context(), sess.UserID, apiclient.UserInput{Username: form.Username, Password: pw})
	if err != nil {
		if expired(c, err) {
			return
		}
		s.render(c, http.StatusBadRequest, "settings.tmpl", ViewData{
			"Title":  "Settings",
			"Form":   form,
			"Errors": validate.Errors{},
			"Error":  apiclient.MessageOr(err, "Failed to save settings"),
		})
		return
	}
	s.refreshSelf(c, u)
	addFlash(c, "Settings saved.")
	c.Redirect(http.StatusSeeOther, "/settings")
}
