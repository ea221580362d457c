package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bizmanager/internal/models"
	"bizmanager/internal/store"
	"bizmanager/internal/validate"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string      `json:"token"`
	Username   string      `json:"username"`
	ID         uint        `json:"id"`
	BusinessID uint        `json:"business_id"`
	Role       models.Role `json:"role"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload", err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		badRequest(c, "Username and password are required", nil)
		return
	}

	u, err := s.Users.FindUserByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !models.CheckPassword(u.PasswordHash, req.Password)) {
		abortError(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		storeError(c, err, "User")
		return
	}

	token, err := s.Tokens.Issue(u.ID, u.BusinessID, u.Username, string(u.Role))
	if err != nil {
		storeError(c, err, "Token")
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:      token,
		Username:   u.Username,
		ID:         u.ID,
		BusinessID: u.BusinessID,
		Role:       u.Role,
	})
}

type signupRequest struct {
	BusinessName    string `json:"business_name"`
	BusinessAddress string `json:"business_address"`
	BusinessPhone   string `json:"business_phone"`
	BusinessEmail   string `json:"business_email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
}

type userResponse struct {
	ID         uint        `json:"id"`
	Username   string      `json:"username"`
	BusinessID uint        `json:"business_id"`
	Role       models.Role `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, BusinessID: u.BusinessID, Role: u.Role}
}

// signup registers a business together with its first admin.
func (s *Server) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload", err)
		return
	}
	form := validate.Signup{
		BusinessName:  strings.TrimSpace(req.BusinessName),
		BusinessPhone: strings.TrimSpace(req.BusinessPhone),
		BusinessEmail: strings.TrimSpace(req.BusinessEmail),
		Username:      strings.TrimSpace(req.Username),
		Password:      req.Password,
	}
	if errs := form.Validate(); !errs.OK() {
		badRequest(c, errs.First("business_name", "business_email", "business_phone", "username", "password"), nil)
		return
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		storeError(c, err, "User")
		return
	}
	b := &models.Business{
		Name:    form.BusinessName,
		Address: strings.TrimSpace(req.BusinessAddress),
		Phone:   form.BusinessPhone,
		Email:   form.BusinessEmail,
	}
	u := &models.User{Username: form.Username, PasswordHash: hash, Role: models.RoleAdmin}
	if err := s.Users.CreateBusinessWithAdmin(c.Request.Context(), b, u); err != nil {
		storeError(c, err, "Business or username")
		return
	}
	s.Log.Info().Uint("business_id", b.ID).Str("username", u.Username).Msg("business registered")
	c.JSON(http.StatusCreated, toUserResponse(u))
}
