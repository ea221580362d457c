package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bizmanager/internal/auth"
	"bizmanager/internal/models"
	"bizmanager/internal/validate"
)

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.Users.ListUsers(c.Request.Context(), claimsFrom(c).BusinessID)
	if err != nil {
		storeError(c, err, "User")
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload", err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	errs := validate.Errors{}
	validate.Username(errs, req.Username)
	validate.Password(errs, req.Password, nil)
	validate.Role(errs, req.Role)
	if !errs.OK() {
		badRequest(c, errs.First("username", "password", "role"), nil)
		return
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		storeError(c, err, "User")
		return
	}
	u := &models.User{
		BusinessID:   claimsFrom(c).BusinessID,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         models.Role(req.Role),
	}
	if err := s.Users.CreateUser(c.Request.Context(), u); err != nil {
		storeError(c, err, "Username")
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// selfOrAdmin lets admins act on any user of their business and everyone
// else only on themselves.
func selfOrAdmin(c *gin.Context, claims *auth.Claims, id uint) bool {
	if claims.Role == string(models.RoleAdmin) || claims.UserID == id {
		return true
	}
	abortError(c, http.StatusForbidden, CodeForbidden, "You can only access your own account")
	return false
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	claims := claimsFrom(c)
	if !selfOrAdmin(c, claims, id) {
		return
	}
	u, err := s.Users.GetUser(c.Request.Context(), claims.BusinessID, id)
	if err != nil {
		storeError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// updateUser changes username, role and, when given, the password. Only an
// admin may change a role.
func (s *Server) updateUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	claims := claimsFrom(c)
	if !selfOrAdmin(c, claims, id) {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload", err)
		return
	}

	ctx := c.Request.Context()
	u, err := s.Users.GetUser(ctx, claims.BusinessID, id)
	if err != nil {
		storeError(c, err, "User")
		return
	}
	if req.Role != "" && models.Role(req.Role) != u.Role && claims.Role != string(models.RoleAdmin) {
		abortError(c, http.StatusForbidden, CodeForbidden, "Only an admin can change roles")
		return
	}

	errs := validate.Errors{}
	if req.Username = strings.TrimSpace(req.Username); req.Username != "" {
		validate.Username(errs, req.Username)
		u.Username = req.Username
	}
	if req.Role != "" {
		validate.Role(errs, req.Role)
		u.Role = models.Role(req.Role)
	}
	if req.Password != "" {
		validate.Password(errs, req.Password, nil)
	}
	if !errs.OK() {
		badRequest(c, errs.First("username", "password", "role"), nil)
		return
	}
	if req.Password != "" {
		if u.PasswordHash, err = models.HashPassword(req.Password); err != nil {
			storeError(c, err, "User")
			return
		}
	}
	if err := s.Users.UpdateUser(ctx, u); err != nil {
		storeError(c, err, "Username")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	claims := claimsFrom(c)
	if claims.UserID == id {
		abortError(c, http.StatusForbidden, CodeForbidden, "You cannot delete your own account")
		return
	}
	if err := s.Users.DeleteUser(c.Request.Context(), claims.BusinessID, id); err != nil {
		storeError(c, err, "User")
		return
	}
	c.Status(http.StatusNoContent)
}
