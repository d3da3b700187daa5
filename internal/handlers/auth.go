package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/config"
	"github.com/clinreach/clinreach/internal/middleware"
	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, cfg),
	}
}

// Login authenticates a staff account
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	services.LogInfo("auth", "login", "user logged in", &resp.User.ID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, resp)
}

// GetCurrentUser returns the authenticated account
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Logout handles user logout (client-side token removal)
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := middleware.GetUserID(c)
	services.LogInfo("auth", "logout", "user logged out", &uid, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// ChangePassword changes the authenticated account's password
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(middleware.GetUserID(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"changed": true})
}

// LDAPStatus reports whether LDAP login is available
// GET /api/auth/ldap-status
func (h *AuthHandler) LDAPStatus(c *gin.Context) {
	response.Success(c, gin.H{"enabled": h.authService.IsLDAPEnabled()})
}

// CreateUser provisions a staff account
// POST /api/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.CreateUser(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// ListUsers returns all staff accounts
// GET /api/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, users)
}

// UpdateUser applies admin-editable account fields
// PUT /api/users/:id
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.UpdateUser(uint(id), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}
