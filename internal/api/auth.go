package api

import (
	"net/http"

	"learnhub-api/internal/response"
	"learnhub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns a session
// POST /register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.Auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	response.MessageJSON(c, http.StatusCreated, "Registration successful", session)
}

// Login verifies credentials and returns a session
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	response.MessageJSON(c, http.StatusOK, "Login successful", session)
}

// GetCurrentUser returns the authenticated user
// GET /auth/user
func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	response.SuccessJSON(c, gin.H{"user": user})
}

// Logout is a no-op on the server, the client discards its token
// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	response.MessageJSON(c, http.StatusOK, "Logged out", nil)
}
