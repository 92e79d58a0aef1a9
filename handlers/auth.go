package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseops/pulseops/backend/auth-core/internal/actions"
	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/reconcile"
)

// LoginRequest is the password-mode login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"userType" binding:"required"` // clinician | organization | admin
}

// RegisterRequest mirrors the registration form fields; role-specific fields
// may be empty for the other role.
type RegisterRequest struct {
	Email             string `json:"email" binding:"required"`
	Password          string `json:"password" binding:"required"`
	UserType          string `json:"userType" binding:"required"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Phone             string `json:"phone"`
	DateOfBirth       string `json:"dateOfBirth"`
	OrganizationName  string `json:"organizationName"`
	ContactPersonName string `json:"contactPersonName"`
	OrganizationType  string `json:"organizationType"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	actions *actions.Service
	rec     *reconcile.Reconciler
}

func NewAuthHandler(a *actions.Service, rec *reconcile.Reconciler) *AuthHandler {
	return &AuthHandler{actions: a, rec: rec}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/login/google", h.LoginWithGoogle)
	a.POST("/register", h.RegisterAccount)
	a.POST("/register/google", h.RegisterWithGoogle)
	a.POST("/logout", h.Logout)
	a.GET("/session", h.Session)
}

// Login authenticates with email/password (demo triples short-circuit).
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := identity.ParseRole(req.UserType)
	user, err := h.actions.Login(c.Request.Context(), req.Email, req.Password, role)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// LoginWithGoogle returns the OAuth authorization URL to follow.
func (h *AuthHandler) LoginWithGoogle(c *gin.Context) {
	var req struct {
		UserType string `json:"userType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.actions.LoginWithGoogle(c.Request.Context(), identity.ParseRole(req.UserType))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

// RegisterAccount creates a new identity; reports whether email confirmation
// stands between the account and its first session.
func (h *AuthHandler) RegisterAccount(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.actions.Register(c.Request.Context(), actions.RegisterRequest{
		Email:             req.Email,
		Password:          req.Password,
		Role:              identity.ParseRole(req.UserType),
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		DateOfBirth:       req.DateOfBirth,
		OrganizationName:  req.OrganizationName,
		ContactPersonName: req.ContactPersonName,
		OrganizationType:  req.OrganizationType,
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RegisterWithGoogle returns the sign-up flavored OAuth authorization URL.
func (h *AuthHandler) RegisterWithGoogle(c *gin.Context) {
	var req struct {
		UserType string `json:"userType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.actions.RegisterWithGoogle(c.Request.Context(), identity.ParseRole(req.UserType))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

// Logout ends the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.actions.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Session exposes the reconciler's current-user snapshot and loading flag.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":      h.rec.CurrentUser(),
		"isLoading": h.rec.IsLoading(),
	})
}

// writeAuthError maps the classified error taxonomy to HTTP statuses and
// always returns the user-presentable message.
func writeAuthError(c *gin.Context, err error) {
	var ae *identity.Error
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusBadRequest
	switch ae.Kind {
	case identity.KindInvalidCredentials, identity.KindEmailNotConfirmed:
		status = http.StatusUnauthorized
	case identity.KindAccountAlreadyExists:
		status = http.StatusConflict
	case identity.KindOAuthNotConfigured, identity.KindOAuthRedirectMismatch:
		status = http.StatusServiceUnavailable
	case identity.KindSessionExchangeFailed:
		status = http.StatusUnauthorized
	case identity.KindUnclassified:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": ae.Message, "kind": string(ae.Kind)})
}
