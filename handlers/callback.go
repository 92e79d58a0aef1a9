package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseops/pulseops/backend/auth-core/internal/actions"
	"github.com/pulseops/pulseops/backend/auth-core/internal/callback"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
)

// CallbackHandler binds the pure callback state machine to the designated
// redirect-back route.
type CallbackHandler struct {
	cb      *callback.Handler
	actions *actions.Service
	siteURL string
}

func NewCallbackHandler(cb *callback.Handler, a *actions.Service, siteURL string) *CallbackHandler {
	return &CallbackHandler{cb: cb, actions: a, siteURL: siteURL}
}

// Register mounts the redirect-back route.
func (h *CallbackHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/auth/callback", h.Handle)
}

// Handle resolves the redirect-back visit. Confirmed visits redirect to the
// application root so the reconciler's normal initial-load path takes over;
// failures render the message for the caller to display.
func (h *CallbackHandler) Handle(c *gin.Context) {
	params, err := callback.ParseRedirect(c.Request.URL.String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": string(callback.StateFailed), "message": "Invalid authentication link. Please try signing in again."})
		return
	}

	// the state nonce only reaches the server on query-string flows; when
	// present it must be one we issued
	if state := c.Query("state"); state != "" {
		ok, err := h.actions.ConsumeState(c.Request.Context(), state)
		if err != nil {
			logger.Warnf("callback: state check failed: %v", err)
		} else if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"status": string(callback.StateFailed), "message": "Invalid authentication link. Please try signing in again."})
			return
		}
	}

	res := h.cb.Resolve(c.Request.Context(), params)
	if res.State == callback.StateConfirmed {
		c.Redirect(http.StatusFound, h.siteURL+"/")
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"status": string(res.State), "message": res.Message})
}
