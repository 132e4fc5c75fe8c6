package gate

import (
	"net/http"

	"dispatchdesk/internal/domain"
	"dispatchdesk/internal/metrics"
	"dispatchdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type tokenIssuer interface {
	GenerateElevatedToken(uid, role string) (string, error)
}

type Handler struct {
	service *Service
	tokens  tokenIssuer
}

func NewHandler(service *Service, tokens tokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// RegisterRoutes mounts the unlock endpoint on the authenticated (but not
// yet elevated) admin group.
func (h *Handler) RegisterRoutes(authed *gin.RouterGroup) {
	authed.POST("/panel/unlock", h.Unlock)
}

type unlockRequest struct {
	PanelCode string `json:"panel_code" binding:"required"`
}

// Unlock exchanges a valid admin session plus the panel code for a
// short-lived elevated token. It creates no server-side session and
// persists nothing.
func (h *Handler) Unlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	uid := c.GetString("uid")
	role := c.GetString("role")
	if role != string(domain.RoleAdmin) {
		metrics.PanelUnlocks.WithLabelValues("not_admin").Inc()
		response.Error(c, http.StatusForbidden, "NOT_ADMIN", "Admin role required")
		return
	}

	if !h.service.Verify(req.PanelCode) {
		metrics.PanelUnlocks.WithLabelValues("wrong_code").Inc()
		response.Error(c, http.StatusForbidden, "WRONG_PANEL_CODE", "Panel code does not match")
		return
	}

	token, err := h.tokens.GenerateElevatedToken(uid, role)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue elevated token")
		return
	}

	metrics.PanelUnlocks.WithLabelValues("ok").Inc()
	response.Success(c, http.StatusOK, gin.H{"token": token})
}
