package ban

import (
	"context"
	"errors"
	"net/http"

	"dispatchdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(elevated *gin.RouterGroup) {
	elevated.POST("/users/:uid/ban", h.Ban)
	elevated.POST("/users/:uid/unban", h.Unban)
}

func (h *Handler) Ban(c *gin.Context) {
	h.setStatus(c, h.service.Ban)
}

func (h *Handler) Unban(c *gin.Context) {
	h.setStatus(c, h.service.Unban)
}

func (h *Handler) setStatus(c *gin.Context, op func(ctx context.Context, uid string) error) {
	uid := c.Param("uid")
	if uid == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing uid")
		return
	}

	// Self-ban (and self-unban, which would be pointless anyway) is a
	// policy decision made here, not in the service.
	if caller, ok := c.Get("uid"); ok && caller == uid {
		response.Error(c, http.StatusForbidden, "SELF_BAN", "You cannot change your own ban status")
		return
	}

	if err := op(c.Request.Context(), uid); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "No profile for that identity")
			return
		}
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Ban status could not be updated")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"uid": uid})
}
