package accesscode

import (
	"errors"
	"net/http"

	"dispatchdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type notifier interface {
	AccessCodeChanged()
}

type Handler struct {
	store  *Store
	notify notifier
}

func NewHandler(store *Store, notify notifier) *Handler {
	return &Handler{store: store, notify: notify}
}

// RegisterRoutes mounts the rotation endpoints on the elevated admin group.
func (h *Handler) RegisterRoutes(elevated *gin.RouterGroup) {
	elevated.GET("/access-code", h.GetCode)
	elevated.PUT("/access-code", h.RotateCode)
}

func (h *Handler) GetCode(c *gin.Context) {
	code, err := h.store.Get(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not read access code")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"access_code": code})
}

type rotateRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

func (h *Handler) RotateCode(c *gin.Context) {
	var req rotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.store.Set(c.Request.Context(), req.AccessCode); err != nil {
		if errors.Is(err, ErrCodeTooShort) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Access code must be at least 5 characters")
			return
		}
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not rotate access code")
		return
	}

	// Watchers drop the retired code from their panels right away.
	if h.notify != nil {
		h.notify.AccessCodeChanged()
	}

	response.Success(c, http.StatusOK, gin.H{"access_code": req.AccessCode})
}
