package roster

import (
	"log"
	"net/http"

	"dispatchdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	service  *Service
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(elevated *gin.RouterGroup) {
	elevated.GET("/roster", h.List)
	elevated.GET("/roster/watch", h.Watch)
}

func (h *Handler) List(c *gin.Context) {
	admins, err := h.service.ListAdmins(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not read the admin roster")
		return
	}

	code, err := h.service.CurrentAccessCode(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not read access code")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admins":      admins,
		"access_code": code,
	})
}

// Watch upgrades to a websocket and streams roster-change events until
// the client goes away. The client re-fetches the roster on each event;
// the stream carries change notifications, not state.
func (h *Handler) Watch(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("roster: watch upgrade failed: %v", err)
		return
	}

	h.hub.Serve(conn)
}
