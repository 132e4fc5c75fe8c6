package reconcile

import (
	"errors"
	"net/http"

	"dispatchdesk/internal/identity"
	"dispatchdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type tokenIssuer interface {
	GenerateToken(uid, role string) (string, error)
}

type Handler struct {
	service *Service
	tokens  tokenIssuer
}

func NewHandler(service *Service, tokens tokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth/admin")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/federated", h.Federated)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	out, err := h.service.RegisterOrRecover(c.Request.Context(), RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		AccessCode:      req.AccessCode,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch out.Result {
	case ResultIncorrectCredential:
		response.Error(c, http.StatusConflict, "INCORRECT_CREDENTIAL",
			"This email is already registered and the password did not match; please sign in")
	case ResultDenied:
		response.Error(c, http.StatusForbidden, "ACCOUNT_BANNED", "This account is banned")
	default:
		h.writeSession(c, http.StatusCreated, out)
	}
}

func (h *Handler) Federated(c *gin.Context) {
	var req federatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	out, err := h.service.FederatedSignIn(c.Request.Context(), req.IDToken, req.AccessCode)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if out.Result == ResultDenied {
		response.Error(c, http.StatusForbidden, "ACCOUNT_BANNED", "This account is banned")
		return
	}
	h.writeSession(c, http.StatusOK, out)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	out, err := h.service.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if out.Result == ResultDenied {
		response.Error(c, http.StatusForbidden, "ACCOUNT_BANNED", "This account is banned")
		return
	}
	h.writeSession(c, http.StatusOK, out)
}

func (h *Handler) writeSession(c *gin.Context, status int, out *Outcome) {
	token, err := h.tokens.GenerateToken(out.Identity.UID, string(out.Role))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue session token")
		return
	}

	response.Success(c, status, gin.H{
		"result": out.Result,
		"identity": gin.H{
			"uid":   out.Identity.UID,
			"email": out.Identity.Email,
			"name":  out.Identity.Name,
		},
		"role":           out.Role,
		"profile_synced": out.ProfileSynced,
		"token":          token,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCodeMismatch):
		response.Error(c, http.StatusForbidden, "CODE_MISMATCH", "Registration code does not match")
	case errors.Is(err, ErrPasswordMismatch):
		response.Error(c, http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match")
	case errors.Is(err, ErrWeakPassword):
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 6 characters")
	case errors.Is(err, ErrBanCheckUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Account status could not be verified")
	case errors.Is(err, identity.ErrBadCredential):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, identity.ErrBadToken):
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Federated token was rejected")
	default:
		// Provider failures surface with the provider's own message.
		response.Error(c, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
	}
}
