package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/secret"
	"github.com/confhub/confhub/pkg/response"
)

type SecretHandler struct {
	secrets *secret.Manager
}

func NewSecretHandler(secrets *secret.Manager) *SecretHandler {
	return &SecretHandler{secrets: secrets}
}

type initializeSecretRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// Initialize sets the encryption key for password variables. The key is
// verified against the persisted check value, so a restarted server must
// receive the same key it was initialized with.
func (h *SecretHandler) Initialize(c *gin.Context) {
	var req initializeSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.secrets.Initialize(req.Secret); err != nil {
		switch {
		case errors.Is(err, secret.ErrInvalidSecretLength):
			response.BadRequest(c, err.Error())
		case errors.Is(err, secret.ErrSecretMismatch):
			response.Error(c, response.NewSecretError(err.Error()))
		default:
			response.Error(c, err)
		}
		return
	}
	response.Success(c, gin.H{"initialized": true})
}

// Status reports whether the encryption key has been provided since startup.
func (h *SecretHandler) Status(c *gin.Context) {
	response.Success(c, gin.H{"initialized": h.secrets.Initialized()})
}
