package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/api/middleware"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
)

type CredentialHandler struct {
	credentials *services.CredentialService
	logger      *zap.Logger
}

func NewCredentialHandler(credentials *services.CredentialService, logger *zap.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentials: credentials,
		logger:      logger.With(zap.String("handler", "credentials")),
	}
}

type createCredentialRequest struct {
	Username  string     `json:"username" binding:"required"`
	Password  string     `json:"password" binding:"required"`
	Notes     string     `json:"notes"`
	Tags      string     `json:"tags"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type updateCredentialRequest struct {
	Username  *string    `json:"username"`
	Password  *string    `json:"password"`
	Notes     *string    `json:"notes"`
	Tags      *string    `json:"tags"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (ch *CredentialHandler) Create(c *gin.Context) {
	var req createCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required"})
		return
	}

	credential, err := ch.credentials.Create(c.Request.Context(), middleware.UserID(c), services.CreateCredentialInput{
		Username:  req.Username,
		Password:  req.Password,
		Notes:     req.Notes,
		Tags:      req.Tags,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondError(c, ch.logger, "Failed to create credential", err)
		return
	}

	// The creation response carries no secret; the caller already has it.
	c.JSON(http.StatusCreated, gin.H{
		"message": "Credential created successfully",
		"credential": gin.H{
			"id":         credential.ID,
			"username":   credential.Username,
			"notes":      credential.Notes,
			"tags":       credential.Tags,
			"expires_at": credential.ExpiresAt,
		},
	})
}

func (ch *CredentialHandler) List(c *gin.Context) {
	credentials, err := ch.credentials.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, ch.logger, "Failed to fetch credentials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": credentials})
}

func (ch *CredentialHandler) ListByTag(c *gin.Context) {
	tag := c.Param("tag")
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Tag parameter is required"})
		return
	}

	credentials, err := ch.credentials.ListByTag(c.Request.Context(), middleware.UserID(c), tag)
	if err != nil {
		respondError(c, ch.logger, "Failed to fetch credentials by tag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": credentials})
}

func (ch *CredentialHandler) GetByID(c *gin.Context) {
	credentialID, ok := pathID(c, "id")
	if !ok {
		return
	}

	credential, err := ch.credentials.GetByID(c.Request.Context(), middleware.UserID(c), credentialID)
	if err != nil {
		respondError(c, ch.logger, "Failed to fetch credential", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credential": credential})
}

func (ch *CredentialHandler) Update(c *gin.Context) {
	credentialID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	credential, err := ch.credentials.Update(c.Request.Context(), middleware.UserID(c), credentialID, services.UpdateCredentialInput{
		Username:  req.Username,
		Password:  req.Password,
		Notes:     req.Notes,
		Tags:      req.Tags,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondError(c, ch.logger, "Failed to update credential", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Credential updated successfully",
		"credential": credential,
	})
}

func (ch *CredentialHandler) Delete(c *gin.Context) {
	credentialID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ch.credentials.Delete(c.Request.Context(), middleware.UserID(c), credentialID); err != nil {
		respondError(c, ch.logger, "Failed to delete credential", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Credential deleted successfully"})
}

// pathID parses a numeric path parameter, answering 400 itself when the
// value is not a positive integer.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}
