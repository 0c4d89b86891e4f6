package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/api/middleware"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
)

type ShareHandler struct {
	sharing *services.SharingService
	logger  *zap.Logger
}

func NewShareHandler(sharing *services.SharingService, logger *zap.Logger) *ShareHandler {
	return &ShareHandler{
		sharing: sharing,
		logger:  logger.With(zap.String("handler", "shares")),
	}
}

type shareRequest struct {
	CredentialID     uint     `json:"credential_id" binding:"required"`
	SharedWithUserID uint     `json:"shared_with_user_id" binding:"required"`
	CanEdit          bool     `json:"can_edit"`
	ExpiryHours      *float64 `json:"expiry_hours"`
}

func (sh *ShareHandler) Share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "credential_id and shared_with_user_id are required"})
		return
	}

	grant, err := sh.sharing.Share(c.Request.Context(), middleware.UserID(c), req.CredentialID, req.SharedWithUserID, req.CanEdit, req.ExpiryHours)
	if err != nil {
		respondError(c, sh.logger, "Failed to share credential", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          "Credential shared successfully",
		"sharedCredential": grant,
	})
}

func (sh *ShareHandler) ListReceived(c *gin.Context) {
	shares, err := sh.sharing.ListReceived(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, sh.logger, "Failed to fetch shared credentials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sharedCredentials": shares,
		"count":             len(shares),
	})
}

func (sh *ShareHandler) GetReceivedByID(c *gin.Context) {
	shareID, ok := pathID(c, "id")
	if !ok {
		return
	}

	share, err := sh.sharing.GetReceivedByID(c.Request.Context(), middleware.UserID(c), shareID)
	if err != nil {
		respondError(c, sh.logger, "Shared credential not found or expired", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sharedCredential": share})
}

func (sh *ShareHandler) ListGranted(c *gin.Context) {
	shares, err := sh.sharing.ListGranted(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, sh.logger, "Failed to fetch shared credentials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sharedCredentials": shares,
		"count":             len(shares),
	})
}

func (sh *ShareHandler) Revoke(c *gin.Context) {
	shareID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := sh.sharing.Revoke(c.Request.Context(), middleware.UserID(c), shareID); err != nil {
		respondError(c, sh.logger, "Shared credential not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Shared credential revoked successfully"})
}
