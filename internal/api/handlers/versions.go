package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/api/middleware"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
)

type VersionHandler struct {
	versions *services.VersionService
	logger   *zap.Logger
}

func NewVersionHandler(versions *services.VersionService, logger *zap.Logger) *VersionHandler {
	return &VersionHandler{
		versions: versions,
		logger:   logger.With(zap.String("handler", "versions")),
	}
}

func (vh *VersionHandler) List(c *gin.Context) {
	credentialID, ok := pathID(c, "credentialId")
	if !ok {
		return
	}

	versions, err := vh.versions.ListVersions(c.Request.Context(), middleware.UserID(c), credentialID)
	if err != nil {
		respondError(c, vh.logger, "Failed to fetch credential versions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credential_id": credentialID,
		"versions":      versions,
		"count":         len(versions),
	})
}

func (vh *VersionHandler) GetByNumber(c *gin.Context) {
	credentialID, ok := pathID(c, "credentialId")
	if !ok {
		return
	}
	versionNumber, err := strconv.Atoi(c.Param("versionNumber"))
	if err != nil || versionNumber <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid version number"})
		return
	}

	version, err := vh.versions.GetVersion(c.Request.Context(), middleware.UserID(c), credentialID, versionNumber)
	if err != nil {
		respondError(c, vh.logger, "Failed to fetch credential version", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version})
}
