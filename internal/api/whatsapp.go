package api

import (
	"net/http"
	"strings"

	"bugalou/internal/database"
	"bugalou/internal/models"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
)

type WhatsAppHandler struct {
	Store *database.Store
}

func NewWhatsAppHandler(store *database.Store) *WhatsAppHandler {
	return &WhatsAppHandler{Store: store}
}

// GetSettings returns the company's WhatsApp settings without the token.
func (h *WhatsAppHandler) GetSettings(c *gin.Context) {
	settings, err := h.Store.FindWhatsAppSettings(c.Request.Context(), currentCompany(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"configured":     settings.PhoneNumberID != "" && settings.AccessToken != "",
		"settings":       settings,
		"hasAccessToken": settings.AccessToken != "",
	})
}

// PutSettings stores the phone number id and access token used to send on
// behalf of the company.
func (h *WhatsAppHandler) PutSettings(c *gin.Context) {
	var req api.WhatsAppSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.PhoneNumberID = strings.TrimSpace(req.PhoneNumberID)
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	if req.PhoneNumberID == "" || req.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumberId and accessToken are required"})
		return
	}

	settings := &models.CompanyWhatsAppSettings{
		CompanyID:     currentCompany(c).ID,
		PhoneNumberID: req.PhoneNumberID,
		AccessToken:   req.AccessToken,
		WabaID:        strings.TrimSpace(req.WabaID),
	}
	if err := h.Store.UpsertWhatsAppSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}
