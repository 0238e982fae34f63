package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"bugalou/internal/database"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	colorPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
)

type CompanyHandler struct {
	Store *database.Store
}

func NewCompanyHandler(store *database.Store) *CompanyHandler {
	return &CompanyHandler{Store: store}
}

func (h *CompanyHandler) GetCompany(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"company": currentCompany(c)})
}

// RotateAPIKey replaces the company's key. The old key stops working at once.
func (h *CompanyHandler) RotateAPIKey(c *gin.Context) {
	company := currentCompany(c)
	key, err := h.Store.RotateAPIKey(c.Request.Context(), company.ID)
	if err != nil {
		zap.L().Error("api company: rotate api key failed", zap.String("companyId", company.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKey": key})
}

func (h *CompanyHandler) SetSlug(c *gin.Context) {
	var req api.SlugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slug may only contain lowercase letters, digits and dashes"})
		return
	}

	err := h.Store.SetSlug(c.Request.Context(), currentCompany(c).ID, slug)
	switch {
	case errors.Is(err, database.ErrSlugTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slug is already in use"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "slug": slug})
}

// UpdateSettings changes the branding shown on the company's public pages.
func (h *CompanyHandler) UpdateSettings(c *gin.Context) {
	var req api.BrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	primary, ok := normalizeColor(req.PrimaryColor)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "primaryColor must be a hex color like #1a2b3c"})
		return
	}
	accent, ok := normalizeColor(req.AccentColor)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accentColor must be a hex color like #1a2b3c"})
		return
	}

	company, err := h.Store.UpdateBranding(c.Request.Context(), currentCompany(c).ID, database.Branding{
		PrimaryColor: primary,
		AccentColor:  accent,
		IntroText:    req.IntroText,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// normalizeColor accepts "1a2b3c" or "#1a2b3c" and always returns the
// #-prefixed lowercase form. A nil color is left alone.
func normalizeColor(color *string) (*string, bool) {
	if color == nil {
		return nil, true
	}
	v := strings.TrimSpace(*color)
	if !colorPattern.MatchString(v) {
		return nil, false
	}
	v = "#" + strings.ToLower(strings.TrimPrefix(v, "#"))
	return &v, true
}
