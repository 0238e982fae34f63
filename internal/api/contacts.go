package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"bugalou/internal/database"
	"bugalou/internal/models"
	api "bugalou/pkg/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type ContactHandler struct {
	Store *database.Store
}

func NewContactHandler(store *database.Store) *ContactHandler {
	return &ContactHandler{Store: store}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts(c.Request.Context(), currentCompany(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

func contactInput(req api.ContactRequest) (database.ContactInput, error) {
	in := database.ContactInput{
		Phone: strings.TrimSpace(req.Phone),
		Name:  req.Name,
		Email: req.Email,
	}
	if req.Tags != nil {
		encoded, err := json.Marshal(req.Tags)
		if err != nil {
			return in, err
		}
		in.Tags = datatypes.JSON(encoded)
	}
	if len(req.Attributes) > 0 && string(req.Attributes) != "null" {
		var attrs map[string]interface{}
		if err := json.Unmarshal(req.Attributes, &attrs); err != nil {
			return in, errors.New("attributes must be an object")
		}
		in.Attributes = datatypes.JSON(req.Attributes)
	}
	return in, nil
}

// CreateContact upserts a contact by phone number.
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req api.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := contactInput(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	contact, err := h.Store.UpsertContact(c.Request.Context(), currentCompany(c).ID, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var req api.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := contactInput(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	contact, err := h.Store.UpdateContact(c.Request.Context(), currentCompany(c).ID, c.Param("id"), in)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	case errors.Is(err, database.ErrDuplicatePhone):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	err := h.Store.DeleteContact(c.Request.Context(), currentCompany(c).ID, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts(c.Request.Context(), currentCompany(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Phone", "Name", "Email", "Tags", "Created At"})
	for _, ct := range contacts {
		var tags []string
		_ = json.Unmarshal(ct.Tags, &tags)
		_ = w.Write([]string{
			ct.Phone,
			valueOf(ct.Name),
			valueOf(ct.Email),
			strings.Join(tags, ";"),
			ct.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
